package filemanager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yarokim83/filemanager/config"
	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/localfs"
	"github.com/yarokim83/filemanager/internal/metrics"
	"github.com/yarokim83/filemanager/internal/progress"
	"github.com/yarokim83/filemanager/internal/registry"
	"github.com/yarokim83/filemanager/internal/rename"
	"github.com/yarokim83/filemanager/internal/transfer"
	"github.com/yarokim83/filemanager/objstore"
	"github.com/yarokim83/filemanager/objstore/miniostore"
	"github.com/yarokim83/filemanager/objstore/s3store"
	"github.com/yarokim83/filemanager/optypes"
)

// Manager exposes the operation surface over one bucket. It is safe for
// concurrent use.
type Manager struct {
	store    objstore.Store
	fs       *localfs.FS
	logger   *slog.Logger
	metrics  *metrics.Metrics
	registry *registry.Registry
	bus      *progress.Bus
	pipeline *transfer.Pipeline
	renamer  *rename.Orchestrator

	// wg tracks operation goroutines so Close can wait for them
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a manager over store.
func New(store objstore.Store, opts ...Option) *Manager {
	s := newSettings(opts)
	bus := progress.New(s.logger)

	return &Manager{
		store:    store,
		fs:       s.fs,
		logger:   s.logger,
		metrics:  s.metrics,
		registry: registry.New(registry.WithLogger(s.logger)),
		bus:      bus,
		pipeline: transfer.New(bus, s.logger),
		renamer: rename.New(store,
			rename.WithLogger(s.logger),
			rename.WithCleanupPolicy(s.cleanup),
			rename.WithMetrics(s.metrics),
		),
	}
}

// NewFromConfig opens the backend named by cfg and creates a manager over
// it. The configured cleanup policy applies unless opts override it.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := newSettings(opts)

	store, err := openStore(ctx, cfg, s.logger)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{WithCleanupPolicy(cfg.CleanupPolicy())}, opts...)
	return New(store, opts...), nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (objstore.Store, error) {
	switch cfg.Backend {
	case config.BackendMinio:
		store, err := miniostore.New(cfg.Endpoint, cfg.Bucket,
			miniostore.WithRegion(cfg.Region),
			miniostore.WithInsecure(cfg.Insecure),
			miniostore.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendS3:
		store, err := s3store.New(ctx, cfg.Bucket,
			s3store.WithRegion(cfg.Region),
			s3store.WithEndpoint(cfg.Endpoint),
			s3store.WithForcePathStyle(cfg.ForcePathStyle),
			s3store.WithMaxRetries(cfg.MaxRetries),
			s3store.WithTimeout(cfg.Timeout),
			s3store.WithPartSize(cfg.PartSize),
			s3store.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmerrors.NewError("openStore", fmerrors.ErrInvalidInput).
			WithMessage("unknown backend " + cfg.Backend)
	}
}

// Store returns the underlying object store.
func (m *Manager) Store() objstore.Store {
	return m.store
}

// Cancel stops the operation with the given id. It reports false, with no
// other effect, when no such operation is running.
func (m *Manager) Cancel(opID string) bool {
	return m.registry.Cancel(opID)
}

// Operations returns the in-flight operations, oldest first.
func (m *Manager) Operations() []optypes.Operation {
	entries := m.registry.Snapshot()
	ops := make([]optypes.Operation, 0, len(entries))
	for _, e := range entries {
		ops = append(ops, optypes.Operation{
			ID:        e.ID,
			Kind:      e.Kind,
			Label:     e.Label,
			StartedAt: e.StartedAt,
		})
	}
	return ops
}

// Subscribe returns a subscription receiving every progress event published
// from now on. buffer sizes the delivery channel; the mailbox behind it is
// unbounded.
func (m *Manager) Subscribe(buffer int) *progress.Subscription {
	return m.bus.Subscribe(buffer)
}

// OnProgress calls fn for every progress event, in publish order, from a
// dedicated goroutine. The returned function unsubscribes.
func (m *Manager) OnProgress(fn func(optypes.ProgressEvent)) func() {
	sub := m.bus.Subscribe(16)
	go func() {
		for ev := range sub.Events() {
			fn(ev)
		}
	}()
	return sub.Unsubscribe
}

// Wait blocks until every operation started so far has finished or been
// canceled.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels every running operation, waits for them to stop and closes
// all subscriptions. Events published before Close are still delivered.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		for _, e := range m.registry.Snapshot() {
			m.registry.Cancel(e.ID)
		}
		m.wg.Wait()
		m.bus.Close()
	})
	return nil
}

// detach derives the context an operation runs under. The operation outlives
// ctx and stops only through Cancel or Close.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(ctx))
}

// begin registers an operation whose context is canceled by cancel. The
// goroutine running the operation calls release when it returns.
func (m *Manager) begin(kind optypes.Kind, label string, cancel context.CancelFunc) (id string, release func()) {
	id = m.registry.Register(kind, label, cancel)
	m.metrics.Started(kind)
	m.wg.Add(1)
	return id, func() {
		cancel()
		m.wg.Done()
	}
}

// finish removes the operation before its terminal event is published.
func (m *Manager) finish(id string, kind optypes.Kind, phase string, started time.Time) {
	m.registry.Remove(id)
	m.metrics.Finished(kind, phase, time.Since(started))
}
