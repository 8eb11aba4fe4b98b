// Package transfer drives a single upload or download as a counted stream
// copy that reports progress.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/optypes"
)

// Publisher receives progress events.
type Publisher interface {
	Publish(ev optypes.ProgressEvent)
}

// Sink is the destination of a transfer. Close commits the data;
// CloseWithError abandons it.
type Sink interface {
	io.Writer
	Close() error
	CloseWithError(err error) error
}

// Outcome is how a job ended.
type Outcome string

// Job outcomes
const (
	OutcomeDone     Outcome = "done"
	OutcomeError    Outcome = "error"
	OutcomeCanceled Outcome = "canceled"
)

// Job describes one transfer. The pipeline owns Source and Sink and closes
// both before Run returns.
type Job struct {
	OpID   string
	Kind   optypes.Kind
	Name   string
	Total  int64
	Source io.ReadCloser
	Sink   Sink

	// SavedTo is reported on the done event of downloads
	SavedTo string

	// OnFinish runs exactly once, before the terminal event is published.
	// On cancellation it runs and no terminal event follows.
	OnFinish func(outcome Outcome, transferred int64)
}

// Pipeline executes jobs.
type Pipeline struct {
	bus    Publisher
	logger *slog.Logger
	pool   *bufferPool
}

// New creates a pipeline publishing to bus. A nil logger discards diagnostics.
func New(bus Publisher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		bus:    bus,
		logger: logger,
		pool:   newBufferPool(ChunkSize),
	}
}

// Run copies job.Source to job.Sink. It publishes a progress event before
// the first read and after every chunk, then a done or error event. When ctx
// is canceled the resources are torn down and nothing further is published.
func (p *Pipeline) Run(ctx context.Context, job Job) {
	var closeSourceOnce sync.Once
	var sourceErr error
	closeSource := func() error {
		closeSourceOnce.Do(func() { sourceErr = job.Source.Close() })
		return sourceErr
	}
	// Unblock a read stuck on the network as soon as the op is canceled.
	stop := context.AfterFunc(ctx, func() { _ = closeSource() })
	defer stop()

	transferred, err := p.copy(ctx, job)
	if err == nil {
		err = job.Sink.Close()
		if err != nil {
			err = fmerrors.NewObjectError(string(job.Kind), job.Name, fmt.Errorf("%w: %w", fmerrors.ErrIO, err))
		}
	} else {
		fmerrors.Ignore(p.logger, "abandon sink", job.Name, job.Sink.CloseWithError(err))
	}
	fmerrors.Ignore(p.logger, "close source", job.Name, closeSource())

	switch {
	case ctx.Err() != nil:
		p.finish(job, OutcomeCanceled, transferred)
		p.logger.InfoContext(ctx, "transfer canceled",
			slog.String("op_id", job.OpID),
			slog.String("kind", string(job.Kind)),
			slog.String("name", job.Name),
			slog.Int64("transferred", transferred),
		)
	case err != nil:
		p.finish(job, OutcomeError, transferred)
		p.logger.ErrorContext(ctx, "transfer failed",
			slog.String("op_id", job.OpID),
			slog.String("kind", string(job.Kind)),
			slog.String("name", job.Name),
			slog.String("error", err.Error()),
		)
		p.bus.Publish(optypes.ProgressEvent{
			OpID:    job.OpID,
			Kind:    job.Kind,
			Name:    job.Name,
			Phase:   optypes.PhaseError,
			Message: err.Error(),
		})
	default:
		p.finish(job, OutcomeDone, transferred)
		p.logger.InfoContext(ctx, "transfer complete",
			slog.String("op_id", job.OpID),
			slog.String("kind", string(job.Kind)),
			slog.String("name", job.Name),
			slog.Int64("bytes", transferred),
		)
		p.bus.Publish(optypes.ProgressEvent{
			OpID:        job.OpID,
			Kind:        job.Kind,
			Name:        job.Name,
			Phase:       optypes.PhaseDone,
			Transferred: transferred,
			Total:       job.Total,
			Percent:     100,
			SavedTo:     job.SavedTo,
		})
	}
}

func (p *Pipeline) copy(ctx context.Context, job Job) (int64, error) {
	buf := p.pool.get()
	defer p.pool.put(buf)

	var transferred int64
	p.progress(ctx, job, transferred)

	for {
		if err := ctx.Err(); err != nil {
			return transferred, err
		}

		n, rerr := job.Source.Read(buf)
		if n > 0 {
			if _, werr := job.Sink.Write(buf[:n]); werr != nil {
				return transferred, fmerrors.NewObjectError(string(job.Kind), job.Name,
					fmt.Errorf("%w: write: %w", fmerrors.ErrIO, werr))
			}
			transferred += int64(n)
			p.progress(ctx, job, transferred)
		}
		if errors.Is(rerr, io.EOF) {
			return transferred, nil
		}
		if rerr != nil {
			return transferred, fmerrors.NewObjectError(string(job.Kind), job.Name,
				fmt.Errorf("%w: read: %w", fmerrors.ErrIO, rerr))
		}
	}
}

func (p *Pipeline) progress(ctx context.Context, job Job, transferred int64) {
	if ctx.Err() != nil {
		return
	}
	p.bus.Publish(optypes.ProgressEvent{
		OpID:        job.OpID,
		Kind:        job.Kind,
		Name:        job.Name,
		Phase:       optypes.PhaseProgress,
		Transferred: transferred,
		Total:       job.Total,
		Percent:     optypes.Percent(transferred, job.Total),
	})
}

func (p *Pipeline) finish(job Job, outcome Outcome, transferred int64) {
	if job.OnFinish != nil {
		job.OnFinish(outcome, transferred)
	}
}
