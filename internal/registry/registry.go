// Package registry tracks in-flight operations and mediates their
// cancellation.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yarokim83/filemanager/optypes"
)

// Entry is one registered operation.
type Entry struct {
	ID        string
	Kind      optypes.Kind
	Label     string
	StartedAt time.Time

	cancel context.CancelFunc
}

// Registry owns the set of in-flight operations. An id is present exactly
// while its operation is neither finished nor canceled.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for cancellation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source for StartedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*Entry),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records a new operation and returns its id. cancel is invoked at
// most once, by Cancel.
func (r *Registry) Register(kind optypes.Kind, label string, cancel context.CancelFunc) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for _, taken := r.entries[id]; taken; _, taken = r.entries[id] {
		id = r.newID()
	}

	r.entries[id] = &Entry{
		ID:        id,
		Kind:      kind,
		Label:     label,
		StartedAt: r.now(),
		cancel:    cancel,
	}
	r.logger.Debug("operation registered",
		slog.String("op_id", id),
		slog.String("kind", string(kind)),
		slog.String("label", label),
	)
	return id
}

// Remove deletes id and reports whether it was present. Removing an absent
// id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Cancel removes id and fires its cancellation. It returns false, with no
// side effects, when id is not registered.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	r.logger.Info("operation canceled",
		slog.String("op_id", id),
		slog.String("kind", string(entry.Kind)),
		slog.String("label", entry.Label),
	)
	return true
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Snapshot returns every entry ordered by start time.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	out := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, *entry)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Len returns the number of in-flight operations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
