// Package rename moves objects by copy-then-delete: single objects, and
// whole prefixes ("folders") with per-object failure isolation.
package rename

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/metrics"
	"github.com/yarokim83/filemanager/objstore"
	"github.com/yarokim83/filemanager/optypes"
)

// SamePrefixMessage is reported when a prefix rename has nothing to do.
const SamePrefixMessage = "source and destination are the same"

// Orchestrator performs renames against a store.
type Orchestrator struct {
	store   objstore.Store
	logger  *slog.Logger
	cleanup optypes.CleanupPolicy
	metrics *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCleanupPolicy selects how source objects are removed after a prefix
// copy pass. The default is optypes.CleanupCopied.
func WithCleanupPolicy(policy optypes.CleanupPolicy) Option {
	return func(o *Orchestrator) {
		if policy != "" {
			o.cleanup = policy
		}
	}
}

// WithMetrics records per-object outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an orchestrator over store.
func New(store objstore.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		cleanup: optypes.CleanupCopied,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CleanupPolicy returns the configured cleanup policy.
func (o *Orchestrator) CleanupPolicy() optypes.CleanupPolicy {
	return o.cleanup
}

// RenameObject moves src to dest and returns the new name. With overwrite an
// existing dest is deleted first; without it an existing dest is a conflict.
// If the copy succeeds but removing src fails, the object is left under both
// names and the error is returned.
func (o *Orchestrator) RenameObject(ctx context.Context, src, dest string, overwrite bool) (string, error) {
	const op = "rename"

	if src == "" || dest == "" {
		return "", fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage("source and destination are required")
	}
	if src == dest {
		return "", fmerrors.NewObjectError(op, src, fmerrors.ErrInvalidInput).
			WithMessage(SamePrefixMessage)
	}

	exists, err := o.store.Exists(ctx, src)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmerrors.NewObjectError(op, src, fmerrors.ErrNotFound)
	}

	taken, err := o.store.Exists(ctx, dest)
	if err != nil {
		return "", err
	}
	if taken {
		if !overwrite {
			return "", fmerrors.NewConflictError(op, dest)
		}
		if err := o.store.Delete(ctx, dest, false); err != nil {
			return "", err
		}
	}

	if err := o.store.Copy(ctx, src, dest); err != nil {
		return "", err
	}
	if err := o.store.Delete(ctx, src, true); err != nil {
		return "", fmerrors.NewObjectError(op, src, err).
			WithMessage("copied to " + dest + " but the source could not be removed")
	}

	o.logger.InfoContext(ctx, "object renamed",
		slog.String("src", src),
		slog.String("dest", dest),
		slog.Bool("overwrite", overwrite),
	)
	return dest, nil
}

// PrefixPlan is a validated prefix rename, ready for Execute.
type PrefixPlan struct {
	Src       string
	Dest      string
	Overwrite bool

	// Noop is set when both prefixes normalize to the same value
	Noop bool
}

// Label is the display name of the rename.
func (p *PrefixPlan) Label() string {
	return p.Src + " -> " + p.Dest
}

// PreparePrefix validates a prefix rename. Both prefixes are normalized to
// end in "/". Equal prefixes yield a Noop plan without touching the store.
// The source must hold at least one object. A non-empty destination is a
// conflict unless overwrite is set, in which case it is cleared here.
func (o *Orchestrator) PreparePrefix(ctx context.Context, src, dest string, overwrite bool) (*PrefixPlan, error) {
	const op = "renamePrefix"

	if strings.Trim(src, objstore.Separator) == "" || strings.Trim(dest, objstore.Separator) == "" {
		return nil, fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage("source and destination prefixes are required")
	}

	plan := &PrefixPlan{
		Src:       objstore.EnsureTrailingSeparator(src),
		Dest:      objstore.EnsureTrailingSeparator(dest),
		Overwrite: overwrite,
	}
	if plan.Src == plan.Dest {
		plan.Noop = true
		return plan, nil
	}
	if strings.HasPrefix(plan.Dest, plan.Src) || strings.HasPrefix(plan.Src, plan.Dest) {
		return nil, fmerrors.NewObjectError(op, plan.Label(), fmerrors.ErrInvalidInput).
			WithMessage("prefixes must not contain each other")
	}

	found, err := objstore.HasAny(ctx, o.store, plan.Src)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmerrors.NewObjectError(op, plan.Src, fmerrors.ErrNotFound)
	}

	taken, err := objstore.HasAny(ctx, o.store, plan.Dest)
	if err != nil {
		return nil, err
	}
	if taken {
		if !overwrite {
			return nil, fmerrors.NewConflictError(op, plan.Dest)
		}
		report, err := o.store.DeleteAllWithPrefix(ctx, plan.Dest)
		if err != nil {
			return nil, err
		}
		if err := report.Err(); err != nil {
			return nil, fmerrors.NewObjectError(op, plan.Dest, err).
				WithMessage("could not clear destination")
		}
	}

	return plan, nil
}

// Step reports progress after one object was attempted.
type Step struct {
	Current     string
	Count       int
	Total       int
	FailedCount int
}

// Execute copies every object under plan.Src to plan.Dest. A failed copy is
// recorded in the summary and the pass continues. After the pass the source
// is cleaned up according to the cleanup policy; cleanup failures are logged
// and never returned. The error result is reserved for failures outside the
// per-object loop, such as enumeration, and for cancellation, in which case
// the pass stops and no cleanup runs.
func (o *Orchestrator) Execute(ctx context.Context, plan *PrefixPlan, report func(Step)) (*optypes.Summary, error) {
	const op = "renamePrefix"

	summary := &optypes.Summary{}
	if plan.Noop {
		return summary, nil
	}

	objects, err := objstore.ListAll(ctx, o.store, plan.Src)
	if err != nil {
		if ctx.Err() != nil {
			return summary, canceled(op, plan, ctx.Err())
		}
		return summary, fmerrors.NewObjectError(op, plan.Src, err).WithMessage("enumerate source")
	}

	copied := make([]string, 0, len(objects))
	for i, obj := range objects {
		if err := ctx.Err(); err != nil {
			return summary, canceled(op, plan, err)
		}

		target := plan.Dest + strings.TrimPrefix(obj.Name, plan.Src)
		err := o.store.Copy(ctx, obj.Name, target)
		if err != nil && ctx.Err() != nil {
			return summary, canceled(op, plan, ctx.Err())
		}

		summary.Add(obj.Name, err)
		o.metrics.RenameObject(err == nil)
		if err != nil {
			o.logger.WarnContext(ctx, "object copy failed",
				slog.String("src", obj.Name),
				slog.String("dest", target),
				slog.String("error", err.Error()),
			)
		} else {
			copied = append(copied, obj.Name)
		}

		if report != nil {
			report(Step{
				Current:     obj.Name,
				Count:       i + 1,
				Total:       len(objects),
				FailedCount: len(summary.Failed),
			})
		}
	}

	summary.CleanupFailures = o.cleanupSource(ctx, plan, copied)

	o.logger.InfoContext(ctx, "prefix renamed",
		slog.String("src", plan.Src),
		slog.String("dest", plan.Dest),
		slog.Int("copied", summary.Copied),
		slog.Int("failed", len(summary.Failed)),
		slog.Int("cleanup_failures", summary.CleanupFailures),
	)
	return summary, nil
}

// cleanupSource removes the source objects and returns how many deletions
// failed. Failures are logged and otherwise ignored.
func (o *Orchestrator) cleanupSource(ctx context.Context, plan *PrefixPlan, copied []string) int {
	const op = "cleanup source"

	var ignored []*fmerrors.Ignorable
	keep := func(ig *fmerrors.Ignorable) {
		if ig != nil {
			ignored = append(ignored, ig)
		}
	}

	switch o.cleanup {
	case optypes.CleanupPrefix:
		deleted, err := o.store.DeleteAllWithPrefix(ctx, plan.Src)
		if err != nil {
			keep(fmerrors.Ignore(o.logger, op, plan.Src, err))
			break
		}
		for _, e := range deleted.Errors {
			keep(fmerrors.Ignore(o.logger, op, e.Key, e.Err))
		}
	default:
		for _, name := range copied {
			keep(fmerrors.Ignore(o.logger, op, name, o.store.Delete(ctx, name, true)))
		}
	}
	return len(ignored)
}

// RenamePrefix prepares and executes a prefix rename in one call.
func (o *Orchestrator) RenamePrefix(ctx context.Context, src, dest string, overwrite bool) (*optypes.PrefixResult, error) {
	plan, err := o.PreparePrefix(ctx, src, dest, overwrite)
	if err != nil {
		return nil, err
	}
	if plan.Noop {
		return &optypes.PrefixResult{Renamed: false, Message: SamePrefixMessage}, nil
	}

	summary, err := o.Execute(ctx, plan, nil)
	if err != nil {
		return nil, err
	}

	result := &optypes.PrefixResult{
		Renamed: true,
		Copied:  summary.Copied,
		Failed:  summary.Failed,
	}
	if n := len(summary.Failed); n > 0 {
		result.Message = fmt.Sprintf("%d of %d objects could not be copied", n, summary.Total)
	}
	return result, nil
}

func canceled(op string, plan *PrefixPlan, cause error) error {
	return fmerrors.NewObjectError(op, plan.Label(), fmt.Errorf("%w: %w", fmerrors.ErrCanceled, cause))
}
