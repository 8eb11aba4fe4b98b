package filemanager

import (
	"context"
	"log/slog"
	"time"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/metrics"
	"github.com/yarokim83/filemanager/internal/rename"
	"github.com/yarokim83/filemanager/internal/validation"
	"github.com/yarokim83/filemanager/optypes"
)

// Rename moves one object and returns its new name.
func (m *Manager) Rename(ctx context.Context, src, dest string, overwrite bool) (string, error) {
	if err := validation.ValidateObjectName(src); err != nil {
		return "", err
	}
	if err := validation.ValidateObjectName(dest); err != nil {
		return "", err
	}
	return m.renamer.RenameObject(ctx, src, dest, overwrite)
}

// RenamePrefix moves every object under src to dest and waits for it to
// finish. Objects that fail to copy are listed in the result; they do not
// fail the call.
func (m *Manager) RenamePrefix(ctx context.Context, src, dest string, overwrite bool) (*optypes.PrefixResult, error) {
	if err := validatePrefixes(src, dest); err != nil {
		return nil, err
	}
	return m.renamer.RenamePrefix(ctx, src, dest, overwrite)
}

// StartRenamePrefix validates a prefix rename synchronously, then moves the
// objects in the background and returns the operation id. One progress event
// is published per attempted object, followed by a done event carrying the
// copied count and the failures.
func (m *Manager) StartRenamePrefix(ctx context.Context, src, dest string, overwrite bool) (string, error) {
	const op = "startRenamePrefix"

	if err := validatePrefixes(src, dest); err != nil {
		return "", err
	}
	plan, err := m.renamer.PreparePrefix(ctx, src, dest, overwrite)
	if err != nil {
		return "", err
	}
	if plan.Noop {
		return "", fmerrors.NewObjectError(op, plan.Src, fmerrors.ErrInvalidInput).
			WithMessage(rename.SamePrefixMessage)
	}

	opCtx, cancel := detach(ctx)
	id, release := m.begin(optypes.KindRename, plan.Label(), cancel)

	go func() {
		defer release()
		m.runRename(opCtx, id, plan)
	}()
	return id, nil
}

func (m *Manager) runRename(ctx context.Context, id string, plan *rename.PrefixPlan) {
	started := time.Now()
	label := plan.Label()

	summary, err := m.renamer.Execute(ctx, plan, func(step rename.Step) {
		if ctx.Err() != nil {
			return
		}
		m.bus.Publish(optypes.ProgressEvent{
			OpID:        id,
			Kind:        optypes.KindRename,
			Name:        label,
			Phase:       optypes.PhaseProgress,
			Current:     step.Current,
			Count:       step.Count,
			Total:       int64(step.Total),
			Percent:     optypes.Percent(int64(step.Count), int64(step.Total)),
			FailedCount: step.FailedCount,
		})
	})

	switch {
	case ctx.Err() != nil || fmerrors.IsCanceled(err):
		m.finish(id, optypes.KindRename, metrics.PhaseCanceled, started)
		m.logger.InfoContext(ctx, "prefix rename canceled",
			slog.String("op_id", id),
			slog.String("name", label),
			slog.Int("copied", summary.Copied),
		)
	case err != nil:
		m.finish(id, optypes.KindRename, string(optypes.PhaseError), started)
		m.logger.ErrorContext(ctx, "prefix rename failed",
			slog.String("op_id", id),
			slog.String("name", label),
			slog.String("error", err.Error()),
		)
		m.bus.Publish(optypes.ProgressEvent{
			OpID:    id,
			Kind:    optypes.KindRename,
			Name:    label,
			Phase:   optypes.PhaseError,
			Message: err.Error(),
		})
	default:
		m.finish(id, optypes.KindRename, string(optypes.PhaseDone), started)
		m.bus.Publish(optypes.ProgressEvent{
			OpID:        id,
			Kind:        optypes.KindRename,
			Name:        label,
			Phase:       optypes.PhaseDone,
			Count:       summary.Total,
			Total:       int64(summary.Total),
			Percent:     100,
			FailedCount: len(summary.Failed),
			Copied:      summary.Copied,
			Failed:      summary.Failed,
		})
	}
}

func validatePrefixes(src, dest string) error {
	if err := validation.ValidatePrefix(src); err != nil {
		return err
	}
	return validation.ValidatePrefix(dest)
}
