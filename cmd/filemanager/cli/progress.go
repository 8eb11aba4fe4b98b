package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/yarokim83/filemanager"
	"github.com/yarokim83/filemanager/config"
	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/optypes"
)

// shouldShowProgress returns true if progress bars should be displayed.
func shouldShowProgress(mode string) bool {
	switch mode {
	case config.ProgressPlain:
		return false
	case config.ProgressTTY:
		return true
	default:
		return term.IsTerminal(int(os.Stderr.Fd()))
	}
}

// newByteBar creates a progress bar for transfers.
func newByteBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
	)
}

// newCountBar creates a progress bar for folder moves, counted in objects.
func newCountBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
	)
}

// start launches an operation with a subscription already in place, so no
// event of the new operation can be missed.
func start(mgr *filemanager.Manager, launch func() (string, error)) (string, <-chan optypes.ProgressEvent, func(), error) {
	sub := mgr.Subscribe(64)
	id, err := launch()
	if err != nil {
		sub.Unsubscribe()
		return "", nil, nil, err
	}
	return id, sub.Events(), sub.Unsubscribe, nil
}

// watch renders events for one operation until its terminal event and
// returns that event. When ctx ends first the operation is canceled.
func watch(
	ctx context.Context,
	mgr *filemanager.Manager,
	id string,
	events <-chan optypes.ProgressEvent,
	showBar bool,
	description string,
) (optypes.ProgressEvent, error) {
	var bar *progressbar.ProgressBar
	finishBar := func() {
		if bar != nil {
			//nolint:errcheck // progress bar errors are not critical
			bar.Finish()
		}
	}

	for {
		select {
		case <-ctx.Done():
			mgr.Cancel(id)
			finishBar()
			return optypes.ProgressEvent{}, fmerrors.NewObjectError("watch", description, fmerrors.ErrCanceled)
		case ev, ok := <-events:
			if !ok {
				finishBar()
				return optypes.ProgressEvent{}, errors.New("progress stream closed")
			}
			if ev.OpID != id {
				continue
			}
			if showBar {
				bar = render(bar, ev, description)
			}
			switch ev.Phase {
			case optypes.PhaseDone:
				finishBar()
				return ev, nil
			case optypes.PhaseError:
				finishBar()
				return ev, fmt.Errorf("%s failed: %s", ev.Name, ev.Message)
			}
		}
	}
}

func render(bar *progressbar.ProgressBar, ev optypes.ProgressEvent, description string) *progressbar.ProgressBar {
	if ev.Kind == optypes.KindRename {
		if bar == nil {
			bar = newCountBar(os.Stderr, ev.Total, description)
		}
		//nolint:errcheck // progress bar errors are not critical
		bar.Set(ev.Count)
		return bar
	}
	if bar == nil {
		bar = newByteBar(os.Stderr, ev.Total, description)
	}
	//nolint:errcheck // progress bar errors are not critical
	bar.Set64(ev.Transferred)
	return bar
}
