package filemanager

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/transfer"
	"github.com/yarokim83/filemanager/internal/validation"
	"github.com/yarokim83/filemanager/objstore"
	"github.com/yarokim83/filemanager/optypes"
)

// checkDestination rejects an existing destination unless overwrite is set.
// It reports whether the destination existed.
func (m *Manager) checkDestination(ctx context.Context, op, destination string, overwrite bool) (bool, error) {
	if err := validation.ValidateObjectName(destination); err != nil {
		return false, err
	}
	exists, err := m.store.Exists(ctx, destination)
	if err != nil {
		return false, err
	}
	if exists && !overwrite {
		return true, fmerrors.NewConflictError(op, destination)
	}
	return exists, nil
}

// UploadLocal copies a local file to destination and waits for it to finish.
// No progress events are published. A relative localPath is resolved against
// the working directory.
func (m *Manager) UploadLocal(ctx context.Context, localPath, destination string, overwrite bool) (*optypes.UploadResult, error) {
	const op = "uploadLocal"

	src, _, err := m.fs.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer func() { fmerrors.Ignore(m.logger, "close local file", localPath, src.Close()) }()

	existed, err := m.checkDestination(ctx, op, destination, overwrite)
	if err != nil {
		return nil, err
	}

	w, err := m.store.NewWriter(ctx, destination, objstore.WriterOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, src); err != nil {
		fmerrors.Ignore(m.logger, "abandon upload", destination, w.CloseWithError(err))
		return nil, fmerrors.NewObjectError(op, destination, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "uploaded local file",
		slog.String("path", localPath),
		slog.String("name", destination),
	)
	return &optypes.UploadResult{Name: destination, Overwritten: existed}, nil
}

// UploadBuffer saves data as destination in a single request.
func (m *Manager) UploadBuffer(ctx context.Context, data []byte, destination string, overwrite bool) (*optypes.UploadResult, error) {
	existed, err := m.checkDestination(ctx, "uploadBuffer", destination, overwrite)
	if err != nil {
		return nil, err
	}
	opts := objstore.WriterOptions{ContentType: mimetype.Detect(data).String()}
	if err := m.store.Save(ctx, destination, data, opts); err != nil {
		return nil, err
	}
	return &optypes.UploadResult{Name: destination, Overwritten: existed}, nil
}

// Download copies an object to a local path, creating missing parent
// directories, and returns the path written. A relative localPath is resolved
// against the working directory.
func (m *Manager) Download(ctx context.Context, name, localPath string) (string, error) {
	const op = "download"

	if err := validation.ValidateObjectName(name); err != nil {
		return "", err
	}
	src, err := m.store.NewReader(ctx, name)
	if err != nil {
		return "", err
	}
	defer func() { fmerrors.Ignore(m.logger, "close object reader", name, src.Close()) }()

	dst, err := m.fs.Create(localPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		fmerrors.Ignore(m.logger, "close local file", localPath, dst.Close())
		return "", fmerrors.NewObjectError(op, name, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmerrors.NewObjectError(op, localPath, err)
	}
	return localPath, nil
}

// StartUploadLocal uploads a local file in the background and returns the
// operation id. A missing local file, checked first, or an existing
// destination without overwrite is rejected before anything is registered.
// A relative localPath is resolved against the working directory.
func (m *Manager) StartUploadLocal(ctx context.Context, localPath, destination string, overwrite bool) (string, error) {
	src, size, err := m.fs.Open(localPath)
	if err != nil {
		return "", err
	}
	if _, err := m.checkDestination(ctx, "startUploadLocal", destination, overwrite); err != nil {
		fmerrors.Ignore(m.logger, "close local file", localPath, src.Close())
		return "", err
	}
	return m.startUpload(ctx, src, size, destination, objstore.WriterOptions{})
}

// StartUploadBuffer uploads data in the background and returns the operation
// id.
func (m *Manager) StartUploadBuffer(ctx context.Context, data []byte, destination string, overwrite bool) (string, error) {
	if _, err := m.checkDestination(ctx, "startUploadBuffer", destination, overwrite); err != nil {
		return "", err
	}
	opts := objstore.WriterOptions{ContentType: mimetype.Detect(data).String()}
	return m.startUpload(ctx, io.NopCloser(bytes.NewReader(data)), int64(len(data)), destination, opts)
}

func (m *Manager) startUpload(ctx context.Context, src io.ReadCloser, size int64, destination string, opts objstore.WriterOptions) (string, error) {
	opCtx, cancel := detach(ctx)
	sink, err := m.store.NewWriter(opCtx, destination, opts)
	if err != nil {
		cancel()
		fmerrors.Ignore(m.logger, "close upload source", destination, src.Close())
		return "", err
	}

	id, release := m.begin(optypes.KindUpload, destination, cancel)
	m.run(opCtx, id, release, transfer.Job{
		Kind:   optypes.KindUpload,
		Name:   destination,
		Total:  size,
		Source: src,
		Sink:   sink,
	})
	return id, nil
}

// StartDownload copies an object to a local path in the background and
// returns the operation id. Missing parent directories are created. The done
// event carries SavedTo = localPath.
func (m *Manager) StartDownload(ctx context.Context, name, localPath string) (string, error) {
	if err := validation.ValidateObjectName(name); err != nil {
		return "", err
	}
	info, err := m.store.Metadata(ctx, name)
	if err != nil {
		return "", err
	}

	opCtx, cancel := detach(ctx)
	src, err := m.store.NewReader(opCtx, name)
	if err != nil {
		cancel()
		return "", err
	}
	file, err := m.fs.Create(localPath)
	if err != nil {
		cancel()
		fmerrors.Ignore(m.logger, "close object reader", name, src.Close())
		return "", err
	}

	id, release := m.begin(optypes.KindDownload, name, cancel)
	m.run(opCtx, id, release, transfer.Job{
		Kind:    optypes.KindDownload,
		Name:    name,
		Total:   info.Size,
		Source:  src,
		Sink:    transfer.NewFileSink(file),
		SavedTo: localPath,
	})
	return id, nil
}

// run executes job on its own goroutine. The registry entry is removed
// before the terminal event is published.
func (m *Manager) run(ctx context.Context, id string, release func(), job transfer.Job) {
	started := time.Now()
	job.OpID = id
	job.OnFinish = func(outcome transfer.Outcome, transferred int64) {
		m.metrics.Transferred(job.Kind, transferred)
		m.finish(id, job.Kind, string(outcome), started)
	}

	m.logger.DebugContext(ctx, "transfer started",
		slog.String("op_id", id),
		slog.String("kind", string(job.Kind)),
		slog.String("name", job.Name),
		slog.Int64("total", job.Total),
	)

	go func() {
		defer release()
		m.pipeline.Run(ctx, job)
	}()
}
