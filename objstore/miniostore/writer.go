package miniostore

import (
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/yarokim83/filemanager/objstore"
)

const (
	// sniffLen is how much data is held back to detect the content type
	// before the upload starts.
	sniffLen = 512

	// partSize bounds the buffer minio-go allocates for a stream of unknown
	// length.
	partSize uint64 = 16 * 1024 * 1024
)

var errWriterClosed = errors.New("writer already closed")

// writer streams into PutObject through a pipe. The upload starts once
// enough data has arrived to detect its content type, or on Close.
type writer struct {
	ctx         context.Context
	store       *Store
	name        string
	contentType string

	head   []byte
	pw     *io.PipeWriter
	result chan error
	closed bool
}

func newWriter(ctx context.Context, s *Store, name string, opts objstore.WriterOptions) *writer {
	return &writer{
		ctx:         ctx,
		store:       s,
		name:        name,
		contentType: opts.ContentType,
	}
}

func (w *writer) start() error {
	contentType := w.contentType
	if contentType == "" {
		contentType = detectContentType(w.head)
	}

	pr, pw := io.Pipe()
	w.pw = pw
	w.result = make(chan error, 1)

	go func() {
		_, err := w.store.client.PutObject(w.ctx, w.store.bucket, w.name, pr, -1,
			minio.PutObjectOptions{ContentType: contentType, PartSize: partSize})
		// Unblock a writer stuck on a failed upload.
		_ = pr.CloseWithError(err)
		w.result <- err
	}()

	head := w.head
	w.head = nil
	if len(head) == 0 {
		return nil
	}
	_, err := pw.Write(head)
	return err
}

// Write sends p to the upload.
func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	if w.pw == nil {
		w.head = append(w.head, p...)
		if len(w.head) < sniffLen {
			return len(p), nil
		}
		if err := w.start(); err != nil {
			return 0, translateError("upload", w.name, err)
		}
		return len(p), nil
	}
	n, err := w.pw.Write(p)
	if err != nil {
		return n, translateError("upload", w.name, err)
	}
	return n, nil
}

// Close finishes the upload and waits for the server to confirm it.
func (w *writer) Close() error {
	if w.closed {
		return errWriterClosed
	}
	w.closed = true

	if w.pw == nil {
		if err := w.start(); err != nil {
			_ = w.pw.CloseWithError(err)
			<-w.result
			return translateError("upload", w.name, err)
		}
	}
	_ = w.pw.Close()
	if err := <-w.result; err != nil {
		return translateError("upload", w.name, err)
	}
	return nil
}

// CloseWithError aborts the upload. PutObject sees the error on its next
// read and does not commit the object.
func (w *writer) CloseWithError(err error) error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.pw == nil {
		return nil
	}
	if err == nil {
		err = io.ErrClosedPipe
	}
	_ = w.pw.CloseWithError(err)
	<-w.result
	return nil
}
