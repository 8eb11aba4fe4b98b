package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/objstore"
)

var errWriterClosed = errors.New("writer already closed")

// writer streams an object to S3. Up to one part of data is buffered; if the
// stream stays below that size the object is stored with PutObject on Close,
// otherwise each full buffer is sent as a multipart upload part.
type writer struct {
	ctx         context.Context
	store       *Store
	key         string
	contentType string

	buf      bytes.Buffer
	uploadID string
	parts    []types.CompletedPart
	closed   bool
	err      error
}

func newWriter(ctx context.Context, s *Store, key string, opts objstore.WriterOptions) *writer {
	return &writer{
		ctx:         ctx,
		store:       s,
		key:         key,
		contentType: opts.ContentType,
	}
}

// Write buffers p and flushes full parts.
func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	if w.err != nil {
		return 0, w.err
	}

	n, _ := w.buf.Write(p)
	for int64(w.buf.Len()) >= w.store.partSize {
		if err := w.flushPart(w.buf.Next(int(w.store.partSize))); err != nil {
			w.err = err
			return n, err
		}
	}
	return n, nil
}

// Close commits the object.
func (w *writer) Close() error {
	if w.closed {
		return errWriterClosed
	}
	w.closed = true

	if w.err != nil {
		w.abort()
		return w.err
	}

	if w.uploadID == "" {
		return w.store.Save(w.ctx, w.key, w.buf.Bytes(), objstore.WriterOptions{ContentType: w.contentType})
	}

	if w.buf.Len() > 0 {
		if err := w.flushPart(w.buf.Bytes()); err != nil {
			w.abort()
			return err
		}
	}

	_, err := w.store.client.CompleteMultipartUpload(w.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(w.store.bucket),
		Key:             aws.String(w.key),
		UploadId:        aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: w.parts},
	})
	if err != nil {
		w.abort()
		return convertError("upload", w.key, err)
	}
	return nil
}

// CloseWithError abandons the upload. Nothing is stored for single-request
// uploads; a started multipart upload is aborted.
func (w *writer) CloseWithError(err error) error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.store.logger.Debug("upload abandoned",
		slog.String("key", w.key),
		slog.Any("cause", err),
	)
	return w.abort()
}

func (w *writer) flushPart(data []byte) error {
	if w.uploadID == "" {
		if err := w.createUpload(data); err != nil {
			return err
		}
	}

	partNumber := int32(len(w.parts) + 1)
	output, err := w.store.client.UploadPart(w.ctx, &s3.UploadPartInput{
		Bucket:        aws.String(w.store.bucket),
		Key:           aws.String(w.key),
		UploadId:      aws.String(w.uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return convertError("upload", w.key, fmt.Errorf("part %d: %w", partNumber, err))
	}

	w.parts = append(w.parts, types.CompletedPart{
		ETag:       output.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	return nil
}

func (w *writer) createUpload(firstPart []byte) error {
	contentType := w.contentType
	if contentType == "" {
		contentType = detectContentType(w.key, firstPart)
	}

	output, err := w.store.client.CreateMultipartUpload(w.ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(w.store.bucket),
		Key:         aws.String(w.key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return convertError("upload", w.key, err)
	}
	w.uploadID = aws.ToString(output.UploadId)
	return nil
}

func (w *writer) abort() error {
	if w.uploadID == "" {
		return nil
	}
	// The owning context may already be canceled; the abort must still go out.
	ctx := context.WithoutCancel(w.ctx)
	_, err := w.store.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.store.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
	if err != nil {
		return fmerrors.NewObjectError("abort", w.key, err)
	}
	return nil
}
