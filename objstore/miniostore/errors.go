package miniostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"

	fmerrors "github.com/yarokim83/filemanager/errors"
)

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// translateError maps minio errors onto the file manager's sentinels.
func translateError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFound(err):
		return fmerrors.NewObjectError(op, key, fmt.Errorf("%w: %w", fmerrors.ErrNotFound, err))
	case minio.ToErrorResponse(err).Code == "NoSuchBucket":
		return fmerrors.NewObjectError(op, key, fmt.Errorf("%w: bucket: %w", fmerrors.ErrNotFound, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmerrors.NewObjectError(op, key, err)
	}
	return fmerrors.NewObjectError(op, key, fmt.Errorf("%w: %w", fmerrors.ErrIO, err))
}

func detectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}
