package s3store

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"

	fmerrors "github.com/yarokim83/filemanager/errors"
)

// DefaultContentType is used when neither the data nor the name reveal one.
const DefaultContentType = "application/octet-stream"

// isNotFound reports whether err is S3's way of saying the key is missing.
// HeadObject returns a bare 404 (NotFound) while GetObject returns NoSuchKey.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// convertError maps AWS SDK errors onto the file manager's sentinels.
func convertError(op, key string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isNotFound(err):
		return fmerrors.NewObjectError(op, key, fmt.Errorf("%w: %w", fmerrors.ErrNotFound, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmerrors.NewObjectError(op, key, err)
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return fmerrors.NewObjectError(op, key, fmt.Errorf("%w: bucket: %w", fmerrors.ErrNotFound, err))
	}

	return fmerrors.NewObjectError(op, key, fmt.Errorf("%w: %w", fmerrors.ErrIO, err))
}

// detectContentType sniffs data with mimetype, falling back to the name's
// extension.
func detectContentType(name string, data []byte) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil && !mt.Is(DefaultContentType) {
			return mt.String()
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return DefaultContentType
}
