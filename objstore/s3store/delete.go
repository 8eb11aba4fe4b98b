package s3store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/objstore"
)

// maxBatchSize is the S3 limit on keys per DeleteObjects request.
const maxBatchSize = 1000

// batchDeleter removes keys in DeleteObjects batches.
type batchDeleter struct {
	client       S3API
	bucket       string
	maxBatchSize int
}

func newBatchDeleter(client S3API, bucket string) *batchDeleter {
	return &batchDeleter{
		client:       client,
		bucket:       bucket,
		maxBatchSize: maxBatchSize,
	}
}

// deleteKeys deletes keys batch by batch. A failed batch is recorded against
// each of its keys and the remaining batches still run.
func (b *batchDeleter) deleteKeys(ctx context.Context, keys []string) *objstore.DeleteReport {
	report := &objstore.DeleteReport{}

	for i := 0; i < len(keys); i += b.maxBatchSize {
		end := min(i+b.maxBatchSize, len(keys))
		batch := keys[i:end]

		deleted, failures, err := b.deleteBatch(ctx, batch)
		if err != nil {
			for _, key := range batch {
				report.Errors = append(report.Errors, objstore.DeleteError{
					Key: key,
					Err: convertError("deleteAll", key, err),
				})
			}
			continue
		}

		report.Deleted += deleted
		report.Errors = append(report.Errors, failures...)
	}

	return report
}

func (b *batchDeleter) deleteBatch(ctx context.Context, keys []string) (int, []objstore.DeleteError, error) {
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}

	output, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &types.Delete{
			Objects: ids,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("delete objects: %w", err)
	}

	failures := make([]objstore.DeleteError, 0, len(output.Errors))
	for _, e := range output.Errors {
		key := aws.ToString(e.Key)
		failures = append(failures, objstore.DeleteError{
			Key: key,
			Err: fmerrors.NewObjectError("deleteAll", key,
				fmt.Errorf("%w: %w", fmerrors.ErrIO,
					errors.New(aws.ToString(e.Code)+": "+aws.ToString(e.Message)))),
		})
	}
	return len(keys) - len(failures), failures, nil
}
