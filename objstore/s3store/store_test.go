package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/testutil"
	"github.com/yarokim83/filemanager/objstore"
)

const testBucket = "test-bucket"

func headMissing(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return nil, &types.NotFound{}
}

func TestNew_EmptyBucket(t *testing.T) {
	store, err := New(context.Background(), "")
	assert.Nil(t, store)
	assert.True(t, fmerrors.IsInvalidInput(err))
}

func TestNew_WithAWSConfig(t *testing.T) {
	cfg := aws.Config{}
	store, err := New(context.Background(), testBucket,
		WithAWSConfig(&cfg),
		WithEndpoint("http://localhost:4566"),
		WithForcePathStyle(true),
		WithTimeout(time.Second),
		WithPartSize(1),
	)
	require.NoError(t, err)
	assert.Equal(t, testBucket, store.Bucket())
	assert.Equal(t, MinPartSize, store.partSize)
}

func TestExists(t *testing.T) {
	tests := []struct {
		name    string
		head    func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
		want    bool
		wantErr error
	}{
		{
			name: "present",
			want: true,
		},
		{
			name: "missing",
			head: headMissing,
			want: false,
		},
		{
			name: "api not found code",
			head: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
				return nil, &types.NoSuchKey{}
			},
			want: false,
		},
		{
			name: "transport failure",
			head: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
				return nil, errors.New("connection reset")
			},
			wantErr: fmerrors.ErrIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockS3Client{HeadObjectFunc: tt.head}
			store := NewWithClient(mock, testBucket)

			got, err := store.Exists(context.Background(), "a.txt")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestList(t *testing.T) {
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var got *s3.ListObjectsV2Input

	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			got = in
			return &s3.ListObjectsV2Output{
				Contents: []types.Object{
					{Key: aws.String("docs/a.txt"), Size: aws.Int64(3), LastModified: aws.Time(updated)},
				},
				CommonPrefixes:        []types.CommonPrefix{{Prefix: aws.String("docs/sub/")}},
				IsTruncated:           aws.Bool(true),
				NextContinuationToken: aws.String("next"),
			}, nil
		},
	}
	store := NewWithClient(mock, testBucket)

	page, err := store.List(context.Background(), objstore.ListInput{
		Prefix:     "docs/",
		Delimiter:  "/",
		PageToken:  "tok",
		MaxResults: 5000,
	})
	require.NoError(t, err)

	assert.Equal(t, "docs/", aws.ToString(got.Prefix))
	assert.Equal(t, "/", aws.ToString(got.Delimiter))
	assert.Equal(t, "tok", aws.ToString(got.ContinuationToken))
	assert.Equal(t, int32(objstore.DefaultPageSize), aws.ToInt32(got.MaxKeys))

	require.Len(t, page.Items, 1)
	assert.Equal(t, objstore.ObjectInfo{Name: "docs/a.txt", Size: 3, Updated: updated}, page.Items[0])
	assert.Equal(t, []string{"docs/sub/"}, page.Prefixes)
	assert.Equal(t, "next", page.NextPageToken)
}

func TestList_LastPageHasNoToken(t *testing.T) {
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			return &s3.ListObjectsV2Output{
				IsTruncated:           aws.Bool(false),
				NextContinuationToken: aws.String("ignored"),
			}, nil
		},
	}
	page, err := NewWithClient(mock, testBucket).List(context.Background(), objstore.ListInput{})
	require.NoError(t, err)
	assert.Empty(t, page.NextPageToken)
	assert.Empty(t, page.Items)
}

func TestMetadata(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
				return &s3.HeadObjectOutput{
					ContentLength: aws.Int64(42),
					ContentType:   aws.String("text/plain"),
				}, nil
			},
		}
		info, err := NewWithClient(mock, testBucket).Metadata(context.Background(), "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "a.txt", info.Name)
		assert.Equal(t, int64(42), info.Size)
		assert.Equal(t, "text/plain", info.ContentType)
	})

	t.Run("missing", func(t *testing.T) {
		mock := &testutil.MockS3Client{HeadObjectFunc: headMissing}
		_, err := NewWithClient(mock, testBucket).Metadata(context.Background(), "a.txt")
		assert.True(t, fmerrors.IsNotFound(err))
	})
}

func TestCopy(t *testing.T) {
	t.Run("escapes source", func(t *testing.T) {
		var got *s3.CopyObjectInput
		mock := &testutil.MockS3Client{
			CopyObjectFunc: func(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
				got = in
				return &s3.CopyObjectOutput{}, nil
			},
		}
		err := NewWithClient(mock, testBucket).Copy(context.Background(), "my docs/a b.txt", "dest.txt")
		require.NoError(t, err)
		assert.Equal(t, testBucket+"/my%20docs/a%20b.txt", aws.ToString(got.CopySource))
		assert.Equal(t, "dest.txt", aws.ToString(got.Key))
	})

	t.Run("missing source", func(t *testing.T) {
		copied := false
		mock := &testutil.MockS3Client{
			HeadObjectFunc: headMissing,
			CopyObjectFunc: func(context.Context, *s3.CopyObjectInput, ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
				copied = true
				return &s3.CopyObjectOutput{}, nil
			},
		}
		err := NewWithClient(mock, testBucket).Copy(context.Background(), "a.txt", "b.txt")
		assert.True(t, fmerrors.IsNotFound(err))
		assert.False(t, copied)
	})
}

func TestDelete(t *testing.T) {
	t.Run("strict delete of missing object", func(t *testing.T) {
		mock := &testutil.MockS3Client{HeadObjectFunc: headMissing}
		err := NewWithClient(mock, testBucket).Delete(context.Background(), "a.txt", false)
		assert.True(t, fmerrors.IsNotFound(err))
	})

	t.Run("lenient delete skips the probe", func(t *testing.T) {
		probed := false
		mock := &testutil.MockS3Client{
			HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
				probed = true
				return nil, &types.NotFound{}
			},
		}
		err := NewWithClient(mock, testBucket).Delete(context.Background(), "a.txt", true)
		require.NoError(t, err)
		assert.False(t, probed)
	})
}

func TestDeleteAllWithPrefix(t *testing.T) {
	const total = 2500
	keys := make([]types.Object, 0, total)
	for i := range total {
		keys = append(keys, types.Object{Key: aws.String(fmt.Sprintf("p/%04d", i)), Size: aws.Int64(1)})
	}

	var batches []int
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			assert.Equal(t, "p/", aws.ToString(in.Prefix))
			return &s3.ListObjectsV2Output{Contents: keys}, nil
		},
		DeleteObjectsFunc: func(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
			batches = append(batches, len(in.Delete.Objects))
			switch len(batches) {
			case 2:
				return nil, errors.New("throttled")
			case 3:
				return &s3.DeleteObjectsOutput{
					Errors: []types.Error{{Key: in.Delete.Objects[0].Key, Code: aws.String("AccessDenied"), Message: aws.String("no")}},
				}, nil
			}
			return &s3.DeleteObjectsOutput{}, nil
		},
	}

	report, err := NewWithClient(mock, testBucket).DeleteAllWithPrefix(context.Background(), "p/")
	require.NoError(t, err)

	assert.Equal(t, []int{1000, 1000, 500}, batches)
	assert.Equal(t, 1000+499, report.Deleted)
	assert.Len(t, report.Errors, 1001)
	assert.ErrorIs(t, report.Err(), fmerrors.ErrIO)
}

func TestWriter_SmallObjectUsesPutObject(t *testing.T) {
	var put *s3.PutObjectInput
	var body []byte
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			put = in
			var err error
			body, err = io.ReadAll(in.Body)
			return &s3.PutObjectOutput{}, err
		},
		CreateMultipartUploadFunc: func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			t.Fatal("multipart upload not expected")
			return nil, nil
		},
	}
	store := NewWithClient(mock, testBucket)

	w, err := store.NewWriter(context.Background(), "notes.txt", objstore.WriterOptions{ContentType: "text/plain"})
	require.NoError(t, err)
	_, err = io.Copy(w, strings.NewReader("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "text/plain", aws.ToString(put.ContentType))
	assert.Error(t, w.Close())
}

func TestWriter_Multipart(t *testing.T) {
	var parts []int
	var completed *s3.CompleteMultipartUploadInput
	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("up-1")}, nil
		},
		UploadPartFunc: func(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			assert.Equal(t, "up-1", aws.ToString(in.UploadId))
			parts = append(parts, int(aws.ToInt64(in.ContentLength)))
			return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf("etag-%d", aws.ToInt32(in.PartNumber)))}, nil
		},
		CompleteMultipartUploadFunc: func(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			completed = in
			return &s3.CompleteMultipartUploadOutput{}, nil
		},
	}
	store := NewWithClient(mock, testBucket, WithPartSize(MinPartSize))

	data := bytes.Repeat([]byte{0xAB}, int(2*MinPartSize)+100)
	w, err := store.NewWriter(context.Background(), "big.bin", objstore.WriterOptions{})
	require.NoError(t, err)
	_, err = io.Copy(w, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []int{int(MinPartSize), int(MinPartSize), 100}, parts)
	require.NotNil(t, completed)
	require.Len(t, completed.MultipartUpload.Parts, 3)
	assert.Equal(t, "etag-3", aws.ToString(completed.MultipartUpload.Parts[2].ETag))
}

func TestWriter_CloseWithErrorAbortsMultipart(t *testing.T) {
	aborted := false
	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("up-2")}, nil
		},
		AbortMultipartUploadFunc: func(_ context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			aborted = aws.ToString(in.UploadId) == "up-2"
			return &s3.AbortMultipartUploadOutput{}, nil
		},
		CompleteMultipartUploadFunc: func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			t.Fatal("complete not expected")
			return nil, nil
		},
	}
	store := NewWithClient(mock, testBucket, WithPartSize(MinPartSize))

	ctx, cancel := context.WithCancel(context.Background())
	w, err := store.NewWriter(ctx, "big.bin", objstore.WriterOptions{})
	require.NoError(t, err)
	_, err = w.Write(make([]byte, MinPartSize))
	require.NoError(t, err)

	cancel()
	require.NoError(t, w.CloseWithError(context.Canceled))
	assert.True(t, aborted)
}

func TestWriter_PartFailureAborts(t *testing.T) {
	aborted := false
	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("up-3")}, nil
		},
		UploadPartFunc: func(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			return nil, errors.New("broken pipe")
		},
		AbortMultipartUploadFunc: func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			aborted = true
			return &s3.AbortMultipartUploadOutput{}, nil
		},
	}
	store := NewWithClient(mock, testBucket, WithPartSize(MinPartSize))

	w, err := store.NewWriter(context.Background(), "big.bin", objstore.WriterOptions{})
	require.NoError(t, err)
	_, err = w.Write(make([]byte, MinPartSize))
	assert.ErrorIs(t, err, fmerrors.ErrIO)

	_, err = w.Write([]byte("more"))
	assert.Error(t, err)

	assert.ErrorIs(t, w.Close(), fmerrors.ErrIO)
	assert.True(t, aborted)
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name string
		key  string
		data []byte
		want string
	}{
		{name: "sniffed", key: "image", data: png, want: "image/png"},
		{name: "extension fallback", key: "page.html", data: nil, want: "text/html; charset=utf-8"},
		{name: "unknown", key: "blob", data: nil, want: DefaultContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectContentType(tt.key, tt.data))
		})
	}
}

func TestConvertError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNot error
	}{
		{name: "no such key", err: &types.NoSuchKey{}, wantIs: fmerrors.ErrNotFound},
		{name: "no such bucket", err: &types.NoSuchBucket{}, wantIs: fmerrors.ErrNotFound},
		{name: "canceled", err: context.Canceled, wantIs: context.Canceled, wantNot: fmerrors.ErrIO},
		{name: "other", err: errors.New("boom"), wantIs: fmerrors.ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := convertError("op", "key", tt.err)
			assert.ErrorIs(t, err, tt.wantIs)
			if tt.wantNot != nil {
				assert.NotErrorIs(t, err, tt.wantNot)
			}
		})
	}
	assert.NoError(t, convertError("op", "key", nil))
}
