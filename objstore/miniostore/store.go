// Package miniostore implements objstore.Store on MinIO and other
// S3-compatible servers using minio-go.
package miniostore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/objstore"
)

// Store is an objstore.Store backed by one MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ objstore.Store = (*Store)(nil)

// Config holds the connection settings for New.
type Config struct {
	Region          string
	Insecure        bool
	AccessKeyID     string
	SecretAccessKey string
	Logger          *slog.Logger
}

// Option configures a Store.
type Option func(*Config)

// WithRegion sets the bucket region.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithInsecure disables TLS.
func WithInsecure(insecure bool) Option {
	return func(c *Config) {
		c.Insecure = insecure
	}
}

// WithStaticCredentials uses a fixed access key instead of the environment.
func WithStaticCredentials(accessKeyID, secretAccessKey string) Option {
	return func(c *Config) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// New connects to the server at endpoint (host:port, no scheme). Without
// static credentials the MINIO_* and AWS_* environment variables are used.
func New(endpoint, bucket string, opts ...Option) (*Store, error) {
	cfg := &Config{Logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(cfg)
	}

	if endpoint == "" {
		return nil, fmerrors.NewError("miniostore.new", fmerrors.ErrInvalidInput).
			WithMessage("endpoint cannot be empty")
	}
	if bucket == "" {
		return nil, fmerrors.NewError("miniostore.new", fmerrors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}

	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvMinio{},
		&credentials.EnvAWS{},
	})
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmerrors.NewError("miniostore.new", err)
	}

	return NewWithClient(client, bucket, WithLogger(cfg.Logger)), nil
}

// NewWithClient wraps an existing minio client.
func NewWithClient(client *minio.Client, bucket string, opts ...Option) *Store {
	cfg := &Config{Logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Store{client: client, bucket: bucket, logger: cfg.Logger}
}

// Exists reports whether name exists.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, translateError("exists", name, err)
	}
	return true, nil
}

// List returns one page of objects. minio-go lists through a channel without
// continuation tokens, so the page token is the last key of the previous page
// and is passed back as StartAfter. Only "/" is supported as delimiter.
func (s *Store) List(ctx context.Context, in objstore.ListInput) (*objstore.ListPage, error) {
	limit := in.MaxResults
	if limit <= 0 || limit > objstore.DefaultPageSize {
		limit = objstore.DefaultPageSize
	}
	if in.Delimiter != "" && in.Delimiter != objstore.Separator {
		return nil, fmerrors.NewObjectError("list", in.Prefix, fmerrors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unsupported delimiter %q", in.Delimiter))
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{
		Prefix:     in.Prefix,
		Recursive:  in.Delimiter == "",
		StartAfter: in.PageToken,
	})

	page := &objstore.ListPage{}
	count := 0
	var last string
	for obj := range objects {
		if obj.Err != nil {
			return nil, translateError("list", in.Prefix, obj.Err)
		}
		if count == limit {
			page.NextPageToken = last
			break
		}
		count++
		last = obj.Key

		if isCommonPrefix(obj) {
			page.Prefixes = append(page.Prefixes, obj.Key)
			continue
		}
		page.Items = append(page.Items, objstore.ObjectInfo{
			Name:        obj.Key,
			Size:        obj.Size,
			Updated:     obj.LastModified,
			ContentType: obj.ContentType,
		})
	}
	return page, nil
}

// Metadata returns the attributes of name.
func (s *Store) Metadata(ctx context.Context, name string) (*objstore.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		return nil, translateError("metadata", name, err)
	}
	return &objstore.ObjectInfo{
		Name:        name,
		Size:        info.Size,
		Updated:     info.LastModified,
		ContentType: info.ContentType,
	}, nil
}

// Copy performs a server-side copy of src to dest.
func (s *Store) Copy(ctx context.Context, src, dest string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dest},
		minio.CopySrcOptions{Bucket: s.bucket, Object: src},
	)
	if err != nil {
		return translateError("copy", src, err)
	}
	return nil
}

// Delete removes name.
func (s *Store) Delete(ctx context.Context, name string, ignoreNotFound bool) error {
	// RemoveObject succeeds for missing keys, so a strict delete must probe.
	if !ignoreNotFound {
		exists, err := s.Exists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmerrors.NewObjectError("delete", name, fmerrors.ErrNotFound)
		}
	}

	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		if ignoreNotFound && isNotFound(err) {
			return nil
		}
		return translateError("delete", name, err)
	}
	return nil
}

// DeleteAllWithPrefix removes every object under prefix.
func (s *Store) DeleteAllWithPrefix(ctx context.Context, prefix string) (*objstore.DeleteReport, error) {
	listed := make(chan minio.ObjectInfo)
	var listErr error
	var total int

	go func() {
		defer close(listed)
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			total++
			select {
			case listed <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	report := &objstore.DeleteReport{}
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, listed, minio.RemoveObjectsOptions{}) {
		report.Errors = append(report.Errors, objstore.DeleteError{
			Key: rerr.ObjectName,
			Err: translateError("deleteAll", rerr.ObjectName, rerr.Err),
		})
	}

	// RemoveObjects has drained listed, so the producer has finished.
	if listErr != nil {
		return nil, translateError("deleteAll", prefix, listErr)
	}
	report.Deleted = total - len(report.Errors)
	s.logger.DebugContext(ctx, "deleted prefix",
		slog.String("prefix", prefix),
		slog.Int("deleted", report.Deleted),
	)
	return report, nil
}

// NewReader opens a stream over name.
func (s *Store) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError("read", name, err)
	}
	// GetObject is lazy; Stat surfaces a missing object before any Read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translateError("read", name, err)
	}
	return obj, nil
}

// NewWriter opens a streaming upload of name.
func (s *Store) NewWriter(ctx context.Context, name string, opts objstore.WriterOptions) (objstore.Writer, error) {
	return newWriter(ctx, s, name, opts), nil
}

// Save stores data as name.
func (s *Store) Save(ctx context.Context, name string, data []byte, opts objstore.WriterOptions) error {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(data)
	}
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return translateError("save", name, err)
	}
	return nil
}

func isCommonPrefix(obj minio.ObjectInfo) bool {
	return strings.HasSuffix(obj.Key, objstore.Separator) && obj.ETag == "" && obj.LastModified.IsZero()
}
