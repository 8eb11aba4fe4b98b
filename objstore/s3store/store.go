// Package s3store implements objstore.Store on Amazon S3 and S3-compatible
// services using the AWS SDK for Go v2.
package s3store

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/objstore"
)

// Store is an objstore.Store backed by one S3 bucket.
type Store struct {
	client   S3API
	bucket   string
	partSize int64
	logger   *slog.Logger
}

var _ objstore.Store = (*Store)(nil)

// New creates a Store for bucket. It loads AWS credentials using the default
// credential chain unless WithStaticCredentials or WithAWSConfig is given.
//
// Example:
//
//	store, err := s3store.New(ctx, "my-bucket",
//	    s3store.WithRegion("eu-west-1"),
//	    s3store.WithMaxRetries(3),
//	)
func New(ctx context.Context, bucket string, opts ...Option) (*Store, error) {
	cfg := &Config{
		MaxRetries: 3,
		PartSize:   DefaultPartSize,
		Logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if bucket == "" {
		return nil, fmerrors.NewError("s3store.new", fmerrors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}

	var awsCfg aws.Config
	if cfg.AWSConfig != nil {
		awsCfg = *cfg.AWSConfig
	} else {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AccessKeyID != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			))
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmerrors.NewError("s3store.new", err)
		}
		awsCfg = loaded
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}
	if cfg.MaxRetries > 0 {
		awsCfg.RetryMaxAttempts = cfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if cfg.Timeout > 0 {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	cfg.Logger.Debug("s3 store configured",
		slog.String("bucket", bucket),
		slog.String("region", awsCfg.Region),
		slog.String("endpoint", cfg.Endpoint),
	)

	return &Store{
		client:   s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:   bucket,
		partSize: cfg.PartSize,
		logger:   cfg.Logger,
	}, nil
}

// NewWithClient creates a Store around an existing S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(client S3API, bucket string, opts ...Option) *Store {
	cfg := &Config{
		PartSize: DefaultPartSize,
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Store{
		client:   client,
		bucket:   bucket,
		partSize: cfg.PartSize,
		logger:   cfg.Logger,
	}
}

// Bucket returns the bucket the store operates on.
func (s *Store) Bucket() string {
	return s.bucket
}

// Exists reports whether name exists.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, convertError("exists", name, err)
	}
	return true, nil
}

// List returns one page of objects.
func (s *Store) List(ctx context.Context, in objstore.ListInput) (*objstore.ListPage, error) {
	pageSize := in.MaxResults
	if pageSize <= 0 || pageSize > objstore.DefaultPageSize {
		pageSize = objstore.DefaultPageSize
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(int32(pageSize)),
	}
	if in.Prefix != "" {
		input.Prefix = aws.String(in.Prefix)
	}
	if in.Delimiter != "" {
		input.Delimiter = aws.String(in.Delimiter)
	}
	if in.PageToken != "" {
		input.ContinuationToken = aws.String(in.PageToken)
	}

	output, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, convertError("list", in.Prefix, err)
	}

	page := &objstore.ListPage{
		Items: make([]objstore.ObjectInfo, 0, len(output.Contents)),
	}
	for _, obj := range output.Contents {
		page.Items = append(page.Items, objstore.ObjectInfo{
			Name:    aws.ToString(obj.Key),
			Size:    aws.ToInt64(obj.Size),
			Updated: aws.ToTime(obj.LastModified),
		})
	}
	for _, p := range output.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, aws.ToString(p.Prefix))
	}
	if aws.ToBool(output.IsTruncated) {
		page.NextPageToken = aws.ToString(output.NextContinuationToken)
	}
	return page, nil
}

// Metadata returns the stored attributes of name.
func (s *Store) Metadata(ctx context.Context, name string) (*objstore.ObjectInfo, error) {
	output, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, convertError("metadata", name, err)
	}
	return &objstore.ObjectInfo{
		Name:        name,
		Size:        aws.ToInt64(output.ContentLength),
		Updated:     aws.ToTime(output.LastModified),
		ContentType: aws.ToString(output.ContentType),
	}, nil
}

// Copy performs a server-side copy of src to dest.
func (s *Store) Copy(ctx context.Context, src, dest string) error {
	// CopyObject reports a missing source inconsistently across S3
	// implementations, so probe it first.
	exists, err := s.Exists(ctx, src)
	if err != nil {
		return err
	}
	if !exists {
		return fmerrors.NewObjectError("copy", src, fmerrors.ErrNotFound)
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dest),
		CopySource: aws.String(s.copySource(src)),
	})
	if err != nil {
		return convertError("copy", src, err)
	}
	return nil
}

// Delete removes name.
func (s *Store) Delete(ctx context.Context, name string, ignoreNotFound bool) error {
	// DeleteObject succeeds for missing keys, so a strict delete must probe.
	if !ignoreNotFound {
		exists, err := s.Exists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmerrors.NewObjectError("delete", name, fmerrors.ErrNotFound)
		}
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if ignoreNotFound && isNotFound(err) {
			return nil
		}
		return convertError("delete", name, err)
	}
	return nil
}

// DeleteAllWithPrefix removes every object under prefix.
func (s *Store) DeleteAllWithPrefix(ctx context.Context, prefix string) (*objstore.DeleteReport, error) {
	var keys []string
	err := objstore.Walk(ctx, s, prefix, func(obj objstore.ObjectInfo) error {
		keys = append(keys, obj.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := newBatchDeleter(s.client, s.bucket).deleteKeys(ctx, keys)
	s.logger.DebugContext(ctx, "deleted prefix",
		slog.String("prefix", prefix),
		slog.Int("deleted", report.Deleted),
		slog.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// NewReader opens a stream over the contents of name.
func (s *Store) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, convertError("read", name, err)
	}
	return output.Body, nil
}

// NewWriter opens a streaming upload of name. Data is buffered until it
// reaches the part size, after which the upload continues as a multipart
// upload.
func (s *Store) NewWriter(ctx context.Context, name string, opts objstore.WriterOptions) (objstore.Writer, error) {
	return newWriter(ctx, s, name, opts), nil
}

// Save stores data as name with a single PutObject request.
func (s *Store) Save(ctx context.Context, name string, data []byte, opts objstore.WriterOptions) error {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(name, data)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return convertError("save", name, err)
	}
	return nil
}

func (s *Store) copySource(key string) string {
	segments := strings.Split(key, objstore.Separator)
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.bucket + "/" + strings.Join(segments, objstore.Separator)
}
