package s3store

import (
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

const (
	// DefaultPartSize is the multipart threshold and part size.
	DefaultPartSize int64 = 8 * 1024 * 1024

	// MinPartSize is the smallest part size S3 accepts for non-final parts.
	MinPartSize int64 = 5 * 1024 * 1024
)

// Config holds the settings used to build a Store.
type Config struct {
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	MaxRetries      int
	Timeout         time.Duration
	PartSize        int64
	AccessKeyID     string
	SecretAccessKey string
	AWSConfig       *aws.Config
	Logger          *slog.Logger
}

// Option configures a Store.
type Option func(*Config)

// WithRegion sets the AWS region.
// If not specified, uses the region from the default credential chain.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(forcePathStyle bool) Option {
	return func(c *Config) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the maximum number of SDK attempts per request.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the HTTP client timeout for individual requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithPartSize sets the multipart part size. Values below MinPartSize are raised to it.
func WithPartSize(partSize int64) Option {
	return func(c *Config) {
		if partSize > 0 {
			c.PartSize = max(partSize, MinPartSize)
		}
	}
}

// WithStaticCredentials uses a fixed access key instead of the default chain.
func WithStaticCredentials(accessKeyID, secretAccessKey string) Option {
	return func(c *Config) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
	}
}

// WithAWSConfig provides a fully built AWS configuration, bypassing
// default configuration loading.
func WithAWSConfig(cfg *aws.Config) Option {
	return func(c *Config) {
		c.AWSConfig = cfg
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
