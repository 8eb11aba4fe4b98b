// Package config loads file manager settings from defaults, an optional YAML
// file, the environment and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"time"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/validation"
	"github.com/yarokim83/filemanager/optypes"
)

// Supported storage backends.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// Progress rendering modes for the CLI.
const (
	ProgressAuto  = "auto"
	ProgressTTY   = "tty"
	ProgressPlain = "plain"
)

// DefaultBucket is used when no bucket is configured.
const DefaultBucket = "hpntfiles"

// Config holds every setting. Use mapstructure tags for Viper unmarshaling.
type Config struct {
	Bucket         string        `mapstructure:"bucket"`
	Backend        string        `mapstructure:"backend"`
	Region         string        `mapstructure:"region"`
	Endpoint       string        `mapstructure:"endpoint"`
	ForcePathStyle bool          `mapstructure:"force_path_style"`
	Insecure       bool          `mapstructure:"insecure"`
	MaxRetries     int           `mapstructure:"max_retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
	PartSize       int64         `mapstructure:"part_size"`
	Cleanup        string        `mapstructure:"cleanup"`
	Progress       string        `mapstructure:"progress"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Bucket:     DefaultBucket,
		Backend:    BackendS3,
		MaxRetries: 3,
		PartSize:   8 * 1024 * 1024,
		Cleanup:    string(optypes.CleanupCopied),
		Progress:   ProgressAuto,
	}
}

// CleanupPolicy returns the parsed cleanup policy.
func (c *Config) CleanupPolicy() optypes.CleanupPolicy {
	policy, err := optypes.ParseCleanupPolicy(c.Cleanup)
	if err != nil {
		return optypes.CleanupCopied
	}
	return policy
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	const op = "validateConfig"

	if err := validation.ValidateBucketName(c.Bucket); err != nil {
		return err
	}

	switch c.Backend {
	case BackendS3:
	case BackendMinio:
		if c.Endpoint == "" {
			return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
				WithMessage("the minio backend requires an endpoint")
		}
	default:
		return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unknown backend %q (want %s or %s)", c.Backend, BackendS3, BackendMinio))
	}

	if _, err := optypes.ParseCleanupPolicy(c.Cleanup); err != nil {
		return fmerrors.NewError(op, err)
	}

	switch c.Progress {
	case ProgressAuto, ProgressTTY, ProgressPlain:
	default:
		return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unknown progress mode %q", c.Progress))
	}

	if c.MaxRetries < 0 {
		return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage("max_retries cannot be negative")
	}
	if c.Timeout < 0 {
		return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage("timeout cannot be negative")
	}
	if c.PartSize < 0 {
		return fmerrors.NewError(op, fmerrors.ErrInvalidInput).
			WithMessage("part_size cannot be negative")
	}
	return nil
}
