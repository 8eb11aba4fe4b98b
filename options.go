package filemanager

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"

	"github.com/yarokim83/filemanager/internal/localfs"
	"github.com/yarokim83/filemanager/internal/metrics"
	"github.com/yarokim83/filemanager/optypes"
)

// Option configures a Manager.
type Option func(*settings)

type settings struct {
	logger  *slog.Logger
	fs      *localfs.FS
	metrics *metrics.Metrics
	cleanup optypes.CleanupPolicy
}

func newSettings(opts []Option) *settings {
	s := &settings{
		logger:  slog.New(slog.DiscardHandler),
		cleanup: optypes.CleanupCopied,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = localfs.NewOS()
	}
	return s
}

// WithLogger sets the logger shared by every component. A nil logger
// discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFilesystem sets the local filesystem used for uploads from and
// downloads to local paths. The default is the OS filesystem rooted at "/".
func WithFilesystem(fsys billy.Filesystem) Option {
	return func(s *settings) {
		if fsys != nil {
			s.fs = localfs.New(fsys)
		}
	}
}

// WithMetrics records operation metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithCleanupPolicy selects how prefix renames remove their source.
func WithCleanupPolicy(policy optypes.CleanupPolicy) Option {
	return func(s *settings) {
		if policy != "" {
			s.cleanup = policy
		}
	}
}
