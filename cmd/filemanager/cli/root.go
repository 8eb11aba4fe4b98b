// Package cli implements the filemanager command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yarokim83/filemanager"
	"github.com/yarokim83/filemanager/config"
	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/metrics"
)

// Build information set via ldflags.
var (
	version = "dev"
	commit  = "none"
)

// Global flags.
var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "filemanager",
	Short: "Browse, transfer and rename objects in a storage bucket",
	Long: `filemanager moves files between the local disk and an object-storage bucket.

Uploads, downloads and folder moves report progress as they run and can be
interrupted with Ctrl-C. Folders are name prefixes ending in "/".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/filemanager/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug logging")

	flags.String("bucket", "", "Bucket name")
	flags.String("backend", "", "Storage backend: s3 or minio")
	flags.String("region", "", "Bucket region")
	flags.String("endpoint", "", "Custom endpoint for S3-compatible services")
	flags.Bool("force-path-style", false, "Use path-style bucket addressing")
	flags.Bool("insecure", false, "Disable TLS (minio backend)")
	flags.String("cleanup", "", "Folder move source cleanup: copied or prefix")
	flags.String("progress", "", "Progress display: auto, tty or plain")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")

	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// session bundles what a command needs to talk to the bucket.
type session struct {
	cfg    *config.Config
	mgr    *filemanager.Manager
	logger *slog.Logger
	stop   func()
}

// Close cancels whatever is still running, such as a transfer interrupted
// by a signal, and shuts the metrics server down.
func (s *session) Close() {
	for _, op := range s.mgr.Operations() {
		s.logger.Info("canceling operation",
			slog.String("op_id", op.ID),
			slog.String("kind", string(op.Kind)),
			slog.String("name", op.Label),
			slog.Duration("running", time.Since(op.StartedAt)),
		)
	}
	_ = s.mgr.Close()
	s.stop()
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configPath, config.WithFlags(cmd.Flags()))
}

// newSession loads the configuration and opens the bucket.
func newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	m := metrics.New()
	stop, err := serveMetrics(cfg.MetricsAddr, m, logger)
	if err != nil {
		return nil, err
	}

	mgr, err := filemanager.NewFromConfig(ctx, cfg,
		filemanager.WithLogger(logger),
		filemanager.WithMetrics(m),
	)
	if err != nil {
		stop()
		return nil, err
	}
	return &session{cfg: cfg, mgr: mgr, logger: logger, stop: stop}, nil
}

// serveMetrics exposes m on addr until the returned function is called. An
// empty addr disables it.
func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts errors to user-facing messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	switch fmerrors.CodeOf(err) {
	case fmerrors.CodeNotFound:
		return fmt.Sprintf("Error: not found: %v", err)
	case fmerrors.CodeConflict:
		return fmt.Sprintf("Error: %v (use --overwrite to replace it)", err)
	case fmerrors.CodeInvalidInput:
		return fmt.Sprintf("Error: invalid input: %v", err)
	case fmerrors.CodeCanceled:
		return "Error: operation canceled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
