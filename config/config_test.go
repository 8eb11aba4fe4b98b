package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/optypes"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"FILEMANAGER_BUCKET", "GCS_BUCKET", "FILEMANAGER_BACKEND", "FILEMANAGER_CLEANUP"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBucket, cfg.Bucket)
	assert.Equal(t, BackendS3, cfg.Backend)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, int64(8*1024*1024), cfg.PartSize)
	assert.Equal(t, optypes.CleanupCopied, cfg.CleanupPolicy())
	assert.Equal(t, ProgressAuto, cfg.Progress)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
bucket: media-archive
backend: minio
endpoint: localhost:9000
insecure: true
timeout: 30s
cleanup: prefix
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "media-archive", cfg.Bucket)
	assert.Equal(t, BackendMinio, cfg.Backend)
	assert.Equal(t, "localhost:9000", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, optypes.CleanupPrefix, cfg.CleanupPolicy())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "bucket: from-file\nregion: eu-west-1\n")

	t.Run("env beats file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FILEMANAGER_BUCKET", "from-env")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Bucket)
		assert.Equal(t, "eu-west-1", cfg.Region)
	})

	t.Run("bucket alias", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GCS_BUCKET", "legacy-bucket")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "legacy-bucket", cfg.Bucket)
	})

	t.Run("flag beats env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FILEMANAGER_BUCKET", "from-env")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("bucket", "", "")
		flags.String("region", "", "")
		flags.Bool("force-path-style", false, "")
		require.NoError(t, flags.Parse([]string{"--bucket", "from-flag", "--force-path-style"}))

		cfg, err := Load(path, WithFlags(flags))
		require.NoError(t, err)
		assert.Equal(t, "from-flag", cfg.Bucket)
		assert.Equal(t, "eu-west-1", cfg.Region, "unset flags do not override")
		assert.True(t, cfg.ForcePathStyle)
	})
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, fmerrors.IsNotFound(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad bucket", func(c *Config) { c.Bucket = "Bad Bucket" }, "bucket name"},
		{"unknown backend", func(c *Config) { c.Backend = "gcs" }, "unknown backend"},
		{"minio without endpoint", func(c *Config) { c.Backend = BackendMinio }, "requires an endpoint"},
		{"unknown cleanup", func(c *Config) { c.Cleanup = "all" }, "unknown cleanup policy"},
		{"unknown progress", func(c *Config) { c.Progress = "fancy" }, "unknown progress mode"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, fmerrors.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "config.yaml", filepath.Base(DefaultPath()))
	assert.Equal(t, "filemanager", filepath.Base(Dir()))
}
