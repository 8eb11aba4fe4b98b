package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	fmerrors "github.com/yarokim83/filemanager/errors"
)

// EnvPrefix prefixes every environment variable, e.g. FILEMANAGER_BUCKET.
const EnvPrefix = "FILEMANAGER"

// BucketEnvAlias is also accepted for the bucket name.
const BucketEnvAlias = "GCS_BUCKET"

// Dir returns the config directory, $XDG_CONFIG_HOME/filemanager.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, "filemanager")
}

// DefaultPath returns the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	flags *pflag.FlagSet
}

// WithFlags binds command-line flags over every other source. A flag named
// "force-path-style" sets the key "force_path_style". Only flags the user
// actually set take effect.
func WithFlags(flags *pflag.FlagSet) LoadOption {
	return func(o *loadOptions) {
		o.flags = flags
	}
}

// Load reads the configuration. An explicit path must exist; with an empty
// path the default file is read if present. The result is validated.
func Load(path string, opts ...LoadOption) (*Config, error) {
	const op = "loadConfig"

	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("bucket", EnvPrefix+"_BUCKET", BucketEnvAlias); err != nil {
		return nil, fmerrors.NewError(op, err)
	}

	if err := readFile(v, path); err != nil {
		return nil, fmerrors.NewObjectError(op, path, err)
	}

	if o.flags != nil {
		if err := bindFlags(v, o.flags); err != nil {
			return nil, fmerrors.NewError(op, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmerrors.NewError(op, err).WithMessage("decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("bucket", d.Bucket)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("region", d.Region)
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("force_path_style", d.ForcePathStyle)
	v.SetDefault("insecure", d.Insecure)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("part_size", d.PartSize)
	v.SetDefault("cleanup", d.Cleanup)
	v.SetDefault("progress", d.Progress)
	v.SetDefault("metrics_addr", d.MetricsAddr)
}

func readFile(v *viper.Viper, path string) error {
	if path == "" {
		path = DefaultPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmerrors.ErrNotFound
		}
		return err
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	known := v.AllKeys()
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err != nil || !slices.Contains(known, key) {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}
