// Package config loads the relay's configuration: a YAML file read
// through viper, with environment variables overriding the keys the file
// sets, decoded into a tagged struct with a mapstructure decode hook for
// duration fields, then validated with go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the relay's top-level configuration (spec.md §6
// "Configuration"; SPEC_FULL.md §2.3 names these sections).
type Config struct {
	Server   ServerConfig    `mapstructure:"server" yaml:"server"`
	Lease    LeaseConfig     `mapstructure:"lease" yaml:"lease"`
	Logging  LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Backends []BackendConfig `mapstructure:"backends" yaml:"backends"`
}

// ServerConfig controls the HTTP listener (pkg/httpapi).
type ServerConfig struct {
	// Address is the "host:port" the HTTP server binds.
	Address string `mapstructure:"address" validate:"required" yaml:"address"`
	// ReadTimeout and WriteTimeout bound a single request's I/O.
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"required,gt=0" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"required,gt=0" yaml:"write_timeout"`
	// ShutdownTimeout bounds the HTTP server's graceful shutdown once
	// shutdown begins; the wait on the rendezvous barrier that follows is
	// not bounded by it, and nothing forces an exit.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
	// MaxUploadBytes is validated and saved with the config but is not
	// passed to the HTTP handlers: /yeet does not cap the body size (the
	// Writer Guard enforces a declared Content-Length if the client sends
	// one).
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gte=0" yaml:"max_upload_bytes"`
	// TempDir is where the Shared Temp File is created; empty uses the
	// OS default temp directory.
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// LeaseConfig controls the relay's lease window (spec.md §3 "Lease").
type LeaseConfig struct {
	// Duration is how long an admitted file remains readable.
	Duration time.Duration `mapstructure:"duration" validate:"required,gt=0" yaml:"duration"`
	// MaxFileNameLength bounds the declared file_name query parameter.
	MaxFileNameLength int `mapstructure:"max_file_name_length" validate:"required,gt=0" yaml:"max_file_name_length"`
}

// LoggingConfig controls internal/logger.Init.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig controls the /metrics server (pkg/metrics).
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" validate:"required_if=Enabled true" yaml:"address"`
}

// BackendConfig describes one enabled distribution backend (spec.md §6
// "Configuration": "a backends section listing backend instances (tag,
// connection string, per-backend expiration seconds)").
type BackendConfig struct {
	// Tag identifies the backend in logs, metrics, and the registration
	// order the Dispatcher fans out in (spec.md §4.G).
	Tag string `mapstructure:"tag" validate:"required" yaml:"tag"`
	// Kind selects the backend implementation: "memcache" or "s3".
	Kind string `mapstructure:"kind" validate:"required,oneof=memcache s3" yaml:"kind"`
	// ConnectionString is backend-specific: comma-separated
	// "host:port" endpoints for memcache, or an s3://bucket[/prefix]
	// URI for s3.
	ConnectionString string `mapstructure:"connection_string" validate:"required" yaml:"connection_string"`
	// ExpirationSeconds is the backend's own cache lifetime, decoupled
	// from the relay's lease (SPEC_FULL.md §4).
	ExpirationSeconds int64 `mapstructure:"expiration_seconds" validate:"gte=0" yaml:"expiration_seconds"`
	// MaxObjectBytes caps what this backend will accept; zero means the
	// backend's own default.
	MaxObjectBytes int64 `mapstructure:"max_object_bytes" validate:"gte=0" yaml:"max_object_bytes"`
	// Region, Endpoint, AccessKeyID, SecretAccessKey apply to kind=s3 only.
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// Load loads configuration from file, environment, and defaults. A key
// the file sets can be overridden by its YEETYOINK_* environment variable
// (precedence env > file > default); environment variables for keys the
// file does not set are not read, and when no config file is found Load
// returns Default() without consulting the environment (spec.md §6: "Environment overrides
// and a --config CLI flag are accepted by the wrapper").
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if !found {
		return cfg, nil
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration with a user-friendly error when no file
// is found at an explicitly requested path.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\nCreate one with:\n  yeetyoink init --config %s", configPath, configPath)
		}
	}
	return Load(configPath)
}

// Save writes cfg to path as YAML, creating parent directories as
// needed. Used by `yeetyoink init`.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("YEETYOINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

// decodeHooks composes the mapstructure decode hooks viper applies when
// unmarshalling, so config files can write "30s"/"5m" for durations
// instead of raw nanosecond integers.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "yeetyoink")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "yeetyoink")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(DefaultConfigPath())
	return err == nil
}
