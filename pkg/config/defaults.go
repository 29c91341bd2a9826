package config

import "time"

// Default returns a Config populated with every default value, used
// both when no file is found and as the base ApplyDefaults fills gaps in.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with sensible defaults, called
// after decoding a partial config file (SPEC_FULL.md §2.3).
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyLeaseDefaults(&cfg.Lease)
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	for i := range cfg.Backends {
		applyBackendDefaults(&cfg.Backends[i])
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLeaseDefaults(cfg *LeaseConfig) {
	if cfg.Duration == 0 {
		cfg.Duration = time.Hour
	}
	if cfg.MaxFileNameLength == 0 {
		cfg.MaxFileNameLength = 255
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Address == "" {
		cfg.Address = ":9090"
	}
}

func applyBackendDefaults(cfg *BackendConfig) {
	if cfg.Kind == "s3" && cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
}
