package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/guided-traffic/request-body-parser/pkg/bodyparser"
	"github.com/spf13/viper"
)

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`      // Enable/disable monitoring
	BindAddress string `mapstructure:"bind_address"` // Address to bind monitoring server (default: :9090)
	MetricsPath string `mapstructure:"metrics_path"` // Path for metrics endpoint (default: /metrics)
}

// DecoderAlias routes an additional content type to a built-in decoder
type DecoderAlias struct {
	ContentType string `mapstructure:"content_type"` // e.g. "application/vnd.api+json"
	Decoder     string `mapstructure:"decoder"`      // built-in content type, e.g. "application/json"
}

// ParserConfig holds body parser configuration
type ParserConfig struct {
	// Largest body buffered for decoding, bigger bodies are forwarded undecoded
	MaxBodySize int64 `mapstructure:"max_body_size"`

	// Additional content types decoded by a built-in decoder.
	// A list rather than a map because viper splits keys on dots.
	Aliases []DecoderAlias `mapstructure:"aliases"`
}

// UpstreamConfig holds the optional reverse proxy target
type UpstreamConfig struct {
	TargetEndpoint string `mapstructure:"target_endpoint"`
}

// Config holds the application configuration
type Config struct {
	// Server configuration
	BindAddress       string    `mapstructure:"bind_address"`
	LogLevel          string    `mapstructure:"log_level"`
	LogFormat         string    `mapstructure:"log_format"` // "text" (default) or "json"
	LogHealthRequests bool      `mapstructure:"log_health_requests"`
	ShutdownTimeout   int       `mapstructure:"shutdown_timeout"` // Graceful shutdown timeout in seconds
	TLS               TLSConfig `mapstructure:"tls"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Body parser configuration
	Parser ParserConfig `mapstructure:"parser"`

	// Upstream configuration
	Upstream UpstreamConfig `mapstructure:"upstream"`
}

// InitConfig initializes the configuration system
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory with name ".body-parser" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".body-parser")
	}

	// Environment variable configuration
	viper.SetEnvPrefix("BODYPARSER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// Load loads the configuration from viper
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("bind_address", "0.0.0.0:8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("log_health_requests", false)
	viper.SetDefault("shutdown_timeout", 30)

	// TLS defaults
	viper.SetDefault("tls.enabled", false)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", false)
	viper.SetDefault("monitoring.bind_address", ":9090")
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Parser defaults
	viper.SetDefault("parser.max_body_size", bodyparser.DefaultMaxBodySize)

	// Upstream defaults
	viper.SetDefault("upstream.target_endpoint", "")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.BindAddress == "" {
		return fmt.Errorf("bind_address is required")
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got '%s'", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %d", cfg.ShutdownTimeout)
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			return fmt.Errorf("tls.cert_file is required when TLS is enabled")
		}
		if cfg.TLS.KeyFile == "" {
			return fmt.Errorf("tls.key_file is required when TLS is enabled")
		}

		// Check if certificate files exist
		if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file does not exist: %s", cfg.TLS.CertFile)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file does not exist: %s", cfg.TLS.KeyFile)
		}
	}

	if cfg.Monitoring.Enabled {
		if cfg.Monitoring.BindAddress == "" {
			return fmt.Errorf("monitoring.bind_address is required when monitoring is enabled")
		}
		if !strings.HasPrefix(cfg.Monitoring.MetricsPath, "/") {
			return fmt.Errorf("monitoring.metrics_path must start with '/', got '%s'", cfg.Monitoring.MetricsPath)
		}
	}

	if err := validateParser(&cfg.Parser); err != nil {
		return err
	}

	return validateUpstream(&cfg.Upstream)
}

// validateParser validates the body parser configuration
func validateParser(cfg *ParserConfig) error {
	if cfg.MaxBodySize <= 0 {
		return fmt.Errorf("parser.max_body_size must be positive, got %d", cfg.MaxBodySize)
	}

	defaults := bodyparser.DefaultDecoders()
	for i, alias := range cfg.Aliases {
		if bodyparser.NormalizeContentType(alias.ContentType) == "" {
			return fmt.Errorf("parser.aliases[%d].content_type is required", i)
		}
		if _, ok := defaults[bodyparser.NormalizeContentType(alias.Decoder)]; !ok {
			return fmt.Errorf("parser.aliases[%d]: '%s' maps to '%s' which is not a built-in decoder", i, alias.ContentType, alias.Decoder)
		}
	}

	return nil
}

// validateUpstream validates the reverse proxy target
func validateUpstream(cfg *UpstreamConfig) error {
	if cfg.TargetEndpoint == "" {
		return nil
	}

	target, err := url.Parse(cfg.TargetEndpoint)
	if err != nil {
		return fmt.Errorf("upstream.target_endpoint is not a valid URL: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return fmt.Errorf("upstream.target_endpoint must use http or https, got '%s'", cfg.TargetEndpoint)
	}
	if target.Host == "" {
		return fmt.Errorf("upstream.target_endpoint must include a host, got '%s'", cfg.TargetEndpoint)
	}

	return nil
}

// RegisterAliases registers every configured alias on the registry
func (c *ParserConfig) RegisterAliases(registry *bodyparser.Registry) error {
	defaults := bodyparser.DefaultDecoders()
	for _, alias := range c.Aliases {
		decoder, ok := defaults[bodyparser.NormalizeContentType(alias.Decoder)]
		if !ok {
			return fmt.Errorf("no built-in decoder for '%s'", alias.Decoder)
		}
		if err := registry.Register(alias.ContentType, decoder); err != nil {
			return fmt.Errorf("failed to register alias '%s': %w", alias.ContentType, err)
		}
	}
	return nil
}
