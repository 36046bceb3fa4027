// Package configs resolves the process configuration from environment
// variables, optionally merged with a YAML config file. Environment
// variables always win over file values.
package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/solarhook/opendtu-mcp/internal/domain"
)

const envPrefix = "opendtu"

// Config holds the final application configuration. Fields are loaded
// from environment variables with the prefix "OPENDTU_". Names are
// derived from the field names only: an explicit envconfig name tag
// would make the library fall back to the bare, unprefixed variable
// when the prefixed one is unset, so an ambient $USER or $HOST from the
// shell would leak into the credentials.
type Config struct {
	// Config file path (OPENDTU_CONFIG_FILE), env only.
	ConfigFile string `split_words:"true"`

	// Appliance connection. Host is required and has no default.
	Host     string
	User     string `default:"admin"`
	Password string `default:"openDTU42"`

	// Transport and process settings.
	ListenAddr        string        `split_words:"true" default:":8080"`
	AdminAddr         string        `split_words:"true" default:":8081"`
	HTTPClientTimeout time.Duration `split_words:"true" default:"10s"`
	RetryBackoff      time.Duration `split_words:"true" default:"500ms"`
	ShutdownTimeout   time.Duration `split_words:"true" default:"5s"`
	LogLevel          string        `split_words:"true" default:"info"`

	OtelExporterOtlpEndpoint string `split_words:"true"`
	OtelExporterOtlpInsecure bool   `split_words:"true" default:"true"`
}

// FileConfig is the YAML file shape. Only connection and process basics
// are file-configurable; tracing stays env-only.
type FileConfig struct {
	Host              string `yaml:"host"`
	User              string `yaml:"user"`
	Password          string `yaml:"password"`
	ListenAddr        string `yaml:"listen_addr"`
	AdminAddr         string `yaml:"admin_addr"`
	HTTPClientTimeout string `yaml:"http_client_timeout"`
	LogLevel          string `yaml:"log_level"`
}

// ParsedLogLevel returns the slog.Level for the configured LogLevel.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// BaseURL normalizes the configured host into the appliance base URL:
// scheme prepended when absent, trailing slash trimmed.
func (c *Config) BaseURL() string {
	host := strings.TrimRight(c.Host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host
}

// Credentials produces the immutable credential value handed to the
// appliance client. Host carries the normalized base URL.
func (c *Config) Credentials() domain.Credentials {
	return domain.Credentials{
		Host:     c.BaseURL(),
		Username: c.User,
		Password: c.Password,
	}
}

// Load resolves the configuration: environment first, then the optional
// YAML file for values the environment did not set, then validation.
// A missing host is fatal.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment variables: %w", err)
	}

	if cfg.ConfigFile != "" {
		raw, err := os.ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("read config file %q: %w", cfg.ConfigFile, err)
		}
		var fileCfg FileConfig
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return nil, fmt.Errorf("unmarshal config file %q: %w", cfg.ConfigFile, err)
		}
		if err := cfg.applyFile(fileCfg); err != nil {
			return nil, err
		}
		slog.Info("loaded configuration file", slog.String("path", cfg.ConfigFile))
	}

	if cfg.Host == "" {
		return nil, &domain.ConfigurationError{
			Message: "OPENDTU_HOST is not set; set it to the IP or hostname " +
				"of the OpenDTU (e.g. '192.168.1.100')",
		}
	}
	return &cfg, nil
}

// applyFile merges file values into cfg for every field whose environment
// variable was not explicitly set.
func (c *Config) applyFile(f FileConfig) error {
	merge := func(envVar string, dst *string, fileVal string) {
		if fileVal == "" {
			return
		}
		if _, set := os.LookupEnv(envVar); !set {
			*dst = fileVal
		}
	}
	merge("OPENDTU_HOST", &c.Host, f.Host)
	merge("OPENDTU_USER", &c.User, f.User)
	merge("OPENDTU_PASSWORD", &c.Password, f.Password)
	merge("OPENDTU_LISTEN_ADDR", &c.ListenAddr, f.ListenAddr)
	merge("OPENDTU_ADMIN_ADDR", &c.AdminAddr, f.AdminAddr)
	merge("OPENDTU_LOG_LEVEL", &c.LogLevel, f.LogLevel)

	if f.HTTPClientTimeout != "" {
		if _, set := os.LookupEnv("OPENDTU_HTTP_CLIENT_TIMEOUT"); !set {
			d, err := time.ParseDuration(f.HTTPClientTimeout)
			if err != nil {
				return fmt.Errorf("invalid http_client_timeout in config file: %w", err)
			}
			c.HTTPClientTimeout = d
		}
	}
	return nil
}
