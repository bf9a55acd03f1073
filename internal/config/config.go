// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "9s", "300s", "5m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration. It is read once at startup.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Collection CollectionConfig `yaml:"collection"`
	State      StateConfig      `yaml:"state"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the report endpoint and the identity sent with each report.
type ServerConfig struct {
	URL      string `yaml:"url" validate:"required,http_url"`
	ServerID string `yaml:"server_id" validate:"required"`
	Secret   string `yaml:"secret" validate:"required"`

	// InsecureSkipVerify disables TLS certificate validation for the endpoint.
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	Timeout            Duration `yaml:"timeout" validate:"gt=0"`
}

// CollectionConfig holds sampling and pacing settings.
type CollectionConfig struct {
	// Interval is the sleep between the end of one cycle and the start of the next.
	Interval Duration `yaml:"interval" validate:"gt=0"`
	// Window is the measurement interval of CPU and network rates.
	Window Duration `yaml:"window" validate:"gt=0"`
	// Source is "auto", "library" or "fallback".
	Source string `yaml:"source" validate:"oneof=auto library fallback"`
	// ResendStatic re-checks the run-state marker every cycle, so the static
	// inventory is sent again once per expired epoch.
	ResendStatic bool `yaml:"resend_static"`
}

// StateConfig holds run-state marker settings.
type StateConfig struct {
	MarkerDir string   `yaml:"marker_dir"`
	MarkerTTL Duration `yaml:"marker_ttl" validate:"gt=0"`
	Scope     string   `yaml:"scope" validate:"oneof=host process"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:                "http://localhost/report.php",
			InsecureSkipVerify: true,
			Timeout:            Duration{10 * time.Second},
		},
		Collection: CollectionConfig{
			Interval: Duration{8 * time.Second},
			Window:   Duration{1 * time.Second},
			Source:   "auto",
		},
		State: StateConfig{
			MarkerDir: os.TempDir(),
			MarkerTTL: Duration{300 * time.Second},
			Scope:     "host",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "/tmp/monitor_client.log",
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	URL      string
	ServerID string
	Secret   string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cli.URL != "" {
		cfg.Server.URL = cli.URL
	}
	if cli.ServerID != "" {
		cfg.Server.ServerID = cli.ServerID
	}
	if cli.Secret != "" {
		cfg.Server.Secret = cli.Secret
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed. The file holds the shared secret.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PINTY_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("PINTY_SERVER_ID"); v != "" {
		cfg.Server.ServerID = v
	}
	if v := os.Getenv("PINTY_SECRET"); v != "" {
		cfg.Server.Secret = v
	}
	if v := os.Getenv("PINTY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Duration); ok {
			return d.Duration
		}
		return nil
	}, Duration{})
	return v
}

// fieldLabels names fields in validation messages, keyed by struct namespace.
var fieldLabels = map[string]string{
	"Config.Server.URL":          "server URL",
	"Config.Server.ServerID":     "server id",
	"Config.Server.Secret":       "secret",
	"Config.Server.Timeout":      "server timeout",
	"Config.Collection.Interval": "collection interval",
	"Config.Collection.Window":   "collection window",
	"Config.Collection.Source":   "collection source",
	"Config.State.MarkerTTL":     "marker TTL",
	"Config.State.Scope":         "marker scope",
	"Config.Logging.Level":       "log level",
}

// Validate checks that the configuration can drive the report loop.
// Only the first failing field is reported.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating config: %w", err)
	}
	return fieldError(fieldErrs[0])
}

func fieldError(fe validator.FieldError) error {
	label, ok := fieldLabels[fe.StructNamespace()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", label)
	case "http_url":
		return fmt.Errorf("%s must be an absolute http(s) URL (got: %v)", label, fe.Value())
	case "gt":
		return fmt.Errorf("%s must be positive", label)
	case "oneof":
		return fmt.Errorf("invalid %s %q (expected one of: %s)", label, fe.Value(), fe.Param())
	default:
		return fmt.Errorf("%s failed validation for %q", label, fe.Tag())
	}
}
