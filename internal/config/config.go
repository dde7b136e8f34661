// Package config loads the quill CLI configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Adapter names.
const (
	AdapterGraphQL = "graphql"
	AdapterMemory  = "memory"
)

// Environment variables that override file values.
const (
	EnvAdapter          = "QUILL_ADAPTER"
	EnvEndpoint         = "QUILL_ENDPOINT"
	EnvRealtimeEndpoint = "QUILL_REALTIME_ENDPOINT"
	EnvAPIKey           = "QUILL_API_KEY"
	EnvTimeout          = "QUILL_TIMEOUT"
	EnvLogLevel         = "QUILL_LOG_LEVEL"
)

var validate = validator.New()

// Config is the CLI configuration.
type Config struct {
	Adapter          string        `yaml:"adapter" validate:"oneof=graphql memory"`
	Endpoint         string        `yaml:"endpoint" validate:"required_if=Adapter graphql,omitempty,url"`
	RealtimeEndpoint string        `yaml:"realtime_endpoint" validate:"omitempty,url"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout" validate:"gte=0"`
	HideCompleted    bool          `yaml:"hide_completed"`
	EventBuffer      int           `yaml:"event_buffer" validate:"gte=0"`
	LogLevel         string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Adapter:     AdapterGraphQL,
		Timeout:     15 * time.Second,
		EventBuffer: 100,
		LogLevel:    "info",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/quill/config.yaml, falling back to the
// user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "quill", "config.yaml")
}

// Load reads path (a missing file is not an error) and applies environment
// overrides. An empty path means DefaultPath. The result is not validated so
// callers can layer flags on top before calling Validate.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAdapter); v != "" {
		c.Adapter = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvRealtimeEndpoint); v != "" {
		c.RealtimeEndpoint = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks field constraints and reports the offending fields.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
}

// Level maps LogLevel to a slog level. Unknown values mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String renders the config with the API key masked.
func (c Config) String() string {
	masked := c
	if masked.APIKey != "" {
		masked.APIKey = "***"
	}
	out, err := yaml.Marshal(masked)
	if err != nil {
		return strconv.Quote(err.Error())
	}
	return string(out)
}
