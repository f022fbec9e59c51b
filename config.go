package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// DiagnosticsConfig configures the optional HTTP diagnostics endpoint.
type DiagnosticsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Addr    string `json:"addr" yaml:"addr" toml:"addr"`
}

// Config is the file-loadable dispatcher configuration. YAML, TOML, and JSON
// files are supported, selected by extension; environment variables with the
// DISPATCH_ prefix override file values.
type Config struct {
	// DefaultMode is the dispatcher-wide execution mode: one of
	// "safe", "unsafe", "auto", "secure_only".
	DefaultMode string `json:"default_mode" yaml:"default_mode" toml:"default_mode"`

	// ErrorThreshold is the error count that trips the circuit breaker.
	ErrorThreshold uint64 `json:"error_threshold" yaml:"error_threshold" toml:"error_threshold"`

	// TaintLogCapacity bounds the diagnostic ring buffer.
	TaintLogCapacity int `json:"taint_log_capacity" yaml:"taint_log_capacity" toml:"taint_log_capacity"`

	// DebugLogging toggles debug-gated taint entries and debug logs.
	DebugLogging bool `json:"debug_logging" yaml:"debug_logging" toml:"debug_logging"`

	// FlushSchedule is a cron expression (robfig/cron syntax, e.g.
	// "@every 30s") for the maintenance flush sweep. Empty disables it.
	FlushSchedule string `json:"flush_schedule" yaml:"flush_schedule" toml:"flush_schedule"`

	Diagnostics DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics" toml:"diagnostics"`
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() *Config {
	return &Config{
		DefaultMode:      ModeAuto.String(),
		ErrorThreshold:   DefaultErrorThreshold,
		TaintLogCapacity: DefaultTaintLogCapacity,
		Diagnostics:      DiagnosticsConfig{Addr: ":8480"},
	}
}

// LoadConfig reads a config file, layers it over the defaults, applies
// environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConfigFormat, ext)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envPrefix namespaces the dispatcher's environment overrides.
const envPrefix = "DISPATCH_"

// applyEnvOverrides layers DISPATCH_* environment variables over the config.
// Values are cast to the field's type, so malformed numbers or booleans are
// reported rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv(envPrefix + "DEFAULT_MODE"); ok {
		c.DefaultMode = v
	}
	if v, ok := os.LookupEnv(envPrefix + "FLUSH_SCHEDULE"); ok {
		c.FlushSchedule = v
	}
	if v, ok := os.LookupEnv(envPrefix + "DIAGNOSTICS_ADDR"); ok {
		c.Diagnostics.Addr = v
	}
	if err := castEnv(envPrefix+"ERROR_THRESHOLD", &c.ErrorThreshold); err != nil {
		return err
	}
	if err := castEnv(envPrefix+"TAINT_LOG_CAPACITY", &c.TaintLogCapacity); err != nil {
		return err
	}
	if err := castEnv(envPrefix+"DEBUG_LOGGING", &c.DebugLogging); err != nil {
		return err
	}
	return castEnv(envPrefix+"DIAGNOSTICS_ENABLED", &c.Diagnostics.Enabled)
}

// castEnv reads an environment variable and casts it into target, which must
// be a pointer to the destination field.
func castEnv[T any](key string, target *T) error {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	converted, err := cast.FromType(raw, reflect.TypeOf(*target))
	if err != nil {
		return fmt.Errorf("casting %s=%q: %w", key, raw, err)
	}
	value, ok := converted.(T)
	if !ok {
		return fmt.Errorf("casting %s=%q: unexpected type %T", key, raw, converted)
	}
	*target = value
	return nil
}

// Validate checks the config for values the dispatcher would reject.
func (c *Config) Validate() error {
	if _, err := ParseExecutionMode(c.DefaultMode); err != nil {
		return err
	}
	if c.ErrorThreshold == 0 {
		return ErrInvalidErrorThreshold
	}
	if c.TaintLogCapacity <= 0 {
		return ErrInvalidTaintCapacity
	}
	return nil
}

// Options translates the config into dispatcher construction options.
func (c *Config) Options() ([]Option, error) {
	mode, err := ParseExecutionMode(c.DefaultMode)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithDefaultExecutionMode(mode),
		WithErrorThreshold(c.ErrorThreshold),
		WithTaintLogCapacity(c.TaintLogCapacity),
		WithDebugLogging(c.DebugLogging),
	}, nil
}

// NewFromConfig creates a Dispatcher from a validated config. Extra options
// are applied after the config-derived ones, so they take precedence.
func NewFromConfig(cfg *Config, extra ...Option) (*Dispatcher, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(append(opts, extra...)...)
}
