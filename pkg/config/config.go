package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/satlink-project/satlink-go/pkg/satellite"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

// Config is the complete service configuration.
type Config struct {
	Arbiter     ArbiterConfig     `yaml:"arbiter"`
	Modem       ModemConfig       `yaml:"modem"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	Coexistence CoexistenceConfig `yaml:"coexistence"`
	Store       StoreConfig       `yaml:"store"`
	Log         LogConfig         `yaml:"log"`
}

// ArbiterConfig configures enable/disable arbitration.
type ArbiterConfig struct {
	// EnableTimeout bounds every command sent to the modem.
	EnableTimeout Duration `yaml:"enable_timeout"`

	// RadioOffTimeout bounds the wait for other radios to switch off after
	// the modem confirmed an enable. Zero waits without a bound.
	RadioOffTimeout Duration `yaml:"radio_off_timeout"`

	// MaxRequestID is where request ids wrap back to 1.
	MaxRequestID uint64 `yaml:"max_request_id"`
}

// ModemConfig configures the modem simulator used by satctl.
type ModemConfig struct {
	// ResponseDelay delays every simulated modem response.
	ResponseDelay Duration `yaml:"response_delay"`
}

// DeliveryConfig configures datagram delivery.
type DeliveryConfig struct {
	// RetryInterval is how long a listener has to acknowledge a datagram
	// before it is delivered again.
	RetryInterval Duration `yaml:"retry_interval"`

	// MaxAttempts caps deliveries per listener and datagram (0 = unbounded).
	MaxAttempts int `yaml:"max_attempts"`

	// MaxID is the size of the dedup id space.
	MaxID uint64 `yaml:"max_id"`

	// AutoPoll polls the modem when a datagram reports more pending.
	AutoPoll bool `yaml:"auto_poll"`
}

// CoexistenceConfig lists the radios that must be off while the satellite
// link is enabled.
type CoexistenceConfig struct {
	RequiredRadios []string `yaml:"required_radios"`
}

// StoreConfig selects durable storage.
type StoreConfig struct {
	// Backend is BackendSQLite, BackendJSON or BackendMemory.
	Backend string `yaml:"backend"`

	// Path is the database or state file.
	Path string `yaml:"path"`

	// Driver is the SQLite driver: "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `yaml:"driver"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the slog level: debug, info, warn or error.
	Level string `yaml:"level"`

	// EventFile, if set, receives the CBOR event trace.
	EventFile string `yaml:"event_file"`

	// File, if set, receives the text log instead of stderr. It is rotated
	// once it grows past MaxSizeMB.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Arbiter: ArbiterConfig{
			EnableTimeout:   Duration(30 * time.Second),
			RadioOffTimeout: Duration(30 * time.Second),
			MaxRequestID:    1<<31 - 1,
		},
		Modem: ModemConfig{
			ResponseDelay: Duration(200 * time.Millisecond),
		},
		Delivery: DeliveryConfig{
			RetryInterval: Duration(5 * time.Minute),
			MaxAttempts:   0, // Unlimited
			MaxID:         1 << 16,
			AutoPoll:      true,
		},
		Coexistence: CoexistenceConfig{
			RequiredRadios: []string{"bluetooth", "nfc", "uwb", "wifi"},
		},
		Store: StoreConfig{
			Backend: BackendSQLite,
			Path:    "satlink.db",
			Driver:  "sqlite",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Arbiter.EnableTimeout <= 0 {
		return invalid("arbiter.enable_timeout must be positive")
	}
	if c.Arbiter.RadioOffTimeout < 0 {
		return invalid("arbiter.radio_off_timeout must not be negative")
	}
	if c.Arbiter.MaxRequestID < 3 {
		return invalid("arbiter.max_request_id must be at least 3")
	}
	if c.Modem.ResponseDelay < 0 {
		return invalid("modem.response_delay must not be negative")
	}
	if c.Delivery.RetryInterval <= 0 {
		return invalid("delivery.retry_interval must be positive")
	}
	if c.Delivery.MaxAttempts < 0 {
		return invalid("delivery.max_attempts must not be negative")
	}
	if c.Delivery.MaxID < 2 {
		return invalid("delivery.max_id must be at least 2")
	}
	if _, err := c.RequiredRadioKinds(); err != nil {
		return invalid("coexistence.required_radios: %v", err)
	}
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.Driver != "sqlite" && c.Store.Driver != "sqlite3" {
			return invalid("store.driver %q must be sqlite or sqlite3", c.Store.Driver)
		}
		fallthrough
	case BackendJSON:
		if c.Store.Path == "" {
			return invalid("store.path is required for the %s backend", c.Store.Backend)
		}
	case BackendMemory:
	default:
		return invalid("store.backend %q must be sqlite, json or memory", c.Store.Backend)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return invalid("log rotation limits must not be negative")
	}
	return nil
}

// RequiredRadioKinds parses Coexistence.RequiredRadios.
func (c *Config) RequiredRadioKinds() ([]satellite.RadioKind, error) {
	kinds := make([]satellite.RadioKind, 0, len(c.Coexistence.RequiredRadios))
	for _, name := range c.Coexistence.RequiredRadios {
		kind, err := satellite.ParseRadioKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
