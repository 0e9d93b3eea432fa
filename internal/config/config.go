// Package config provides reading and writing of dmsd configuration.
// Supports both global (~/.dmsd/config.yaml) and local (.dmsd/config.yaml).
// Reading: uses local if it exists, otherwise global.
// Writing: Save writes back to the file the config was loaded from;
// SaveScope writes to an explicit scope.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoConfigPath is returned when the config path cannot be determined.
	ErrNoConfigPath = errors.New("cannot determine config path")
	// ErrUnknownKey is returned when getting/setting an unknown config key.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope represents the configuration scope (global or local).
type Scope int

const (
	// ScopeGlobal is user-wide config in ~/.dmsd/config.yaml (default)
	ScopeGlobal Scope = iota
	// ScopeLocal is deployment-specific config in .dmsd/config.yaml
	ScopeLocal
)

// Session holds authentication session options.
type Session struct {
	TTLMinutes *int `yaml:"ttl_minutes,omitempty"`
}

// Lock holds edit-lock coordinator options.
type Lock struct {
	DefaultTimeoutMinutes *int `yaml:"default_timeout_minutes,omitempty"`
	MaxTimeoutMinutes     *int `yaml:"max_timeout_minutes,omitempty"`
	HeartbeatSeconds      *int `yaml:"heartbeat_seconds,omitempty"`
}

// Autosave holds content-autosave coalescing options.
type Autosave struct {
	AuditCoalesceDecile *int `yaml:"audit_coalesce_decile,omitempty"`
}

// Store holds document store connection options.
type Store struct {
	DSN *string `yaml:"dsn,omitempty"`
}

// Default values applied when not configured.
const (
	DefaultSessionTTLMinutes        = 60
	DefaultLockTimeoutMinutes       = 30
	DefaultLockMaxTimeoutMinutes    = 60
	DefaultLockHeartbeatSeconds     = 15
	DefaultAutosaveCoalesceDecile   = 10
	DefaultStoreDSN                 = "dmsd.db"
)

// Validation bounds for configuration values.
const (
	MinSessionTTLMinutes = 5
	MaxSessionTTLMinutes = 24 * 60
	MinLockTimeoutMinutes = 1
	MaxLockTimeoutMinutes = 24 * 60
	MinHeartbeatSeconds   = 5
	MaxHeartbeatSeconds   = 3600
	MinCoalesceDecile     = 1
	MaxCoalesceDecile     = 1000
)

// Config contains configuration for dmsd.
type Config struct {
	Session     Session  `yaml:"session,omitempty"`
	Lock        Lock     `yaml:"lock,omitempty"`
	Autosave    Autosave `yaml:"autosave,omitempty"`
	Store       Store    `yaml:"store,omitempty"`
	Departments []string `yaml:"departments,omitempty"`

	// path is the file this config was loaded from (for Save)
	path  string
	scope Scope
}

// Validate checks that all configured values are within acceptable bounds.
// Returns nil if all values are valid or not set (defaults will be used).
func (c *Config) Validate() error {
	if c.Session.TTLMinutes != nil {
		v := *c.Session.TTLMinutes
		if v < MinSessionTTLMinutes || v > MaxSessionTTLMinutes {
			return fmt.Errorf("%w: session.ttl_minutes must be between %d and %d, got %d",
				ErrInvalidValue, MinSessionTTLMinutes, MaxSessionTTLMinutes, v)
		}
	}
	if c.Lock.DefaultTimeoutMinutes != nil {
		v := *c.Lock.DefaultTimeoutMinutes
		if v < MinLockTimeoutMinutes || v > MaxLockTimeoutMinutes {
			return fmt.Errorf("%w: lock.default_timeout_minutes must be between %d and %d, got %d",
				ErrInvalidValue, MinLockTimeoutMinutes, MaxLockTimeoutMinutes, v)
		}
	}
	if c.Lock.MaxTimeoutMinutes != nil {
		v := *c.Lock.MaxTimeoutMinutes
		if v < MinLockTimeoutMinutes || v > MaxLockTimeoutMinutes {
			return fmt.Errorf("%w: lock.max_timeout_minutes must be between %d and %d, got %d",
				ErrInvalidValue, MinLockTimeoutMinutes, MaxLockTimeoutMinutes, v)
		}
	}
	if c.Lock.DefaultTimeoutMinutes != nil && c.Lock.MaxTimeoutMinutes != nil &&
		*c.Lock.DefaultTimeoutMinutes > *c.Lock.MaxTimeoutMinutes {
		return fmt.Errorf("%w: lock.default_timeout_minutes cannot exceed lock.max_timeout_minutes",
			ErrInvalidValue)
	}
	if c.Lock.HeartbeatSeconds != nil {
		v := *c.Lock.HeartbeatSeconds
		if v < MinHeartbeatSeconds || v > MaxHeartbeatSeconds {
			return fmt.Errorf("%w: lock.heartbeat_seconds must be between %d and %d, got %d",
				ErrInvalidValue, MinHeartbeatSeconds, MaxHeartbeatSeconds, v)
		}
	}
	if c.Autosave.AuditCoalesceDecile != nil {
		v := *c.Autosave.AuditCoalesceDecile
		if v < MinCoalesceDecile || v > MaxCoalesceDecile {
			return fmt.Errorf("%w: autosave.audit_coalesce_decile must be between %d and %d, got %d",
				ErrInvalidValue, MinCoalesceDecile, MaxCoalesceDecile, v)
		}
	}
	return nil
}

// SessionTTL returns the session lifetime, counted from login (defaults to
// 60 minutes).
func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLMinutes == nil {
		return DefaultSessionTTLMinutes * time.Minute
	}
	return time.Duration(*c.Session.TTLMinutes) * time.Minute
}

// LockDefaultTimeout returns the default edit-lock lease duration.
func (c *Config) LockDefaultTimeout() time.Duration {
	if c.Lock.DefaultTimeoutMinutes == nil {
		return DefaultLockTimeoutMinutes * time.Minute
	}
	return time.Duration(*c.Lock.DefaultTimeoutMinutes) * time.Minute
}

// LockMaxTimeout returns the maximum edit-lock lease duration a caller may
// request.
func (c *Config) LockMaxTimeout() time.Duration {
	if c.Lock.MaxTimeoutMinutes == nil {
		return DefaultLockMaxTimeoutMinutes * time.Minute
	}
	return time.Duration(*c.Lock.MaxTimeoutMinutes) * time.Minute
}

// LockHeartbeatInterval returns the interval a holder should use to renew
// its lease.
func (c *Config) LockHeartbeatInterval() time.Duration {
	if c.Lock.HeartbeatSeconds == nil {
		return DefaultLockHeartbeatSeconds * time.Second
	}
	return time.Duration(*c.Lock.HeartbeatSeconds) * time.Second
}

// AutosaveCoalesceDecile returns the Nth-save audit coalescing interval
// (defaults to every 10th autosave).
func (c *Config) AutosaveCoalesceDecile() int {
	if c.Autosave.AuditCoalesceDecile == nil {
		return DefaultAutosaveCoalesceDecile
	}
	return *c.Autosave.AuditCoalesceDecile
}

// StoreDSN returns the document store's data source name (defaults to
// "dmsd.db" in the working directory).
func (c *Config) StoreDSN() string {
	if c.Store.DSN == nil || *c.Store.DSN == "" {
		return DefaultStoreDSN
	}
	return *c.Store.DSN
}

// LocalPath returns the path to the local (deployment) config file.
func LocalPath() string {
	return filepath.Join(".dmsd", "config.yaml")
}

// GlobalPath returns the path to the global (user) config file: ~/.dmsd/config.yaml
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".dmsd", "config.yaml")
}

// Path returns the local config path (for backwards compatibility).
func Path() string {
	return LocalPath()
}

// Load reads configuration: uses local if it exists, otherwise global.
func Load() (*Config, error) {
	// Check if local config exists
	if _, err := os.Stat(LocalPath()); err == nil {
		return LoadScope(ScopeLocal)
	}
	// Fall back to global
	return LoadScope(ScopeGlobal)
}

// LoadScope reads configuration from a specific scope.
func LoadScope(scope Scope) (*Config, error) {
	path := pathForScope(scope)
	if path == "" {
		return &Config{scope: scope}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{path: path, scope: scope}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config file %s: %w\n\nTo fix: edit the file to correct the YAML syntax, or delete it to use defaults", path, err)
	}
	cfg.path = path
	cfg.scope = scope

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Scope returns which scope this config was loaded from.
func (c *Config) Scope() Scope {
	return c.scope
}

// Save writes the configuration to its original location.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = pathForScope(c.scope)
	}
	if c.path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(c.path)
}

// SaveScope writes the configuration to the specified scope.
func (c *Config) SaveScope(scope Scope) error {
	path := pathForScope(scope)
	if path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(path)
}

// saveToPath writes configuration to a specific filesystem path.
// Creates parent directories as needed with mode 0755.
func (c *Config) saveToPath(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// pathForScope returns the filesystem path for a given scope.
func pathForScope(scope Scope) string {
	switch scope {
	case ScopeLocal:
		return LocalPath()
	case ScopeGlobal:
		return GlobalPath()
	default:
		return ""
	}
}
