// config_keys.go provides key-value access to configuration settings.
//
// Separated from config.go to isolate the key enumeration and string-based
// get/set logic. This separation allows config.go to focus on YAML structure
// and loading, while this file handles the CLI interface where config is
// accessed by string keys (e.g., "lock.heartbeat_seconds").
//
// Design: Pointers are used for optional fields so we can distinguish between
// "not set" (nil) and "explicitly set to zero/false". This enables proper
// defaulting - we only apply defaults when the user hasn't set a value.

package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValidKeys returns all valid configuration keys.
func ValidKeys() []string {
	return []string{
		"session.ttl_minutes",
		"lock.default_timeout_minutes", "lock.max_timeout_minutes", "lock.heartbeat_seconds",
		"autosave.audit_coalesce_decile",
		"store.dsn",
		"departments",
	}
}

// IsValidKey returns true if the key is a valid configuration key.
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys(), key)
}

// Get returns the value of a configuration key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "session.ttl_minutes":
		return strconv.Itoa(int(c.SessionTTL().Minutes())), nil
	case "lock.default_timeout_minutes":
		return strconv.Itoa(int(c.LockDefaultTimeout().Minutes())), nil
	case "lock.max_timeout_minutes":
		return strconv.Itoa(int(c.LockMaxTimeout().Minutes())), nil
	case "lock.heartbeat_seconds":
		return strconv.Itoa(int(c.LockHeartbeatInterval().Seconds())), nil
	case "autosave.audit_coalesce_decile":
		return strconv.Itoa(c.AutosaveCoalesceDecile()), nil
	case "store.dsn":
		return c.StoreDSN(), nil
	case "departments":
		return strings.Join(c.Departments, ","), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Set sets the value of a configuration key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "session.ttl_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: session.ttl_minutes must be an integer", ErrInvalidValue)
		}
		c.Session.TTLMinutes = &n
	case "lock.default_timeout_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: lock.default_timeout_minutes must be an integer", ErrInvalidValue)
		}
		c.Lock.DefaultTimeoutMinutes = &n
	case "lock.max_timeout_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: lock.max_timeout_minutes must be an integer", ErrInvalidValue)
		}
		c.Lock.MaxTimeoutMinutes = &n
	case "lock.heartbeat_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: lock.heartbeat_seconds must be an integer", ErrInvalidValue)
		}
		c.Lock.HeartbeatSeconds = &n
	case "autosave.audit_coalesce_decile":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: autosave.audit_coalesce_decile must be an integer", ErrInvalidValue)
		}
		c.Autosave.AuditCoalesceDecile = &n
	case "store.dsn":
		c.Store.DSN = &value
	case "departments":
		if value == "" {
			c.Departments = nil
		} else {
			c.Departments = strings.Split(value, ",")
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// All returns all configuration values as a map.
func (c *Config) All() map[string]string {
	m := map[string]string{}
	for _, k := range ValidKeys() {
		v, _ := c.Get(k)
		m[k] = v
	}
	return m
}

// IsSet returns true if the key has an explicit value (not just defaults).
func (c *Config) IsSet(key string) bool {
	switch key {
	case "session.ttl_minutes":
		return c.Session.TTLMinutes != nil
	case "lock.default_timeout_minutes":
		return c.Lock.DefaultTimeoutMinutes != nil
	case "lock.max_timeout_minutes":
		return c.Lock.MaxTimeoutMinutes != nil
	case "lock.heartbeat_seconds":
		return c.Lock.HeartbeatSeconds != nil
	case "autosave.audit_coalesce_decile":
		return c.Autosave.AuditCoalesceDecile != nil
	case "store.dsn":
		return c.Store.DSN != nil
	case "departments":
		return len(c.Departments) > 0
	default:
		return false
	}
}
