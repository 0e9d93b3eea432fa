package config_test

import (
	"testing"

	"github.com/pharmadocs/dmsd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultsWhenUnset(t *testing.T) {
	c := &config.Config{}
	assert.Equal(t, config.DefaultSessionTTLMinutes, int(c.SessionTTL().Minutes()))
	assert.Equal(t, config.DefaultLockTimeoutMinutes, int(c.LockDefaultTimeout().Minutes()))
	assert.Equal(t, config.DefaultLockMaxTimeoutMinutes, int(c.LockMaxTimeout().Minutes()))
	assert.Equal(t, config.DefaultLockHeartbeatSeconds, int(c.LockHeartbeatInterval().Seconds()))
	assert.Equal(t, config.DefaultAutosaveCoalesceDecile, c.AutosaveCoalesceDecile())
	assert.Equal(t, config.DefaultStoreDSN, c.StoreDSN())
}

func TestConfig_SetAndGet(t *testing.T) {
	c := &config.Config{}

	require.NoError(t, c.Set("lock.heartbeat_seconds", "45"))
	v, err := c.Get("lock.heartbeat_seconds")
	require.NoError(t, err)
	assert.Equal(t, "45", v)
	assert.True(t, c.IsSet("lock.heartbeat_seconds"))
	assert.False(t, c.IsSet("lock.default_timeout_minutes"))
}

func TestConfig_SetUnknownKey(t *testing.T) {
	c := &config.Config{}
	err := c.Set("bogus.key", "value")
	assert.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestConfig_ValidateRejectsOutOfBoundsValues(t *testing.T) {
	over := 10000
	c := &config.Config{Lock: config.Lock{HeartbeatSeconds: &over}}
	err := c.Validate()
	assert.ErrorIs(t, err, config.ErrInvalidValue)
}

func TestConfig_ValidateRejectsDefaultExceedingMax(t *testing.T) {
	def, max := 90, 60
	c := &config.Config{Lock: config.Lock{DefaultTimeoutMinutes: &def, MaxTimeoutMinutes: &max}}
	err := c.Validate()
	assert.ErrorIs(t, err, config.ErrInvalidValue)
}

func TestConfig_DepartmentsRoundTrip(t *testing.T) {
	c := &config.Config{}
	require.NoError(t, c.Set("departments", "QUAL,MFG,REG"))
	assert.Equal(t, []string{"QUAL", "MFG", "REG"}, c.Departments)
	v, err := c.Get("departments")
	require.NoError(t, err)
	assert.Equal(t, "QUAL,MFG,REG", v)
}
