package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
child_id = "child-1"
device_id = "device-1"

[sync]
interval = "10m"

[metrics]
enabled = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "child-1", cfg.ChildID)
	assert.Equal(t, 10*time.Minute, cfg.Sync.Interval.Duration)
	assert.Equal(t, 3, cfg.Sync.MaxRetries, "unset fields keep defaults")
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "https://api.shieldtechhub.com/v1", cfg.Remote.BaseURL)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval.Duration)
}

func TestLoadRequiresIdentity(t *testing.T) {
	path := writeConfig(t, `child_id = "child-1"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device_id")
}

func TestLoadValidatesRole(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
child_id = "child-1"
device_id = "device-1"
`))
	require.NoError(t, err)
	assert.Equal(t, RoleChild, cfg.Role, "role defaults to child")
	assert.True(t, cfg.IsChildDevice())

	cfg, err = Load(writeConfig(t, `
child_id = "child-1"
device_id = "device-1"
role = "guardian"
`))
	require.NoError(t, err)
	assert.False(t, cfg.IsChildDevice())

	_, err = Load(writeConfig(t, `
child_id = "child-1"
device_id = "device-1"
role = "admin"
`))
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
child_id = "c"
device_id = "d"

[sync]
interval = "not-a-duration"
`)

	_, err := Load(path)
	assert.Error(t, err)
}
