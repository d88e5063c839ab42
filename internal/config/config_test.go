package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default("/ws")
	assert.Equal(t, "gemini-2.5-flash", cfg.Generation.Model)
	assert.Equal(t, filepath.Join("/ws", ".persona", "capabilities"), cfg.Synthesis.CapabilitiesDir)
	assert.Equal(t, filepath.Join("/ws", ".persona", "deleted_capabilities.json"), cfg.Synthesis.LedgerPath)
	assert.Equal(t, ":8590", cfg.Server.Addr)
	assert.True(t, cfg.Synthesis.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".persona"), 0o755))
	yaml := `name: tester
generation:
  model: gemini-2.5-pro
  temperature: 0.2
server:
  addr: ":9999"
`
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".persona", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "tester", cfg.Name)
	assert.Equal(t, "gemini-2.5-pro", cfg.Generation.Model)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.Chat.MaxHistoryMessages)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "persona", cfg.Name)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PERSONA_API_KEY", "key-from-env")
	t.Setenv("PERSONA_ADDR", ":7777")
	t.Setenv("PERSONA_DEBUG", "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.Generation.APIKey)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestValidateRejectsBadDurations(t *testing.T) {
	cfg := Default(".")
	cfg.Generation.Timeout = "not-a-duration"
	assert.Error(t, cfg.Validate())

	cfg = Default(".")
	cfg.Synthesis.ExecutionTimeout = "5 parsecs"
	assert.Error(t, cfg.Validate())

	cfg = Default(".")
	cfg.Chat.MaxHistoryMessages = -1
	assert.Error(t, cfg.Validate())
}
