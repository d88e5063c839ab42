package synthesis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deleted.json")

	l, err := OpenLedger(path)
	require.NoError(t, err)
	assert.False(t, l.Contains("currency_converter"))

	require.NoError(t, l.Append("currency_converter"))
	require.NoError(t, l.Append("weather_forecast"))
	assert.True(t, l.Contains("currency_converter"))

	// Appending twice is a no-op.
	require.NoError(t, l.Append("currency_converter"))
	assert.Equal(t, []string{"currency_converter", "weather_forecast"}, l.Names())

	reopened, err := OpenLedger(path)
	require.NoError(t, err)
	assert.True(t, reopened.Contains("currency_converter"))
	assert.True(t, reopened.Contains("weather_forecast"))
}

func TestLedgerCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deleted.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l, err := OpenLedger(path)
	require.NoError(t, err)
	assert.Empty(t, l.Names())
}

func TestLedgerMissingFile(t *testing.T) {
	l, err := OpenLedger(filepath.Join(t.TempDir(), "nope", "deleted.json"))
	require.NoError(t, err)
	assert.False(t, l.Contains("anything"))

	// First append creates the parent directory.
	require.NoError(t, l.Append("anything"))
	assert.True(t, l.Contains("anything"))
}
