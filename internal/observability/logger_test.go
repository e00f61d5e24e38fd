package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neurlyn.log")
	logger, err := NewLogger(Options{Debug: true, OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Debug("pathway activated")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "pathway activated", entry["msg"])
	assert.Equal(t, "neurlyn", entry["service"])
	assert.Contains(t, entry, "ts")
}

func TestNewLoggerDefaultLevelIsInfo(t *testing.T) {
	logger, err := NewLogger(Options{OutputPaths: []string{filepath.Join(t.TempDir(), "x.log")}})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
}
