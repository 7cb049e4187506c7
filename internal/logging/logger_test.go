package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mareeba/internal/config"
)

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := New(config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	}, config.AppConfig{Name: "mareeba", Environment: "test", Version: "dev"})
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Str("event", "booking_created").Msg("test entry")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "mareeba", entry["app"])
	assert.Equal(t, "booking_created", entry["event"])
	assert.Equal(t, "test entry", entry["message"])
}

func TestNewFileOutputRequiresPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, config.AppConfig{})
	assert.Error(t, err)
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{Level: "nonsense"}, config.AppConfig{})
	require.NoError(t, err)
	require.Nil(t, closer)
	assert.Equal(t, "info", logger.GetLevel().String())
}
