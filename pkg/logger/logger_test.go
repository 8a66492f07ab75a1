package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New(t *testing.T) {
	t.Run("Should write structured key-value pairs to the configured output", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&Config{Level: "info", Output: &buf})
		log.Info("running task", "task", "build")
		out := buf.String()
		assert.Contains(t, out, "running task")
		assert.Contains(t, out, "task=build")
	})
	t.Run("Should suppress records below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&Config{Level: "warn", Output: &buf})
		log.Debug("quiet")
		log.Info("quiet too")
		log.Warn("loud")
		log.Error("louder")
		out := buf.String()
		assert.NotContains(t, out, "quiet")
		assert.Contains(t, out, "loud")
		assert.Contains(t, out, "louder")
	})
	t.Run("Should emit one JSON object per record when configured", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&Config{Level: "info", Output: &buf, JSON: true})
		log.Info("running task", "task", "build")
		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "running task", record["msg"])
		assert.Equal(t, "build", record["task"])
	})
	t.Run("Should fall back to info for unknown levels", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&Config{Level: "loud", Output: &buf})
		log.Debug("hidden")
		log.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func Test_Default(t *testing.T) {
	t.Run("Should expose a usable package-level logger", func(t *testing.T) {
		require.NotNil(t, Default())
	})
}
