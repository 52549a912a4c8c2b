package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelWarn), 1)
		AssertLogContains(t, handler, slog.LevelWarn, "warn")
	})

	t.Run("derived loggers keep attrs and share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "walker")).Warn("cycle detected")
		logger.WithGroup("req").Info("done", slog.Int("status", 200))

		AssertLogAttr(t, handler, "component", "walker")
		AssertLogAttr(t, handler, "req.status", int64(200))
		assert.Equal(t, 2, handler.Count())
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 1")
		assert.Equal(t, 2, handler.CountMessage("message 1"))

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
		AssertNoErrors(t, handler)
	})
}

func TestWriteDocuments(t *testing.T) {
	dir := WriteDocuments(t, ScenarioValueJSON, "", MarketStructureJSON)

	_, err := os.Stat(filepath.Join(dir, ValueFileName))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, StructureFileName))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, VolumeFileName))
	assert.True(t, os.IsNotExist(err))
}
