package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := NewLogger("loud")
	assert.Error(t, err)
}

func TestNew_FileSink(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "localesync.log")
	logger, err := New(Options{Level: "info", File: file, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.WithEventID("ev-1").Info("sync finished")
	logger.Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"sync finished"`)
	assert.Contains(t, string(data), `"event_id":"ev-1"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	_, ok := RequestID(ctx)
	assert.False(t, ok)

	ctx = WithRequestIDValue(ctx, "req-1")
	id, ok := RequestID(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-1", id)

	assert.NotNil(t, Nop().WithRequestID(ctx))
}
