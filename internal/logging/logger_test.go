package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	assert.True(t, New("dev").Core().Enabled(zapcore.DebugLevel))
	assert.True(t, New("local").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("production").Core().Enabled(zapcore.DebugLevel))
	assert.True(t, New("production").Core().Enabled(zapcore.InfoLevel))
}

func TestNewToWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTo("production", zapcore.AddSync(&buf))
	logger.Info("hello")
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"env":"production"`)
}
