package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_LevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	l, err := New("game-engine", "prod")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := New("game-engine", "local")
	assert.Error(t, err)
}
