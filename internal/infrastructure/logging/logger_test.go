package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
}

func TestNewBuildsLevel(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestSetLevelReachesChildren(t *testing.T) {
	logger, err := New(Config{})
	require.NoError(t, err)
	child := logger.Named("mirror")
	assert.False(t, child.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, logger.SetLevel("debug"))
	assert.True(t, child.Core().Enabled(zapcore.DebugLevel))
	assert.Error(t, logger.SetLevel("loud"))
}

func TestNilLoggerHelpers(t *testing.T) {
	var l *Logger
	assert.NotNil(t, l.Named("mirror"))
	assert.NotNil(t, OrNop(nil))
	assert.NotPanics(t, func() { l.Named("x").Info("discarded") })
}

func TestEncoderConfig(t *testing.T) {
	assert.Equal(t, "console", encodingFormat(true))
	assert.Equal(t, "json", encodingFormat(false))
	assert.Equal(t, "component", encoderConfig(false).NameKey)
	assert.Equal(t, "N", encoderConfig(true).NameKey)
}
