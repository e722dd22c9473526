package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viobiscu/orion-ld-explorer/config"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("respects the configured level", func(t *testing.T) {
		logger, err := newLogger(config.ObservabilityConfig{LogLevel: "warn", LogFormat: "json"})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("debug flag overrides the level", func(t *testing.T) {
		logger, err := newLogger(config.ObservabilityConfig{LogLevel: "error", Debug: true})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("falls back to info on an unknown level", func(t *testing.T) {
		logger, err := newLogger(config.ObservabilityConfig{LogLevel: "loud"})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})
}
