package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.True(t, logger.Core().Enabled(zap.DebugLevel))
	logger.Info("development logger ready")
	require.NoError(t, Sync(logger))
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.False(t, logger.Core().Enabled(zap.DebugLevel))
	logger.Info("production logger ready")
	require.NoError(t, Sync(logger))
}

// Not parallel: swaps the zap globals.
func TestInstallReplacesGlobals(t *testing.T) {
	logger, restore, err := Install(false)
	require.NoError(t, err)
	defer restore()

	require.Same(t, logger, zap.L())
}

func TestSyncObservedCore(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	logger.Info("flushed")
	require.NoError(t, Sync(logger))
	require.Equal(t, 1, logs.FilterMessage("flushed").Len())
}
