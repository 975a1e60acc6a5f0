package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewPresets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want zapcore.Level
	}{
		{name: "development", cfg: Config{Development: true}, want: zapcore.DebugLevel},
		{name: "production", cfg: Config{}, want: zapcore.InfoLevel},
		{name: "explicit level", cfg: Config{Development: true, Level: "warn"}, want: zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			assert.False(t, logger.Core().Enabled(tt.want-1))
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Level: "chatty"})
	require.ErrorContains(t, err, "logging.level")
}

func TestForCommandAddsFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ForCommand(zap.New(core), "scrape", "keejob").Info("started")
	ForCommand(zap.New(core), "load", "").Info("started")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"cmd": "scrape", "source": "keejob"}, entries[0].ContextMap())
	assert.Equal(t, map[string]any{"cmd": "load"}, entries[1].ContextMap())
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, OrNop(nil))
	logger := zap.NewExample()
	assert.Same(t, logger, OrNop(logger))
}
