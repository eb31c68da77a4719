package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		opts      Options
		wantLevel zapcore.Level
	}{
		{name: "development", opts: Options{Development: true}, wantLevel: zapcore.DebugLevel},
		{name: "production", opts: Options{}, wantLevel: zapcore.InfoLevel},
		{name: "explicit level", opts: Options{Level: "warn"}, wantLevel: zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, err := New(tt.opts)
			require.NoError(t, err)
			defer logger.Sync() //nolint:errcheck // best-effort flush
			require.True(t, logger.Core().Enabled(tt.wantLevel))
			require.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "loud"})
	require.ErrorContains(t, err, "parse log level")
}
