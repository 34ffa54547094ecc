package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		wantErr     bool
	}{
		{name: "debug production", level: "debug"},
		{name: "warn development", level: "warn", development: true},
		{name: "error production", level: "error"},
		{name: "invalid level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.level, tt.development)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, l)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.level, l.GetLevel())
			require.Empty(t, l.GetComponent())
		})
	}
}

func TestLogger_SetLevelIsShared(t *testing.T) {
	base, err := NewLogger("info", false)
	require.NoError(t, err)

	ledger := base.WithComponent("ledger")
	store := base.WithComponent("store")
	require.Equal(t, "ledger", ledger.GetComponent())
	require.Equal(t, "store", store.GetComponent())

	require.NoError(t, base.SetLevel("debug"))
	require.Equal(t, "debug", ledger.GetLevel())
	require.Equal(t, "debug", store.GetLevel())
	require.True(t, ledger.atomicLevel.Enabled(zapcore.DebugLevel))

	require.Error(t, ledger.SetLevel("nope"))
	require.Equal(t, "debug", base.GetLevel())
}

type stubLoggingConfig struct {
	defaultLevel    string
	development     bool
	componentLevels map[string]string
}

func (s *stubLoggingConfig) GetComponentLevel(component string) string {
	if level, ok := s.componentLevels[component]; ok {
		return level
	}
	return s.defaultLevel
}

func (s *stubLoggingConfig) GetDefaultLevel() string { return s.defaultLevel }

func (s *stubLoggingConfig) IsDevelopment() bool { return s.development }

func TestNewComponentLoggerFromConfig(t *testing.T) {
	tests := []struct {
		name          string
		component     string
		config        LoggingConfig
		expectedLevel string
	}{
		{
			name:      "component override",
			component: "ledger",
			config: &stubLoggingConfig{
				defaultLevel:    "info",
				componentLevels: map[string]string{"ledger": "debug"},
			},
			expectedLevel: "debug",
		},
		{
			name:          "default level",
			component:     "store",
			config:        &stubLoggingConfig{defaultLevel: "warn"},
			expectedLevel: "warn",
		},
		{
			name:          "nil config",
			component:     "api",
			config:        nil,
			expectedLevel: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewComponentLoggerFromConfig(tt.component, tt.config)
			require.Equal(t, tt.component, l.GetComponent())
			require.Equal(t, tt.expectedLevel, l.GetLevel())
		})
	}
}

func TestNewComponentLogger_PanicsOnInvalidLevel(t *testing.T) {
	require.Panics(t, func() {
		_ = NewComponentLogger("rewards", "verbose", false)
	})
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Infow("discarded", "k", "v")
	l.WithComponent("x").Warn("discarded")
	require.Equal(t, "info", l.GetLevel())
}

func TestNewFromZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewFromZap(zap.New(core)).WithComponent("ledger")

	l.Debug("filtered by the core")
	l.Infow("applied", "block", 7)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "applied", entry.Message)
	require.Equal(t, "ledger", entry.ContextMap()["component"])
	require.Equal(t, "ledger", l.GetComponent())
}
