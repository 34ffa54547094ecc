package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "250ms", expected: 250 * time.Millisecond},
		{input: "30s", expected: 30 * time.Second},
		{input: "1h30m45s", expected: time.Hour + 30*time.Minute + 45*time.Second},
		{input: "0s", expected: 0},
		{input: "100", wantErr: true},
		{input: "100x", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, d.Duration)
		})
	}
}

func TestDuration_Formats(t *testing.T) {
	type holder struct {
		Timeout Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	}

	t.Run("json", func(t *testing.T) {
		var h holder
		require.NoError(t, json.Unmarshal([]byte(`{"timeout":"1h30m"}`), &h))
		require.Equal(t, 90*time.Minute, h.Timeout.Duration)

		out, err := json.Marshal(holder{Timeout: NewDuration(5 * time.Minute)})
		require.NoError(t, err)
		require.JSONEq(t, `{"timeout":"5m0s"}`, string(out))
	})

	t.Run("yaml", func(t *testing.T) {
		var h holder
		require.NoError(t, yaml.Unmarshal([]byte("timeout: 250ms\n"), &h))
		require.Equal(t, 250*time.Millisecond, h.Timeout.Duration)

		require.Error(t, yaml.Unmarshal([]byte("timeout: soon\n"), &h))
	})

	t.Run("toml", func(t *testing.T) {
		var h holder
		_, err := toml.Decode(`timeout = "12s"`, &h)
		require.NoError(t, err)
		require.Equal(t, 12*time.Second, h.Timeout.Duration)
	})

	t.Run("env decoder", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.Decode("2m"))
		require.Equal(t, 2*time.Minute, d.Duration)
	})
}

func TestDuration_JSONSchema(t *testing.T) {
	schema := Duration{}.JSONSchema()
	require.Equal(t, "string", schema.Type)
	require.Equal(t, "Duration", schema.Title)
	require.Contains(t, schema.Examples, "300ms")
}
