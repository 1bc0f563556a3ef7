package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw    string
		want   zerolog.Level
		wantOK bool
	}{
		{raw: "debug", want: zerolog.DebugLevel, wantOK: true},
		{raw: " WARNING ", want: zerolog.WarnLevel, wantOK: true},
		{raw: "off", want: zerolog.Disabled, wantOK: true},
		{raw: "", want: zerolog.InfoLevel},
		{raw: "loud", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseLevel(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "info", JSON: true})

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "ev3cmd", lines[0]["app"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "debug", NoColor: true})
	log.Debug().Str("device", "/dev/rfcomm0").Msg("opening")

	assert.Contains(t, buf.String(), "opening")
	assert.Contains(t, buf.String(), "device=/dev/rfcomm0")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogJSON, "true")

	var buf bytes.Buffer
	log := New(&buf, Options{Level: "debug"})
	log.Info().Msg("hidden")
	log.Error().Msg("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv(EnvLogLevel, "shouting")
	t.Setenv(EnvLogJSON, "maybe")

	opts := Options{Level: "debug"}
	applyEnvOverrides(&opts)
	assert.Equal(t, "debug", opts.Level)
	assert.False(t, opts.JSON)
}

func TestAdapter(t *testing.T) {
	var buf bytes.Buffer
	a := NewAdapter(New(&buf, Options{Level: "debug", JSON: true}))

	a.Debug("sending request", "command", "DELETE_FILE", "counter", 3)
	a.Info("command rejected", "code", 5)
	a.Error("unable to read reply", "error", errors.New("timed out"), "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "DELETE_FILE", lines[0]["command"])
	assert.Equal(t, float64(3), lines[0]["counter"])

	assert.Equal(t, "info", lines[1]["level"])
	assert.Equal(t, float64(5), lines[1]["code"])

	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "timed out", lines[2]["error"])
	assert.Equal(t, "dangling", lines[2]["!BADKEY"])
}

func TestAdapterDisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	a := NewAdapter(New(&buf, Options{Level: "error", JSON: true}))
	a.Debug("quiet", "k", "v")
	assert.Empty(t, buf.String())
}
