package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/verdandi/internal/config"
)

func appConfig(format, level string) *config.AppConfig {
	return &config.AppConfig{
		Name:        "verdandi",
		Version:     "test",
		Environment: "development",
		LogLevel:    level,
		LogFormat:   format,
	}
}

func TestNewWithWriter_JSONCarriesIdentityAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(appConfig("json", "info"), &buf)
	log.Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "verdandi", line["service"])
	assert.Equal(t, "test", line["version"])
	assert.Equal(t, "development", line["env"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(appConfig("json", "warn"), &buf)

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewWithWriter_UnknownFormatDefaultsToJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(appConfig("xml", "info"), &buf)
	log.Info("hello")

	var line map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &line))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"), "unknown levels default to info")
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(appConfig("json", "info"), &buf)

	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))

	// A bare context still yields a usable logger.
	assert.NotNil(t, FromContext(context.Background()))
}
