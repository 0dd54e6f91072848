package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"niimctl/host/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
}

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(config.LoggingConfig{Level: "warn"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Info("quiet")
	log.Warn("loud", zap.String("step", "page_end"))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "page_end")
}

func TestJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "niimctl.log")
	var buf bytes.Buffer
	log, err := newLogger(config.LoggingConfig{
		Level:  "debug",
		Format: "json",
		File:   config.LumberjackConfig{Filename: path, MaxSizeMB: 1},
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Debug("frame", zap.String("cmd", "set_density"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"frame"`)
	assert.Contains(t, string(data), `"cmd":"set_density"`)
	assert.Equal(t, buf.String(), string(data))
}
