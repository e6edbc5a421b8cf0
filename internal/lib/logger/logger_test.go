package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmike/ttlcache/internal/lib/logger"
)

func TestNew(t *testing.T) {
	t.Run("json with static attrs", func(t *testing.T) {
		var buf bytes.Buffer
		l := logger.New(logger.WithOutput(&buf), logger.WithAttr(slog.String("service", "ttlcache")))
		l.Info("hello")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "hello", rec["msg"])
		assert.Equal(t, "ttlcache", rec["service"])
	})

	t.Run("text format honours level", func(t *testing.T) {
		var buf bytes.Buffer
		l := logger.New(
			logger.WithOutput(&buf),
			logger.WithFormat(logger.FormatText),
			logger.WithLevel(slog.LevelWarn),
		)
		l.Info("dropped")
		l.Warn("kept")
		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "msg=kept")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		assert.Panics(t, func() { logger.New(logger.WithFormat("xml")) })
	})
}

func TestParseLevel(t *testing.T) {
	l, err := logger.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	l, err = logger.ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = logger.ParseLevel("loud")
	assert.Error(t, err)
}

func TestHooks(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelDebug))
	h := logger.Hooks(l)

	h.Run(h.OnHit, "k1")
	h.Run(h.OnExpire, 7)
	h.Error(errors.New("producer failed"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "hit", rec["event"])
	assert.Equal(t, "k1", rec["key"])
	assert.Equal(t, "ttlcache", rec["component"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "expire", rec["event"])
	assert.Equal(t, float64(7), rec["key"])

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "producer failed", rec["error"])
}

func TestHooks_NilLogger(t *testing.T) {
	h := logger.Hooks(nil)
	assert.NotPanics(t, func() {
		h.Run(h.OnHit, "k")
		h.Error(errors.New("x"))
	})
}
