// Package logging tests for structured JSON logging.
package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type entry map[string]interface{}

func decodeLines(t *testing.T, buf *bytes.Buffer) []entry {
	t.Helper()
	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e entry
		require.NoError(t, json.Unmarshal([]byte(line), &e), "line %q is not JSON", line)
		out = append(out, e)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

// TestLogger_jsonFormat verifies JSON output format.
func TestLogger_jsonFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	logger.Info("test message", map[string]interface{}{
		"string": "value",
		"number": 42,
		"bool":   true,
	})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	e := lines[0]

	assert.Equal(t, "INFO", e["level"])
	assert.Equal(t, "test message", e["message"])
	ts, ok := e["timestamp"].(string)
	require.True(t, ok, "timestamp should be a string")
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)

	assert.Equal(t, "value", e["string"])
	assert.Equal(t, float64(42), e["number"])
	assert.Equal(t, true, e["bool"])
}

func TestLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	logger.Error("read failed", io.ErrUnexpectedEOF, map[string]interface{}{"handle": 7})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Contains(t, lines[0]["error"], "unexpected EOF")
	assert.Equal(t, float64(7), lines[0]["handle"])
}

// TestLogger_filtering verifies entries below the minimum level are dropped.
func TestLogger_filtering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "ERROR", lines[1]["level"])

	buf.Reset()
	logger.SetLevel(LevelDebug)
	logger.Debug("now visible")
	assert.Len(t, decodeLines(t, &buf), 1)
}

func TestLogger_mergedContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	logger.Info("merged",
		map[string]interface{}{"a": 1, "b": "first"},
		map[string]interface{}{"b": "second"},
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(1), lines[0]["a"])
	assert.Equal(t, "second", lines[0]["b"])
}

// TestLogger_concurrentLogging verifies concurrent logging produces whole lines.
func TestLogger_concurrentLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Info("concurrent", map[string]interface{}{"goroutine": id})
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), 200)
}

func TestSetLogger(t *testing.T) {
	SetLogger(zap.NewNop())
	require.NotNil(t, Get())
	// Must not panic on a no-op core.
	Info("dropped", map[string]interface{}{"k": "v"})
	Error("dropped", io.EOF)
}
