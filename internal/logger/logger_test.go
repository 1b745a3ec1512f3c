package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()
	reconfigure()

	return buf, func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}
}

func TestLevelFiltering(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	Debug("debug message")
	Info("info message")
	Warn("warn message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	SetFormat("json")
	defer SetFormat("text")

	Info("acquired lease", "resource", "tenant-1")

	require.Contains(t, buf.String(), `"resource":"tenant-1"`)
}

func TestContextFieldsAreInjected(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("DEBUG")

	lc := &LogContext{Resource: "tenant-1", Scope: "billing"}
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "acquiring")

	out := buf.String()
	assert.Contains(t, out, "resource=tenant-1")
	assert.Contains(t, out, "scope=billing")
}

func TestLogContextWithLeaseIsImmutable(t *testing.T) {
	base := &LogContext{TraceID: "t1"}
	derived := base.WithLease("tenant-1", "default", "abc123")

	assert.Equal(t, "", base.Resource)
	assert.Equal(t, "tenant-1", derived.Resource)
	assert.Equal(t, "t1", derived.TraceID)
}

func TestFromContextNilSafe(t *testing.T) {
	assert.Nil(t, FromContext(nil))
	assert.Nil(t, FromContext(context.Background()))

	var lc *LogContext
	assert.Nil(t, lc.Fields())
	assert.Nil(t, lc.Clone())
}

func TestSetLevelIgnoresInvalidValue(t *testing.T) {
	SetLevel("WARN")
	SetLevel("NOT_A_LEVEL")
	assert.Equal(t, LevelWarn, Level(currentLevel.Load()))
	SetLevel("INFO")
}

func TestSetFormatIgnoresInvalidValue(t *testing.T) {
	SetFormat("json")
	SetFormat("xml")
	assert.Equal(t, "json", currentFormat.Load())
	SetFormat("text")
}

func TestColorTextHandlerFormatsAttrs(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetFormat("text")
	SetLevel("DEBUG")

	Info("tick", "queue_depth", 3, "acquired", true)

	out := buf.String()
	assert.True(t, strings.Contains(out, "queue_depth=3"))
	assert.True(t, strings.Contains(out, "acquired=true"))
}
