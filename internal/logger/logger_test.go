package logger

import (
	"bytes"
	"context"
	"encoding/json"
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
	Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	SetFormat("json")
	Info("upload accepted", KeyFileID, "abc123", KeyBytesWritten, 5)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "upload accepted", record["msg"])
	assert.Equal(t, "abc123", record[KeyFileID])
}

func TestContextFieldsInjected(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	SetFormat("text")

	ctx := WithContext(context.Background(), &LogContext{FileID: "xyz", RequestID: "req-1"})
	InfoCtx(ctx, "reader opened")

	out := buf.String()
	assert.True(t, strings.Contains(out, "file_id=xyz"))
	assert.True(t, strings.Contains(out, "request_id=req-1"))
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	SetLevel("WARN")
	SetLevel("NOT_A_LEVEL")
	assert.Equal(t, int32(LevelWarn), currentLevel.Load())
	SetLevel("INFO")
}

func TestSetFormatIgnoresInvalid(t *testing.T) {
	SetFormat("json")
	SetFormat("xml")
	assert.Equal(t, "json", currentFormat.Load())
	SetFormat("text")
}
