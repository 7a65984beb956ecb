package logx

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(prev)
		SetDebug(false)
	})
	return &buf
}

func TestLogFormat(t *testing.T) {
	buf := captureOutput(t)

	NewLogger("dispatch").Info("routed %s", "chat")

	out := buf.String()
	if !strings.Contains(out, "[dispatch]") {
		t.Errorf("expected component in output, got: %s", out)
	}
	if !strings.Contains(out, "INFO: routed chat") {
		t.Errorf("expected level and message in output, got: %s", out)
	}
	if !strings.Contains(out, "Z]") {
		t.Errorf("expected UTC timestamp in output, got: %s", out)
	}
}

func TestDebugSuppressedUnlessEnabled(t *testing.T) {
	buf := captureOutput(t)
	logger := NewLogger("tdd")

	SetDebug(false)
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	SetDebug(true)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "DEBUG: shown")
}

func TestDomainFiltering(t *testing.T) {
	buf := captureOutput(t)
	ctx := WithComponent(context.Background(), "dispatcher")

	SetDebug(true, "tdd", "intent")
	Debug(ctx, "tdd", "phase %d", 2)
	Debug(ctx, "dispatch", "should not appear")

	out := buf.String()
	assert.Contains(t, out, "[dispatcher] DEBUG: [tdd] phase 2")
	assert.NotContains(t, out, "should not appear")
	assert.True(t, IsDebugEnabledForDomain("intent"))
	assert.False(t, IsDebugEnabledForDomain("dispatch"))
}

func TestRecentEntriesFiltersByLevel(t *testing.T) {
	captureOutput(t)
	logger := NewLogger("recent-test")

	logger.Info("info line")
	logger.Error("error line")

	entries := RecentEntries(0, LevelError)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, "recent-test", last.Component)
	assert.Equal(t, "error line", last.Message)
	for _, e := range entries {
		assert.Equal(t, string(LevelError), e.Level)
	}

	assert.Len(t, RecentEntries(1, LevelDebug), 1)
}

func TestWrap(t *testing.T) {
	captureOutput(t)

	assert.NoError(t, Wrap(nil, "noop"))

	base := errors.New("disk full")
	err := Wrap(base, "write artifact")
	require.Error(t, err)
	assert.Equal(t, "write artifact: disk full", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestDebugFlow(t *testing.T) {
	buf := captureOutput(t)
	SetDebug(true, "tdd")

	DebugFlow(WithComponent(context.Background(), "tdd"), "tdd", "workflow", "COMPLETED")
	assert.Contains(t, buf.String(), "[tdd] DEBUG: [tdd] Flow workflow: COMPLETED")
}

func TestErrorfLogsAndReturns(t *testing.T) {
	buf := captureOutput(t)

	base := errors.New("stdin closed")
	err := Errorf("failed to read input: %w", base)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, buf.String(), "[devpilot] ERROR: failed to read input: stdin closed")

	Infof("chat session started in %s", "/work")
	assert.Contains(t, buf.String(), "[devpilot] INFO: chat session started in /work")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel(" warn ")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}
