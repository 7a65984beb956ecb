package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"ask", "index", "runs", "secrets", "config"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("project"))
}

func TestRenderResponseKeepsText(t *testing.T) {
	assert.Equal(t, "plain reply", renderResponse("plain reply"))
	assert.Contains(t, renderResponse("✅ done\nsecond line"), "second line")
	assert.Contains(t, renderResponse("❌ failed"), "failed")
}

func TestDecliningPrompter(t *testing.T) {
	choice, ok, err := decliningPrompter{}.Select(context.Background(), "pick", []string{"a"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, choice)
}

func TestNewAppDispatchesInFreshWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/demo\n\ngo 1.22\n"), 0o644))

	a, err := newApp(context.Background(), dir, false)
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.session.CodebaseIndexed)
	assert.FileExists(t, filepath.Join(dir, ".devpilot", "devpilot.log"))

	out := a.dispatch(context.Background(), "/mode tdd on")
	assert.Equal(t, "✅ tdd mode on", out)
	assert.True(t, a.session.TddMode)
}

func TestNewAppLogsStartupFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".devpilot"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devpilot", "config.json"), []byte("{not json"), 0o644))

	_, err := newApp(context.Background(), dir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")

	logged, readErr := os.ReadFile(filepath.Join(dir, ".devpilot", "devpilot.log"))
	require.NoError(t, readErr)
	assert.Contains(t, string(logged), "ERROR: failed to load configuration")
}
