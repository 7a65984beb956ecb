package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := NewWriter(root)
	require.NoError(t, err)

	loc, err := w.Write(context.Background(), "tests/ui/login_1234abcd.spec.ts", "test('x', () => {})\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Root(), "tests", "ui", "login_1234abcd.spec.ts"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "test('x', () => {})\n", string(data))

	got, err := w.Read("tests/ui/login_1234abcd.spec.ts")
	require.NoError(t, err)
	assert.Equal(t, string(data), got)
}

func TestWriteRejectsEscapes(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"../outside.txt", "src/../../x", "/etc/passwd"} {
		_, err := w.Write(context.Background(), p, "x")
		assert.ErrorIs(t, err, ErrOutsideRoot, p)
	}
	_, err = w.Write(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestWriteHonorsCancellation(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Write(ctx, "a.txt", "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractCode(t *testing.T) {
	reply := "Here you go:\n```go\nfunc Add(a, b int) int { return a + b }\n```\nand a second:\n```\nignored\n```"
	assert.Equal(t, "func Add(a, b int) int { return a + b }\n", ExtractCode(reply))
	assert.Equal(t, "go", FenceLanguage(reply))

	assert.Equal(t, "plain text\n", ExtractCode("  plain text \n"))
	assert.Equal(t, "real\n", ExtractCode("```\n\n```\n```js\nreal\n```"))
	assert.Equal(t, "\n", ExtractCode("Nothing to change:\n```go\n\n```"))
	assert.Equal(t, "\n", ExtractCode(""))
	assert.Equal(t, "", FenceLanguage("no fences"))
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Checksum(""))
	assert.NotEqual(t, Checksum("a"), Checksum("b"))
}
