// Package artifact persists generated files inside the workspace.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"devpilot/pkg/logx"
)

// ErrOutsideRoot is returned for paths that would escape the workspace.
var ErrOutsideRoot = errors.New("path escapes workspace root")

// Writer implements collab.FileWriter rooted at a workspace directory.
type Writer struct {
	root   string
	logger *logx.Logger
}

func NewWriter(root string) (*Writer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root %s: %w", root, err)
	}
	return &Writer{root: abs, logger: logx.NewLogger("artifact")}, nil
}

// Root returns the absolute workspace root.
func (w *Writer) Root() string {
	return w.root
}

// Resolve returns the absolute location of a workspace-relative path.
func (w *Writer) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}
	var target string
	if filepath.IsAbs(path) {
		target = filepath.Clean(path)
	} else {
		target = filepath.Join(w.root, path)
	}
	rel, err := filepath.Rel(w.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return target, nil
}

// Write creates parent directories and writes content, returning the absolute location.
func (w *Writer) Write(ctx context.Context, path, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := w.Resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logx.Debug(ctx, "artifact", "wrote %d bytes to %s", len(content), target)
	return target, nil
}

// Read returns the contents of a workspace-relative path.
func (w *Writer) Read(path string) (string, error) {
	target, err := w.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// Checksum is the hex sha256 of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
