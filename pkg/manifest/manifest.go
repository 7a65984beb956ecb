// Package manifest indexes a workspace's dependency manifests into a
// manifest-key -> dependency-name -> version lookup.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"devpilot/pkg/logx"
)

// Well-known manifest keys.
const (
	PackageJSON     = "package.json"
	GoMod           = "go.mod"
	PyProject       = "pyproject.toml"
	RequirementsTxt = "requirements.txt"
	CargoToml       = "Cargo.toml"
	Pubspec         = "pubspec.yaml"
)

// Dependencies maps a dependency name to its declared version constraint.
type Dependencies map[string]string

// Parser extracts dependencies from one manifest file's content.
type Parser interface {
	// Key is the manifest file name the parser handles.
	Key() string
	Parse(content []byte) (Dependencies, error)
}

// Index is the result of scanning a workspace.
type Index map[string]Dependencies

// AsLookup converts the index into the plain map shape sessions store.
func (ix Index) AsLookup() map[string]map[string]string {
	out := make(map[string]map[string]string, len(ix))
	for k, deps := range ix {
		out[k] = map[string]string(deps)
	}
	return out
}

// Keys returns the indexed manifest keys in sorted order.
func (ix Index) Keys() []string {
	keys := make([]string, 0, len(ix))
	for k := range ix {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Indexer scans a workspace root with a set of parsers.
type Indexer struct {
	logger  *logx.Logger
	parsers []Parser
}

// NewIndexer returns an indexer with every built-in parser.
func NewIndexer() *Indexer {
	return &Indexer{
		logger: logx.NewLogger("manifest"),
		parsers: []Parser{
			packageJSONParser{},
			goModParser{},
			pyProjectParser{},
			requirementsParser{},
			cargoParser{},
			pubspecParser{},
		},
	}
}

// Register adds or replaces the parser for p.Key().
func (ix *Indexer) Register(p Parser) {
	for i, existing := range ix.parsers {
		if existing.Key() == p.Key() {
			ix.parsers[i] = p
			return
		}
	}
	ix.parsers = append(ix.parsers, p)
}

// Index reads every known manifest directly under root. Missing manifests are skipped;
// a manifest that exists but cannot be parsed fails the whole index.
func (ix *Indexer) Index(root string) (Index, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat workspace %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", root)
	}

	result := make(Index)
	for _, p := range ix.parsers {
		path := filepath.Join(root, p.Key())
		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		deps, err := p.Parse(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p.Key(), err)
		}
		result[p.Key()] = deps
		ix.logger.Debug("indexed %s: %d dependencies", p.Key(), len(deps))
	}
	return result, nil
}
