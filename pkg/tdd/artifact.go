package tdd

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"devpilot/pkg/stack"
)

// Kind classifies a generated artifact.
type Kind string

const (
	KindUnitTest       Kind = "unit_test"
	KindUiTest         Kind = "ui_test"
	KindImplementation Kind = "implementation"
)

// Label is the human form of k.
func (k Kind) Label() string {
	return strings.ReplaceAll(string(k), "_", " ")
}

// Artifact is a generated file. Artifacts are never rewritten; each run creates new ones.
type Artifact struct {
	ID       string
	Kind     Kind
	Path     string
	Location string
	Content  string
	Checksum string
}

// uiTestSuffixes gives UI test file suffixes where they differ from the stack's unit tests.
var uiTestSuffixes = map[string]string{
	"Playwright":               ".spec.js",
	"Cypress":                  ".cy.js",
	"Flutter integration test": "_test.dart",
}

// plan reserves ids and paths for one run's artifacts.
type plan struct {
	unitTest       Artifact
	uiTest         Artifact
	implementation Artifact
}

func newPlan(slug string, st stack.Stack, uiFramework string, dirs Dirs) plan {
	testSuffix, srcExt := st.TestSuffix, st.SourceExt
	if srcExt == "" {
		srcExt, testSuffix = ".txt", ".test.txt"
	}
	uiSuffix := testSuffix
	if s, ok := uiTestSuffixes[uiFramework]; ok {
		uiSuffix = s
	}

	reserve := func(kind Kind, dir, prefix, suffix string) Artifact {
		id := uuid.NewString()
		name := fmt.Sprintf("%s%s_%s%s", prefix, slug, id[:8], suffix)
		return Artifact{ID: id, Kind: kind, Path: path.Join(dir, name)}
	}

	return plan{
		unitTest:       reserve(KindUnitTest, dirs.Tests, st.TestPrefix, testSuffix),
		uiTest:         reserve(KindUiTest, dirs.UITests, st.TestPrefix, uiSuffix),
		implementation: reserve(KindImplementation, dirs.Src, "", srcExt),
	}
}

// Dirs are the workspace-relative output directories.
type Dirs struct {
	Tests   string
	UITests string
	Src     string
}

// DefaultDirs are used when no configuration overrides them.
func DefaultDirs() Dirs {
	return Dirs{Tests: "tests", UITests: "tests/ui", Src: "src"}
}

//nolint:gochecknoglobals // fixed keyword list
var uiKeywords = map[string]bool{
	"component": true, "form": true, "button": true, "modal": true, "page": true,
	"ui": true, "interface": true, "view": true, "screen": true,
}

// IsUIRequest reports whether message mentions a UI term. Simple plurals count.
func IsUIRequest(message string) bool {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	for _, w := range words {
		if uiKeywords[w] || (strings.HasSuffix(w, "s") && uiKeywords[strings.TrimSuffix(w, "s")]) {
			return true
		}
	}
	return false
}
