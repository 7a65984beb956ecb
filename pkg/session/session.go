// Package session holds the mutable state shared by every dispatch in one editing session.
package session

import (
	"fmt"
	"strings"
	"time"
)

// Options seeds a new Session.
type Options struct {
	WorkspaceRoot      string
	AgentMode          bool
	TddMode            bool
	UiTddMode          bool
	HistoryLimit       int
	HistoryTokenBudget int
}

// Session is the per-session context passed explicitly into every dispatch and workflow run.
// It is not safe for concurrent dispatches; callers process one message at a time.
type Session struct {
	History *History

	// Manifests maps a manifest key (e.g. "package.json") to its dependency name -> version map.
	Manifests map[string]map[string]string

	TechStack       Optional[string]
	TestFramework   Optional[string]
	UiTestFramework Optional[string]

	WorkspaceRoot string

	AgentMode       bool
	TddMode         bool
	UiTddMode       bool
	CodebaseIndexed bool
}

// New creates a session with an empty, redacting history.
func New(opts Options) *Session {
	return &Session{
		WorkspaceRoot: opts.WorkspaceRoot,
		AgentMode:     opts.AgentMode,
		TddMode:       opts.TddMode,
		UiTddMode:     opts.UiTddMode,
		History:       NewHistory(opts.HistoryLimit, opts.HistoryTokenBudget, NewPatternScanner(200*time.Millisecond)),
	}
}

// Manifest returns the dependency map indexed under key.
func (s *Session) Manifest(key string) (map[string]string, bool) {
	if s.Manifests == nil {
		return nil, false
	}
	deps, ok := s.Manifests[key]
	return deps, ok
}

// SetManifests installs indexed manifest data and marks the codebase as indexed when any exists.
func (s *Session) SetManifests(m map[string]map[string]string) {
	s.Manifests = m
	s.CodebaseIndexed = len(m) > 0
}

// ResetConfiguration clears the detected or selected stack and frameworks.
func (s *Session) ResetConfiguration() {
	s.TechStack = None[string]()
	s.TestFramework = None[string]()
	s.UiTestFramework = None[string]()
}

// Describe renders flags and configuration for status output.
func (s *Session) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "agent mode: %s\n", onOff(s.AgentMode))
	fmt.Fprintf(&sb, "tdd mode: %s\n", onOff(s.TddMode))
	fmt.Fprintf(&sb, "ui tdd mode: %s\n", onOff(s.UiTddMode))
	fmt.Fprintf(&sb, "codebase indexed: %t\n", s.CodebaseIndexed)
	fmt.Fprintf(&sb, "tech stack: %s\n", s.TechStack)
	fmt.Fprintf(&sb, "test framework: %s\n", s.TestFramework)
	fmt.Fprintf(&sb, "ui test framework: %s", s.UiTestFramework)
	return sb.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
