// Package collab declares the external capabilities that commands and the TDD workflow call:
// the agent, the test runner, the file writer, the interactive prompter, and optional stores.
package collab

import (
	"context"
	"time"
)

// AgentClient sends a prompt to the coding agent and returns its generated text.
type AgentClient interface {
	SendMessage(ctx context.Context, prompt string) (string, error)
}

// Outcome is the result class of a test run.
type Outcome string

const (
	OutcomePassing Outcome = "passing"
	OutcomeFailing Outcome = "failing"
	OutcomeError   Outcome = "error"
)

// TestReport is what a test run produced.
type TestReport struct {
	Outcome  Outcome
	Failed   []string
	Output   string
	ExitCode int
	Duration time.Duration
}

// Passed reports whether the run passed.
func (r TestReport) Passed() bool {
	return r.Outcome == OutcomePassing
}

// TestRunner executes a framework's tests. A returned error means the runner itself could not
// operate; test failures and errors inside the suite are reported through the TestReport.
type TestRunner interface {
	Run(ctx context.Context, framework string) (TestReport, error)
}

// FileWriter persists content at a workspace-relative path and returns where it landed.
type FileWriter interface {
	Write(ctx context.Context, path, content string) (location string, err error)
}

// Prompter asks the user to pick one option. ok is false when the user declines.
type Prompter interface {
	Select(ctx context.Context, title string, options []string) (choice string, ok bool, err error)
}

// GlossaryTerm is a project vocabulary entry.
type GlossaryTerm struct {
	Term       string
	Definition string
	UpdatedAt  time.Time
}

// GlossaryStore persists project vocabulary.
type GlossaryStore interface {
	AddTerm(ctx context.Context, term, definition string) error
	ListTerms(ctx context.Context) ([]GlossaryTerm, error)
}

// ArtifactRecord describes one persisted workflow artifact.
type ArtifactRecord struct {
	ID       string
	Kind     string
	Path     string
	Checksum string
}

// RunRecord summarizes one TDD workflow run.
type RunRecord struct {
	StartedAt     time.Time
	FinishedAt    time.Time
	ID            string
	Request       string
	FinalState    string
	AbortReason   string
	TechStack     string
	TestFramework string
	UiFramework   string
	States        []string
	Artifacts     []ArtifactRecord
}

// RunLog records workflow runs.
type RunLog interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// Collaborators bundles everything a command or workflow may call.
// Glossary and Runs are optional and may be nil.
type Collaborators struct {
	Agent    AgentClient
	Runner   TestRunner
	Writer   FileWriter
	Prompter Prompter
	Glossary GlossaryStore
	Runs     RunLog
}
