package tdd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpilot/internal/mocks"
	"devpilot/pkg/collab"
	"devpilot/pkg/config"
	"devpilot/pkg/session"
)

const (
	testReply = "```go\nfunc TestGreeting(t *testing.T) {}\n```"
	implReply = "```go\nfunc Greeting() string { return \"hi\" }\n```"
)

type harness struct {
	agent    *mocks.Agent
	runner   *mocks.Runner
	writer   *mocks.Writer
	prompter *mocks.Prompter
	runs     *mocks.RunLog
}

func newHarness(prompter *mocks.Prompter, outcomes ...collab.Outcome) *harness {
	agent := mocks.NewAgent()
	agent.RespondInSequence(testReply, testReply, implReply)
	return &harness{
		agent:    agent,
		runner:   mocks.NewRunner(outcomes...),
		writer:   mocks.NewWriter(),
		prompter: prompter,
		runs:     &mocks.RunLog{},
	}
}

func (h *harness) collaborators() collab.Collaborators {
	c := collab.Collaborators{
		Agent:  h.agent,
		Runner: h.runner,
		Writer: h.writer,
		Runs:   h.runs,
	}
	if h.prompter != nil {
		c.Prompter = h.prompter
	}
	return c
}

func indexedGoSession() *session.Session {
	s := session.New(session.Options{AgentMode: true, TddMode: true})
	s.SetManifests(map[string]map[string]string{"go.mod": {"github.com/stretchr/testify": "v1.11.1"}})
	return s
}

func TestTransitions(t *testing.T) {
	for from, next := range Transitions {
		if from.IsTerminal() {
			assert.Empty(t, next, "%s is terminal", from)
			continue
		}
		assert.True(t, IsValidTransition(from, StateAborted), "%s must be able to abort", from)
	}

	assert.True(t, IsValidTransition(StateStart, StateSelectingStack))
	assert.True(t, IsValidTransition(StateGeneratingUnitTest, StateVerifyingInitialFailure))
	assert.False(t, IsValidTransition(StateVerifyingInitialFailure, StateGeneratingUnitTest))
	assert.False(t, IsValidTransition(StateGeneratingUnitTest, StateGeneratingImplementation))
	assert.False(t, IsValidTransition(StateCompleted, StateAborted))
	assert.Equal(t, "verifying initial failure", StateVerifyingInitialFailure.Label())
}

func TestIsUIRequest(t *testing.T) {
	assert.True(t, IsUIRequest("Add a login form"))
	assert.True(t, IsUIRequest("the Buttons should be blue"))
	assert.True(t, IsUIRequest("render a settings screen"))
	assert.False(t, IsUIRequest("parse ISO dates"))
	assert.False(t, IsUIRequest("review the uploader"))
}

func TestPrematurePassNeverGeneratesImplementation(t *testing.T) {
	h := newHarness(nil, collab.OutcomePassing)
	result := NewOrchestrator().Run(context.Background(), "create a greeting function", indexedGoSession(), h.collaborators())

	assert.Equal(t, StateAborted, result.FinalState)
	assert.Equal(t, StateVerifyingInitialFailure, result.Phase)
	assert.True(t, result.PrematurePass)
	assert.Empty(t, result.ArtifactsOf(KindImplementation))
	assert.Equal(t, 0, h.agent.PromptsContaining("Write the implementation"))
	assert.Equal(t, 1, h.agent.Calls())

	out := result.Render()
	assert.Contains(t, out, "⚠️")
	assert.Contains(t, out, "🛑 TDD workflow aborted at verifying initial failure")
}

func TestUIRequestGeneratesUnitAndUITestsBeforeImplementation(t *testing.T) {
	h := newHarness(mocks.NewPrompter("React", "Jest", "Playwright"), collab.OutcomeFailing, collab.OutcomeFailing, collab.OutcomePassing)
	s := session.New(session.Options{AgentMode: true, TddMode: true, UiTddMode: true})

	result := NewOrchestrator().Run(context.Background(), "create a login form component", s, h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState, result.AbortReason)
	require.Len(t, result.Artifacts, 3)
	assert.Equal(t, KindUnitTest, result.Artifacts[0].Kind)
	assert.Equal(t, KindUiTest, result.Artifacts[1].Kind)
	assert.Equal(t, KindImplementation, result.Artifacts[2].Kind)

	assert.True(t, strings.HasPrefix(result.Artifacts[0].Path, "tests/"))
	assert.True(t, strings.HasSuffix(result.Artifacts[0].Path, ".test.jsx"))
	assert.True(t, strings.HasPrefix(result.Artifacts[1].Path, "tests/ui/"))
	assert.True(t, strings.HasSuffix(result.Artifacts[1].Path, ".spec.js"))
	assert.True(t, strings.HasPrefix(result.Artifacts[2].Path, "src/"))
	assert.True(t, strings.HasSuffix(result.Artifacts[2].Path, ".jsx"))

	assert.Equal(t, []string{"Jest", "Playwright", "Jest", "Playwright"}, h.runner.Frameworks)
	assert.Equal(t, "React", s.TechStack.OrElse(""))
	assert.Equal(t, "Playwright", s.UiTestFramework.OrElse(""))
	assert.False(t, result.ManualReview)

	// Both generated tests appear in full in the implementation prompt.
	require.Len(t, h.agent.Prompts, 3)
	assert.Equal(t, 2, strings.Count(h.agent.Prompts[2], "func TestGreeting"))
}

func TestNonUIRequestSkipsUITests(t *testing.T) {
	h := newHarness(mocks.NewPrompter("React", "Jest", "Playwright"), collab.OutcomeFailing, collab.OutcomePassing)
	s := session.New(session.Options{AgentMode: true, TddMode: true, UiTddMode: true})

	result := NewOrchestrator().Run(context.Background(), "add a function that parses dates", s, h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState, result.AbortReason)
	assert.Empty(t, result.ArtifactsOf(KindUiTest))
	assert.Len(t, result.ArtifactsOf(KindUnitTest), 1)
	assert.NotContains(t, result.States, StateGeneratingUiTest)
	assert.Equal(t, []string{"Jest", "Jest"}, h.runner.Frameworks)
}

func TestDeclinedStackAbortsBeforeAgent(t *testing.T) {
	h := newHarness(mocks.NewPrompter())
	s := session.New(session.Options{AgentMode: true, TddMode: true})

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", s, h.collaborators())

	assert.Equal(t, StateAborted, result.FinalState)
	assert.Equal(t, StateSelectingStack, result.Phase)
	assert.Contains(t, result.AbortReason, "setup cancelled")
	assert.Equal(t, 0, h.agent.Calls())
	assert.Equal(t, 0, h.runner.Calls())
	assert.False(t, s.TechStack.IsSet())
	assert.Contains(t, result.Render(), "setup cancelled")
}

func TestDeclinedTestFrameworkAborts(t *testing.T) {
	h := newHarness(mocks.NewPrompter("Go"))
	s := session.New(session.Options{})

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", s, h.collaborators())

	assert.Equal(t, StateSelectingTestFramework, result.Phase)
	assert.Contains(t, result.AbortReason, "setup cancelled")
	assert.Equal(t, []string{"Go test"}, h.prompter.Options[1])
	assert.Equal(t, "Go", s.TechStack.OrElse(""))
}

func TestDeclinedUIFrameworkContinues(t *testing.T) {
	h := newHarness(mocks.NewPrompter("Vue", "Vitest", ""), collab.OutcomeFailing, collab.OutcomePassing)
	s := session.New(session.Options{UiTddMode: true})

	result := NewOrchestrator().Run(context.Background(), "build a modal", s, h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState, result.AbortReason)
	assert.Contains(t, result.States, StateSelectingUiFramework)
	assert.False(t, s.UiTestFramework.IsSet())
	assert.Empty(t, result.ArtifactsOf(KindUiTest))
}

func TestBackendStackNeverAsksForUIFramework(t *testing.T) {
	h := newHarness(mocks.NewPrompter("Python", "Pytest"), collab.OutcomeError, collab.OutcomePassing)
	s := session.New(session.Options{UiTddMode: true})

	result := NewOrchestrator().Run(context.Background(), "add a signup form", s, h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState, result.AbortReason)
	assert.Len(t, h.prompter.Titles, 2)
	assert.True(t, strings.HasPrefix(result.Artifacts[0].Path, "tests/test_"))
}

func TestDetectionFailureNamesManifests(t *testing.T) {
	h := newHarness(nil)
	s := session.New(session.Options{})
	s.CodebaseIndexed = true

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", s, h.collaborators())

	assert.Equal(t, StateAborted, result.FinalState)
	assert.Equal(t, StateDetectingConfiguration, result.Phase)
	assert.Contains(t, result.AbortReason, "package.json")
	assert.Contains(t, result.AbortReason, "Indexed manifests: none")
	assert.Equal(t, 0, h.agent.Calls())
}

func TestDetectionWithoutTestFramework(t *testing.T) {
	h := newHarness(nil)
	s := session.New(session.Options{})
	s.SetManifests(map[string]map[string]string{"package.json": {"react": "^18.0.0"}})

	result := NewOrchestrator().Run(context.Background(), "create a counter", s, h.collaborators())

	assert.Equal(t, StateAborted, result.FinalState)
	assert.Contains(t, result.AbortReason, "detected React")
	assert.Contains(t, result.AbortReason, "Indexed manifests: package.json")
}

func TestDetectionScopesFrameworkToStack(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing, collab.OutcomePassing)
	s := session.New(session.Options{UiTddMode: true})
	s.SetManifests(map[string]map[string]string{
		"go.mod":       {},
		"package.json": {"jest": "^29.0.0", "cypress": "^13.0.0"},
	})

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", s, h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState, result.AbortReason)
	assert.Equal(t, "Go test", s.TestFramework.OrElse(""))
	assert.False(t, s.UiTestFramework.IsSet())
	assert.Equal(t, []string{"Go test", "Go test"}, h.runner.Frameworks)
}

func TestPythonWithoutPytestUsesUnittest(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing, collab.OutcomePassing)
	s := session.New(session.Options{})
	s.SetManifests(map[string]map[string]string{"requirements.txt": {"requests": "2.31"}})

	result := NewOrchestrator().Run(context.Background(), "create a slugify helper", s, h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState, result.AbortReason)
	assert.Contains(t, result.Detected, "- Test framework: Unittest")
}

func TestExistingProjectCompletesWithPreamble(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing, collab.OutcomePassing)
	s := indexedGoSession()

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", s, h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState, result.AbortReason)
	assert.Equal(t, "Go", s.TechStack.OrElse(""))
	assert.Equal(t, "Go test", s.TestFramework.OrElse(""))

	unit := result.ArtifactsOf(KindUnitTest)
	require.Len(t, unit, 1)
	assert.True(t, strings.HasSuffix(unit[0].Path, "_test.go"))
	assert.Equal(t, "mem://"+unit[0].Path, unit[0].Location)
	assert.Len(t, unit[0].Checksum, 64)
	assert.Contains(t, h.writer.Files[unit[0].Path], "func TestGreeting")

	out := result.Render()
	assert.True(t, strings.HasPrefix(out, "## Detected Configuration"))
	assert.Contains(t, out, "- Test framework: Go test")
	assert.Contains(t, out, "✅ TDD workflow completed")
	assert.Less(t, strings.Index(out, "Detected Configuration"), strings.Index(out, "✅"))
	assert.NotContains(t, out, "Manual review required")
}

func TestFinalFailureFlagsManualReview(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing, collab.OutcomeFailing)

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", indexedGoSession(), h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState)
	assert.True(t, result.ManualReview)
	assert.Equal(t, 2, h.runner.Calls())
	assert.Contains(t, result.Render(), "⚠️ Manual review required")
	assert.Contains(t, result.Render(), "generated test")
}

func TestAgentFailureAbortsAtPhase(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing)
	h.agent.FailWith(errors.New("quota exceeded"))

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", indexedGoSession(), h.collaborators())

	assert.Equal(t, StateGeneratingUnitTest, result.Phase)
	assert.Contains(t, result.AbortReason, "quota exceeded")
	assert.Contains(t, result.Render(), "aborted at generating unit test")
	assert.Equal(t, 0, h.runner.Calls())
}

func TestWriterFailureAborts(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing)
	h.writer.Err = errors.New("disk full")

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", indexedGoSession(), h.collaborators())

	assert.Equal(t, StateGeneratingUnitTest, result.Phase)
	assert.Contains(t, result.AbortReason, "disk full")
	assert.Empty(t, result.Artifacts)
}

func TestRunnerFailureAborts(t *testing.T) {
	h := newHarness(nil)
	h.runner.FailWith(errors.New("executable not found"))

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", indexedGoSession(), h.collaborators())

	assert.Equal(t, StateVerifyingInitialFailure, result.Phase)
	assert.Len(t, result.Artifacts, 1)
	assert.Contains(t, result.Render(), "Artifacts created before stopping")
}

func TestCancelledContextAborts(t *testing.T) {
	h := newHarness(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewOrchestrator().Run(ctx, "create a greeting function", indexedGoSession(), h.collaborators())

	assert.Equal(t, StateAborted, result.FinalState)
	assert.Equal(t, 0, h.agent.Calls())
}

func TestRunIsRecorded(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing, collab.OutcomePassing)

	NewOrchestrator().Run(context.Background(), "create a greeting function", indexedGoSession(), h.collaborators())

	require.Len(t, h.runs.Runs, 1)
	run := h.runs.Runs[0]
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "COMPLETED", run.FinalState)
	assert.Equal(t, "START", run.States[0])
	assert.Equal(t, "COMPLETED", run.States[len(run.States)-1])
	assert.Equal(t, "Go", run.TechStack)
	assert.Len(t, run.Artifacts, 2)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestRecordFailureDoesNotChangeResult(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing, collab.OutcomePassing)
	h.runs.Err = errors.New("database is locked")

	result := NewOrchestrator().Run(context.Background(), "create a greeting function", indexedGoSession(), h.collaborators())

	assert.Equal(t, StateCompleted, result.FinalState)
}

func TestWithPathsOverridesDirectories(t *testing.T) {
	h := newHarness(nil, collab.OutcomeFailing, collab.OutcomePassing)
	o := NewOrchestrator(WithPaths(config.PathsConfig{TestsDir: "spec", SrcDir: "lib"}))

	result := o.Run(context.Background(), "create a greeting function", indexedGoSession(), h.collaborators())

	require.Equal(t, StateCompleted, result.FinalState, result.AbortReason)
	assert.Len(t, h.writer.PathsUnder("spec"), 1)
	assert.Len(t, h.writer.PathsUnder("lib"), 1)
}

func TestCombine(t *testing.T) {
	passing := collab.TestReport{Outcome: collab.OutcomePassing}
	failing := collab.TestReport{Outcome: collab.OutcomeFailing, ExitCode: 1, Failed: []string{"a"}}
	broken := collab.TestReport{Outcome: collab.OutcomeError, ExitCode: 2}

	assert.Equal(t, collab.OutcomePassing, combine([]collab.TestReport{passing, passing}).Outcome)
	assert.Equal(t, collab.OutcomeError, combine([]collab.TestReport{passing, broken}).Outcome)

	mixed := combine([]collab.TestReport{broken, failing})
	assert.Equal(t, collab.OutcomeFailing, mixed.Outcome)
	assert.Equal(t, 2, mixed.ExitCode)
	assert.Equal(t, []string{"a"}, mixed.Failed)
}
