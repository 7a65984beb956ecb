package tdd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"devpilot/pkg/artifact"
	"devpilot/pkg/collab"
	"devpilot/pkg/config"
	"devpilot/pkg/logx"
	"devpilot/pkg/manifest"
	"devpilot/pkg/metrics"
	"devpilot/pkg/session"
	"devpilot/pkg/stack"
	"devpilot/pkg/utils"
)

// Abort causes that get special treatment in logs and rendering.
var (
	ErrSetupCancelled = errors.New("setup cancelled")
	ErrPrematurePass  = errors.New("tests passed before an implementation exists")
)

// slugWords bounds how much of the request ends up in file names.
const slugWords = 4

// Orchestrator runs TDD workflows. It holds no per-run state; every Run builds a fresh workflow.
type Orchestrator struct {
	dirs     Dirs
	recorder metrics.Recorder
	logger   *logx.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPaths takes output directories from configuration. Empty entries keep the defaults.
func WithPaths(p config.PathsConfig) Option {
	return func(o *Orchestrator) {
		if p.TestsDir != "" {
			o.dirs.Tests = p.TestsDir
		}
		if p.UITestsDir != "" {
			o.dirs.UITests = p.UITestsDir
		}
		if p.SrcDir != "" {
			o.dirs.Src = p.SrcDir
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// NewOrchestrator creates an orchestrator with default directories.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dirs:     DefaultDirs(),
		recorder: metrics.Nop{},
		logger:   logx.NewLogger("tdd"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs the workflow and renders the result for the chat.
func (o *Orchestrator) Execute(ctx context.Context, message string, s *session.Session, c collab.Collaborators) string {
	return o.Run(ctx, message, s, c).Render()
}

// Run drives one workflow to COMPLETED or ABORTED.
func (o *Orchestrator) Run(ctx context.Context, message string, s *session.Session, c collab.Collaborators) Result {
	started := time.Now()
	w := &workflow{
		o:       o,
		ctx:     ctx,
		message: message,
		s:       s,
		c:       c,
		state:   StateStart,
		result:  Result{States: []State{StateStart}},
	}

	if s == nil {
		w.abort(errors.New("no session available"))
	} else if err := w.run(); err != nil {
		w.abort(err)
	}

	logx.DebugFlow(ctx, "tdd", "workflow", string(w.result.FinalState))
	o.recorder.ObserveWorkflow(string(w.result.FinalState), time.Since(started))
	o.record(ctx, w, started)
	return w.result
}

func (o *Orchestrator) record(ctx context.Context, w *workflow, started time.Time) {
	if w.c.Runs == nil {
		return
	}
	run := collab.RunRecord{
		ID:          uuid.NewString(),
		Request:     w.message,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		FinalState:  string(w.result.FinalState),
		AbortReason: w.result.AbortReason,
	}
	if w.s != nil {
		run.TechStack = w.s.TechStack.OrElse("")
		run.TestFramework = w.s.TestFramework.OrElse("")
		run.UiFramework = w.s.UiTestFramework.OrElse("")
	}
	for _, st := range w.result.States {
		run.States = append(run.States, string(st))
	}
	for _, a := range w.result.Artifacts {
		run.Artifacts = append(run.Artifacts, collab.ArtifactRecord{
			ID: a.ID, Kind: string(a.Kind), Path: a.Path, Checksum: a.Checksum,
		})
	}
	if err := w.c.Runs.RecordRun(ctx, run); err != nil {
		o.logger.Warn("failed to record workflow run: %v", err)
	}
}

// workflow is the state of a single run.
type workflow struct {
	o       *Orchestrator
	ctx     context.Context //nolint:containedctx // scoped to one run
	message string
	s       *session.Session
	c       collab.Collaborators
	state   State
	result  Result
}

func (w *workflow) enter(next State) error {
	if err := w.ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before %s: %w", next.Label(), err)
	}
	if !IsValidTransition(w.state, next) {
		return fmt.Errorf("invalid transition %s -> %s", w.state, next)
	}
	w.o.logger.DebugState("transition", string(next), "from "+string(w.state))
	w.state = next
	w.result.States = append(w.result.States, next)
	return nil
}

func (w *workflow) abort(err error) {
	reason := err.Error()
	switch {
	case errors.Is(err, ErrSetupCancelled):
		w.o.logger.Info("workflow stopped at %s: %s", w.state, reason)
	case errors.Is(err, ErrPrematurePass):
		w.result.PrematurePass = true
		w.o.logger.Warn("workflow stopped at %s: %s", w.state, reason)
	default:
		w.o.logger.Error("workflow failed at %s: %s", w.state, reason)
	}
	w.result.Phase = w.state
	w.result.AbortReason = reason
	w.state = StateAborted
	w.result.FinalState = StateAborted
	w.result.States = append(w.result.States, StateAborted)
}

func (w *workflow) run() error {
	var err error
	if w.s.CodebaseIndexed {
		err = w.detectConfiguration()
	} else {
		err = w.selectConfiguration()
	}
	if err != nil {
		return err
	}
	return w.generateAndVerify()
}

func (w *workflow) selectConfiguration() error {
	if w.c.Prompter == nil {
		return errors.New("no prompter available to choose a project configuration")
	}

	if err := w.enter(StateSelectingStack); err != nil {
		return err
	}
	stackName, ok, err := w.c.Prompter.Select(w.ctx, "Select the tech stack for this project", stack.StackNames())
	if err != nil {
		return fmt.Errorf("stack selection failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: no tech stack was selected", ErrSetupCancelled)
	}
	w.s.TechStack = session.Some(stackName)

	if err := w.enter(StateSelectingTestFramework); err != nil {
		return err
	}
	frameworks := stack.TestFrameworksFor(stackName)
	if len(frameworks) == 0 {
		return fmt.Errorf("no test frameworks are known for %s", stackName)
	}
	framework, ok, err := w.c.Prompter.Select(w.ctx, fmt.Sprintf("Select a test framework for %s", stackName), frameworks)
	if err != nil {
		return fmt.Errorf("test framework selection failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: no test framework was selected", ErrSetupCancelled)
	}
	w.s.TestFramework = session.Some(framework)

	w.s.UiTestFramework = session.None[string]()
	uiOptions := stack.UIFrameworksFor(stackName)
	if !w.s.UiTddMode || !stack.IsFrontend(stackName) || len(uiOptions) == 0 {
		return nil
	}
	if err := w.enter(StateSelectingUiFramework); err != nil {
		return err
	}
	uiFramework, ok, err := w.c.Prompter.Select(w.ctx, fmt.Sprintf("Select a UI test framework for %s", stackName), uiOptions)
	if err != nil {
		return fmt.Errorf("UI test framework selection failed: %w", err)
	}
	if !ok {
		w.o.logger.Info("no UI test framework selected, continuing without UI tests")
		return nil
	}
	w.s.UiTestFramework = session.Some(uiFramework)
	return nil
}

func (w *workflow) detectConfiguration() error {
	if err := w.enter(StateDetectingConfiguration); err != nil {
		return err
	}

	stackName, ok := stack.Detect(stack.StackRules, w.s.Manifest)
	if !ok {
		return fmt.Errorf("could not detect the tech stack. %s", w.manifestHint())
	}
	framework, ok := stack.DetectTestFramework(stackName, w.s.Manifest)
	if !ok {
		return fmt.Errorf("detected %s but could not detect a test framework. %s", stackName, w.manifestHint())
	}
	w.s.TechStack = session.Some(stackName)
	w.s.TestFramework = session.Some(framework)

	if w.s.UiTddMode {
		if ui, found := stack.DetectUIFramework(stackName, w.s.Manifest); found {
			w.s.UiTestFramework = session.Some(ui)
		} else {
			w.s.UiTestFramework = session.None[string]()
		}
	}

	w.result.Detected = renderDetected(w.s)
	logx.Debug(w.ctx, "tdd", "detected stack=%s framework=%s ui=%s", stackName, framework, w.s.UiTestFramework)
	return nil
}

func (w *workflow) manifestHint() string {
	indexed := make([]string, 0, len(w.s.Manifests))
	for k := range w.s.Manifests {
		indexed = append(indexed, k)
	}
	sort.Strings(indexed)
	found := "none"
	if len(indexed) > 0 {
		found = strings.Join(indexed, ", ")
	}
	known := []string{
		manifest.PackageJSON, manifest.GoMod, manifest.PyProject,
		manifest.RequirementsTxt, manifest.CargoToml, manifest.Pubspec,
	}
	return fmt.Sprintf("Make sure the project has manifest data (%s) and has been indexed. Indexed manifests: %s.",
		strings.Join(known, ", "), found)
}

func (w *workflow) generateAndVerify() error {
	stackName := w.s.TechStack.OrElse("")
	framework := w.s.TestFramework.OrElse("")
	st, _ := stack.LookupStack(stackName)

	uiFramework, hasUI := w.s.UiTestFramework.Get()
	wantUI := w.s.UiTddMode && hasUI && uiFramework != "" && IsUIRequest(w.message)

	p := newPlan(utils.Slugify(w.message, slugWords), st, uiFramework, w.o.dirs)

	if err := w.enter(StateGeneratingUnitTest); err != nil {
		return err
	}
	unit, err := w.generate(p.unitTest, unitTestPrompt(w.message, st, stackName, framework, p))
	if err != nil {
		return err
	}
	tests := []Artifact{unit}
	frameworks := []string{framework}

	if wantUI {
		if err := w.enter(StateGeneratingUiTest); err != nil {
			return err
		}
		ui, err := w.generate(p.uiTest, uiTestPrompt(w.message, st, stackName, uiFramework, p))
		if err != nil {
			return err
		}
		tests = append(tests, ui)
		frameworks = append(frameworks, uiFramework)
	}

	if err := w.enter(StateVerifyingInitialFailure); err != nil {
		return err
	}
	initial, err := w.verify(frameworks)
	if err != nil {
		return err
	}
	w.result.Initial = &initial
	if initial.Passed() {
		return ErrPrematurePass
	}

	if err := w.enter(StateGeneratingImplementation); err != nil {
		return err
	}
	if _, err := w.generate(p.implementation, implementationPrompt(w.message, st, stackName, tests, p)); err != nil {
		return err
	}

	if err := w.enter(StateVerifyingFinalSuccess); err != nil {
		return err
	}
	final, err := w.verify(frameworks)
	if err != nil {
		return err
	}
	w.result.Final = &final
	w.result.ManualReview = !final.Passed()

	if err := w.enter(StateCompleted); err != nil {
		return err
	}
	w.result.FinalState = StateCompleted
	return nil
}

func (w *workflow) generate(a Artifact, prompt string) (Artifact, error) {
	if w.c.Agent == nil {
		return a, fmt.Errorf("no agent configured to generate the %s", a.Kind.Label())
	}
	if w.c.Writer == nil {
		return a, fmt.Errorf("no file writer configured to save the %s", a.Kind.Label())
	}

	reply, err := w.c.Agent.SendMessage(w.ctx, prompt)
	if err != nil {
		return a, fmt.Errorf("generating the %s: %w", a.Kind.Label(), err)
	}
	code := artifact.ExtractCode(reply)
	if strings.TrimSpace(code) == "" {
		return a, fmt.Errorf("the agent returned an empty %s", a.Kind.Label())
	}

	location, err := w.c.Writer.Write(w.ctx, a.Path, code)
	if err != nil {
		return a, fmt.Errorf("saving the %s to %s: %w", a.Kind.Label(), a.Path, err)
	}
	a.Content = code
	a.Location = location
	a.Checksum = artifact.Checksum(code)
	w.result.Artifacts = append(w.result.Artifacts, a)
	logx.Debug(w.ctx, "tdd", "wrote %s to %s", a.Kind, location)
	return a, nil
}

// verify runs every framework in order and folds the reports into one.
func (w *workflow) verify(frameworks []string) (collab.TestReport, error) {
	if w.c.Runner == nil {
		return collab.TestReport{}, errors.New("no test runner configured")
	}
	reports := make([]collab.TestReport, 0, len(frameworks))
	for _, fw := range frameworks {
		report, err := w.c.Runner.Run(w.ctx, fw)
		if err != nil {
			return collab.TestReport{}, fmt.Errorf("running %s tests: %w", fw, err)
		}
		w.o.recorder.ObserveTestRun(fw, string(report.Outcome), report.Duration)
		reports = append(reports, report)
	}
	return combine(reports), nil
}

func combine(reports []collab.TestReport) collab.TestReport {
	out := collab.TestReport{Outcome: collab.OutcomePassing}
	outputs := make([]string, 0, len(reports))
	sawFailing := false
	for _, r := range reports {
		switch r.Outcome {
		case collab.OutcomePassing:
		case collab.OutcomeFailing:
			sawFailing = true
		default:
			if out.Outcome == collab.OutcomePassing {
				out.Outcome = collab.OutcomeError
			}
		}
		if out.ExitCode == 0 {
			out.ExitCode = r.ExitCode
		}
		out.Failed = append(out.Failed, r.Failed...)
		out.Duration += r.Duration
		if r.Output != "" {
			outputs = append(outputs, r.Output)
		}
	}
	if sawFailing {
		out.Outcome = collab.OutcomeFailing
	}
	out.Output = strings.Join(outputs, "\n")
	return out
}
