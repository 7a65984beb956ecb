package testrun

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"devpilot/pkg/collab"
	"devpilot/pkg/logx"
	"devpilot/pkg/stack"
)

// maxReportOutput bounds the output kept on a report; the tail is kept.
const maxReportOutput = 8 * 1024

// Runner implements collab.TestRunner by running the framework's command in the workspace.
type Runner struct {
	executor  Executor
	logger    *logx.Logger
	overrides map[string][]string
	dir       string
	timeout   time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithCommand overrides the argv used for a framework.
func WithCommand(framework string, argv []string) Option {
	return func(r *Runner) {
		r.overrides[framework] = argv
	}
}

// WithTimeout bounds each run. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner returns a runner executing in dir.
func NewRunner(executor Executor, dir string, opts ...Option) *Runner {
	r := &Runner{
		executor:  executor,
		logger:    logx.NewLogger("test-runner"),
		overrides: make(map[string][]string),
		dir:       dir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Command returns the argv and parser name the runner would use for framework.
func (r *Runner) Command(framework string) ([]string, string, error) {
	fw, known := stack.LookupFramework(framework)
	argv, overridden := r.overrides[framework]
	if !overridden {
		if !known {
			return nil, "", fmt.Errorf("unknown test framework %q", framework)
		}
		argv = fw.Argv
	}
	parser := fw.Parser
	if !known {
		parser = ""
	}
	return argv, parser, nil
}

// Run executes the framework's suite and classifies the result.
func (r *Runner) Run(ctx context.Context, framework string) (collab.TestReport, error) {
	argv, parserName, err := r.Command(framework)
	if err != nil {
		return collab.TestReport{}, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var out bytes.Buffer
	start := time.Now()
	exitCode, err := r.executor.Run(ctx, argv, ExecOpts{Dir: r.dir, Stdout: &out, Stderr: &out})
	elapsed := time.Since(start)
	if err != nil {
		return collab.TestReport{}, fmt.Errorf("failed to run %s tests: %w", framework, err)
	}

	report := Classify(parserName, exitCode, out.String())
	report.Duration = elapsed
	r.logger.Info("%s run finished: %s (exit %d, %d failed, %s)", framework, report.Outcome, exitCode, len(report.Failed), elapsed.Round(time.Millisecond))
	return report, nil
}

// Classify turns an exit code and output into a report using the named parser.
// Without a parser only the exit code is used.
func Classify(parserName string, exitCode int, output string) collab.TestReport {
	report := collab.TestReport{ExitCode: exitCode, Output: tail(output, maxReportOutput)}

	parse, ok := ParserFor(parserName)
	if !ok {
		if exitCode == 0 {
			report.Outcome = collab.OutcomePassing
		} else {
			report.Outcome = collab.OutcomeFailing
		}
		return report
	}

	passed, recognized, failed := parse(output)
	report.Failed = failed
	switch {
	case !passed:
		report.Outcome = collab.OutcomeFailing
	case exitCode != 0:
		// Non-zero exit with no failure markers: the suite never ran properly.
		report.Outcome = collab.OutcomeError
	case !recognized:
		report.Outcome = collab.OutcomeError
	default:
		report.Outcome = collab.OutcomePassing
	}
	return report
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
