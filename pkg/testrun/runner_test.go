package testrun

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpilot/pkg/collab"
)

type fakeExecutor struct {
	err      error
	output   string
	calls    [][]string
	exitCode int
}

func (f *fakeExecutor) Name() string { return "fake" }

func (f *fakeExecutor) Run(_ context.Context, argv []string, opts ExecOpts) (int, error) {
	f.calls = append(f.calls, argv)
	_, _ = fmt.Fprint(opts.Stdout, f.output)
	return f.exitCode, f.err
}

func TestRunnerClassifiesGoFailure(t *testing.T) {
	fe := &fakeExecutor{exitCode: 1, output: `=== RUN   TestAdd
--- FAIL: TestAdd (0.00s)
    add_test.go:8: undefined: Add
FAIL
FAIL	example.com/calc	0.002s
`}
	r := NewRunner(fe, t.TempDir())

	report, err := r.Run(context.Background(), "Go test")
	require.NoError(t, err)
	assert.Equal(t, collab.OutcomeFailing, report.Outcome)
	assert.Equal(t, []string{"TestAdd"}, report.Failed)
	assert.Equal(t, [][]string{{"go", "test", "./..."}}, fe.calls)
}

func TestRunnerClassifiesPass(t *testing.T) {
	fe := &fakeExecutor{output: "ok  \texample.com/calc\t0.002s\n"}
	report, err := NewRunner(fe, t.TempDir()).Run(context.Background(), "Go test")
	require.NoError(t, err)
	assert.Equal(t, collab.OutcomePassing, report.Outcome)
	assert.True(t, report.Passed())
}

func TestRunnerUsesOverride(t *testing.T) {
	fe := &fakeExecutor{output: "Tests:       3 passed, 3 total\n"}
	r := NewRunner(fe, t.TempDir(), WithCommand("Jest", []string{"yarn", "test"}))

	report, err := r.Run(context.Background(), "Jest")
	require.NoError(t, err)
	assert.Equal(t, collab.OutcomePassing, report.Outcome)
	assert.Equal(t, []string{"yarn", "test"}, fe.calls[0])
}

func TestRunnerUnknownFramework(t *testing.T) {
	_, err := NewRunner(&fakeExecutor{}, t.TempDir()).Run(context.Background(), "Nonesuch")
	assert.Error(t, err)
}

func TestRunnerExecutorFailure(t *testing.T) {
	fe := &fakeExecutor{exitCode: -1, err: errors.New("executable file not found")}
	_, err := NewRunner(fe, t.TempDir()).Run(context.Background(), "Pytest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pytest")
}

func TestClassifyNonZeroExitWithoutMarkers(t *testing.T) {
	report := Classify("pytest", 4, "ERROR: file or directory not found: tests\n")
	assert.Equal(t, collab.OutcomeError, report.Outcome)
}

func TestClassifyWithoutParser(t *testing.T) {
	assert.Equal(t, collab.OutcomePassing, Classify("", 0, "").Outcome)
	assert.Equal(t, collab.OutcomeFailing, Classify("", 2, "").Outcome)
}

func TestParsers(t *testing.T) {
	tests := []struct {
		name       string
		parser     string
		output     string
		passed     bool
		recognized bool
		failed     []string
	}{
		{
			name:   "pytest failure",
			parser: "pytest",
			output: "FAILED tests/test_email.py::test_valid - NameError\n1 failed in 0.03s\n",
			passed: false, recognized: true, failed: []string{"tests/test_email.py::test_valid"},
		},
		{
			name:   "pytest pass",
			parser: "pytest",
			output: "...\n3 passed in 0.01s\n",
			passed: true, recognized: true,
		},
		{
			name:   "unittest failure",
			parser: "unittest",
			output: "FAIL: test_add (tests.test_calc.TestCalc)\n----\nFAILED (failures=1)\n",
			passed: false, recognized: true, failed: []string{"test_add"},
		},
		{
			name:   "jest failure",
			parser: "jest",
			output: "FAIL src/Button.test.jsx\n  ✕ renders label (5 ms)\nTests:       1 failed, 1 total\n",
			passed: false, recognized: true, failed: []string{"renders label"},
		},
		{
			name:   "vitest pass",
			parser: "jest",
			output: " ✓ src/sum.test.js (1)\n Tests  1 passed (1)\n",
			passed: true, recognized: true,
		},
		{
			name:   "mocha failure",
			parser: "mocha",
			output: "  0 passing (4ms)\n  1 failing\n\n  1) validates email\n",
			passed: false, recognized: true, failed: []string{"validates email"},
		},
		{
			name:   "cargo failure",
			parser: "cargo",
			output: "test tests::adds ... FAILED\n\ntest result: FAILED. 0 passed; 1 failed\n",
			passed: false, recognized: true, failed: []string{"tests::adds"},
		},
		{
			name:   "flutter pass",
			parser: "flutter",
			output: "00:02 +3: All tests passed!\n",
			passed: true, recognized: true,
		},
		{
			name:   "playwright failure",
			parser: "playwright",
			output: "  1 failed\n    [chromium] › login.spec.ts:3:1 › shows form\n  2 passed (3.1s)\n",
			passed: false, recognized: true, failed: []string{"login.spec.ts:3:1 › shows form"},
		},
		{
			name:   "cypress pass",
			parser: "cypress",
			output: "  All specs passed!   00:04   2   2\n",
			passed: true, recognized: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parse, ok := ParserFor(tt.parser)
			require.True(t, ok)
			passed, recognized, failed := parse(tt.output)
			assert.Equal(t, tt.passed, passed)
			assert.Equal(t, tt.recognized, recognized)
			assert.Equal(t, tt.failed, failed)
		})
	}
}

func TestHostExecutorRunsProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	var out fakeWriter
	code, err := NewHostExecutor().Run(context.Background(), []string{"sh", "-c", "echo hi; exit 3"}, ExecOpts{
		Dir:    t.TempDir(),
		Stdout: &out,
		Stderr: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "hi\n", string(out))
}

func TestHostExecutorRejectsEmptyCommand(t *testing.T) {
	var out fakeWriter
	_, err := NewHostExecutor().Run(context.Background(), nil, ExecOpts{Stdout: &out, Stderr: &out})
	assert.Error(t, err)
}

type fakeWriter []byte

func (w *fakeWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
