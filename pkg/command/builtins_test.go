package command

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpilot/internal/mocks"
	"devpilot/pkg/collab"
	"devpilot/pkg/config"
	"devpilot/pkg/logx"
	"devpilot/pkg/session"
	"devpilot/pkg/testrun"
)

func newSession() *session.Session {
	return session.New(session.Options{WorkspaceRoot: "/work", HistoryLimit: 10})
}

func run(t *testing.T, d Deps, input string, s *session.Session, c collab.Collaborators) string {
	t.Helper()
	table, err := DefaultTable(d)
	require.NoError(t, err)
	cmd, ok := table.Resolve(input)
	require.True(t, ok)
	return cmd.Run(context.Background(), input, s, c)
}

type scriptedExecutor struct {
	argv   []string
	dir    string
	exit   int
	output string
	err    error
}

func (e *scriptedExecutor) Name() string { return "scripted" }

func (e *scriptedExecutor) Run(_ context.Context, argv []string, opts testrun.ExecOpts) (int, error) {
	e.argv = argv
	e.dir = opts.Dir
	_, _ = io.WriteString(opts.Stdout, e.output)
	return e.exit, e.err
}

type staticStats string

func (s staticStats) Text() (string, error) { return string(s), nil }

func TestCodegenWritesUnderSrc(t *testing.T) {
	agent := mocks.NewAgent()
	agent.RespondWith("Sure!\n```go\nfunc HelloWorld() string { return \"hello world\" }\n```")
	writer := mocks.NewWriter()
	s := newSession()
	s.AgentMode = true
	s.TechStack = session.Some("Go")

	out := run(t, Deps{Paths: config.PathsConfig{SrcDir: "src"}}, "create a hello world function", s,
		collab.Collaborators{Agent: agent, Writer: writer})

	paths := writer.PathsUnder("src")
	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(paths[0], "src/create_hello_world_function_"), paths[0])
	assert.True(t, strings.HasSuffix(paths[0], ".go"))
	assert.Equal(t, "func HelloWorld() string { return \"hello world\" }\n", writer.Files[paths[0]])
	assert.Contains(t, out, "✅ Generated code saved to mem://"+paths[0])
	assert.Contains(t, agent.Prompts[0], "Go (Go)")
}

func TestCodegenInfersExtensionFromFence(t *testing.T) {
	agent := mocks.NewAgent()
	agent.RespondWith("```python\nprint('hi')\n```")
	writer := mocks.NewWriter()

	s := newSession()
	s.AgentMode = true

	run(t, Deps{}, "write a script that prints hi", s, collab.Collaborators{Agent: agent, Writer: writer})
	paths := writer.PathsUnder("src")
	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], ".py"))
}

func TestCodegenInChatOnlyModeWritesNothing(t *testing.T) {
	agent := mocks.NewAgent()
	agent.RespondWith("```js\nexport const isEmail = (s) => /@/.test(s)\n```")
	writer := mocks.NewWriter()
	s := newSession()
	s.TechStack = session.Some("Node.js")

	out := run(t, Deps{}, "create a function to validate email", s, collab.Collaborators{Agent: agent, Writer: writer})

	assert.Empty(t, writer.Files)
	assert.Contains(t, out, "not saved")
	assert.Contains(t, out, "/mode agent on")
	assert.Contains(t, out, "export const isEmail")

	out = run(t, Deps{}, "create a function to validate email", s, collab.Collaborators{Agent: agent})
	assert.Contains(t, out, "not saved")
}

func TestCodegenRejectsEmptyReply(t *testing.T) {
	agent := mocks.NewAgent()
	agent.RespondWith("  ")
	writer := mocks.NewWriter()
	s := newSession()
	s.AgentMode = true

	out := run(t, Deps{}, "create a hello world function", s, collab.Collaborators{Agent: agent, Writer: writer})
	assert.True(t, strings.HasPrefix(out, FailurePrefix), out)
	assert.Empty(t, writer.Files)
}

func TestAgentFailureBecomesFailureString(t *testing.T) {
	agent := mocks.NewAgent()
	agent.FailWith(errors.New("quota exhausted"))

	out := run(t, Deps{}, "create a hello world function", newSession(),
		collab.Collaborators{Agent: agent, Writer: mocks.NewWriter()})
	assert.True(t, strings.HasPrefix(out, FailurePrefix))
	assert.Contains(t, out, "quota exhausted")
}

func TestMissingCollaboratorsFailGracefully(t *testing.T) {
	for _, input := range []string{
		"/lint", "/edit a.go fix it", "/glossary", "/manifesto", "create a new function", "/cleanup a.go",
		"/test Jest", "/stats", "hello there",
	} {
		out := run(t, Deps{}, input, newSession(), collab.Collaborators{})
		assert.True(t, strings.HasPrefix(out, FailurePrefix), "%s -> %s", input, out)
	}
}

func TestEditRewritesFile(t *testing.T) {
	writer := mocks.NewWriter()
	_, _ = writer.Write(context.Background(), "src/app.js", "var x = 1\n")
	agent := mocks.NewAgent()
	agent.RespondWith("```js\nconst x = 1\n```")

	out := run(t, Deps{Files: writer}, "/edit src/app.js use const", newSession(),
		collab.Collaborators{Agent: agent, Writer: writer})
	assert.Contains(t, out, "✅ Updated mem://src/app.js")
	assert.Equal(t, "const x = 1\n", writer.Files["src/app.js"])
	assert.Contains(t, agent.Prompts[0], "use const")
	assert.Contains(t, agent.Prompts[0], "var x = 1")

	out = run(t, Deps{Files: writer}, "/edit src/app.js", newSession(), collab.Collaborators{Agent: agent, Writer: writer})
	assert.Contains(t, out, "usage: /edit")
}

func TestRewriteKeepsFileOnEmptyReply(t *testing.T) {
	for _, input := range []string{"/edit main.go add logging", "/cleanup main.go"} {
		writer := mocks.NewWriter()
		_, _ = writer.Write(context.Background(), "main.go", "package main\n\nfunc main() {}\n")
		agent := mocks.NewAgent()
		agent.RespondWith("")

		out := run(t, Deps{Files: writer}, input, newSession(), collab.Collaborators{Agent: agent, Writer: writer})
		assert.Contains(t, out, "the agent returned empty content for main.go; file left unchanged", input)
		assert.Equal(t, "package main\n\nfunc main() {}\n", writer.Files["main.go"], input)

		agent.RespondWith("```go\n\n```")
		out = run(t, Deps{Files: writer}, input, newSession(), collab.Collaborators{Agent: agent, Writer: writer})
		assert.True(t, strings.HasPrefix(out, FailurePrefix), input)
		assert.Equal(t, "package main\n\nfunc main() {}\n", writer.Files["main.go"], input)
	}
}

func TestCleanupMissingFile(t *testing.T) {
	writer := mocks.NewWriter()
	out := run(t, Deps{Files: writer}, "/cleanup nope.go", newSession(),
		collab.Collaborators{Agent: mocks.NewAgent(), Writer: writer})
	assert.Contains(t, out, "could not read nope.go")
}

func TestGlossaryAddAndList(t *testing.T) {
	g := mocks.NewGlossary()
	c := collab.Collaborators{Glossary: g}

	assert.Contains(t, run(t, Deps{}, "/glossary", newSession(), c), "glossary is empty")
	assert.Equal(t, `✅ Saved glossary term "Widget"`, run(t, Deps{}, "/glossary Widget: a UI element", newSession(), c))
	run(t, Deps{}, "/glossary api: application interface", newSession(), c)

	out := run(t, Deps{}, "/glossary", newSession(), c)
	assert.Equal(t, "📖 Glossary\n- **api**: application interface\n- **Widget**: a UI element", out)

	assert.Contains(t, run(t, Deps{}, "/glossary no colon", newSession(), c), "usage")
}

func TestManifestoUsesGlossary(t *testing.T) {
	g := mocks.NewGlossary()
	require.NoError(t, g.AddTerm(context.Background(), "Story", "a unit of work"))
	agent := mocks.NewAgent()
	agent.RespondWith("# Manifesto\n\nTest first.")
	writer := mocks.NewWriter()

	out := run(t, Deps{}, "/manifesto testing", newSession(), collab.Collaborators{Agent: agent, Writer: writer, Glossary: g})
	assert.Contains(t, out, "✅ Manifesto written to mem://MANIFESTO.md")
	assert.Equal(t, "# Manifesto\n\nTest first.\n", writer.Files["MANIFESTO.md"])
	assert.Contains(t, agent.Prompts[0], "Story: a unit of work")
	assert.Contains(t, agent.Prompts[0], "Focus on: testing")
}

func TestTestCommandUsesSessionFramework(t *testing.T) {
	runner := mocks.NewRunner(collab.OutcomeFailing)
	s := newSession()
	s.TestFramework = session.Some("Pytest")

	out := run(t, Deps{}, "/test", s, collab.Collaborators{Runner: runner})
	assert.Equal(t, []string{"Pytest"}, runner.Frameworks)
	assert.Contains(t, out, "🔴 Pytest: failing (exit 1")
	assert.Contains(t, out, "- generated test")

	out = run(t, Deps{}, "/test Jest", newSession(), collab.Collaborators{Runner: mocks.NewRunner(collab.OutcomePassing)})
	assert.Contains(t, out, "🟢 Jest: passing")

	out = run(t, Deps{}, "/test", newSession(), collab.Collaborators{Runner: runner})
	assert.Contains(t, out, "no test framework selected")
}

func TestModeToggles(t *testing.T) {
	s := newSession()
	assert.Equal(t, "✅ tdd mode on", run(t, Deps{}, "/mode tdd on", s, collab.Collaborators{}))
	assert.True(t, s.TddMode)
	assert.Equal(t, "✅ agent mode on", run(t, Deps{}, "/mode agent on", s, collab.Collaborators{}))
	assert.True(t, s.AgentMode)
	run(t, Deps{}, "/mode uitdd on", s, collab.Collaborators{})
	assert.True(t, s.UiTddMode)

	assert.Contains(t, run(t, Deps{}, "/mode", s, collab.Collaborators{}), "tdd mode: on")
	assert.Contains(t, run(t, Deps{}, "/mode tdd maybe", s, collab.Collaborators{}), FailurePrefix)
	assert.Contains(t, run(t, Deps{}, "/mode warp on", s, collab.Collaborators{}), "unknown mode")
}

func TestLintUsesStackDefaults(t *testing.T) {
	exec := &scriptedExecutor{exit: 1, output: "main.go:3: unreachable code"}
	s := newSession()
	s.TechStack = session.Some("Go")

	out := run(t, Deps{Executor: exec}, "/lint", s, collab.Collaborators{})
	assert.Equal(t, []string{"go", "vet", "./..."}, exec.argv)
	assert.Equal(t, "/work", exec.dir)
	assert.Contains(t, out, "⚠️ Lint reported issues (exit 1)")
	assert.Contains(t, out, "unreachable code")

	exec.exit = 0
	out = run(t, Deps{Executor: exec, LintCommands: map[string][]string{"Go": {"golangci-lint", "run"}}}, "/lint ./pkg/...", s, collab.Collaborators{})
	assert.Equal(t, []string{"golangci-lint", "run", "./pkg/..."}, exec.argv)
	assert.Contains(t, out, "✅ Lint clean")
}

func TestLintRequiresStack(t *testing.T) {
	out := run(t, Deps{Executor: &scriptedExecutor{}}, "/lint", newSession(), collab.Collaborators{})
	assert.Contains(t, out, "no tech stack selected")
}

func TestStats(t *testing.T) {
	out := run(t, Deps{Stats: staticStats("devpilot_dispatch_total{route=\"chat\"} 1\n")}, "/stats", newSession(), collab.Collaborators{})
	assert.Equal(t, "📊 Session metrics\n```\ndevpilot_dispatch_total{route=\"chat\"} 1\n```", out)

	out = run(t, Deps{Stats: staticStats("")}, "/stats", newSession(), collab.Collaborators{})
	assert.Equal(t, "📊 No activity recorded yet.", out)
}

func TestLogsShowsRecentEntries(t *testing.T) {
	prev := logx.SetOutput(io.Discard)
	t.Cleanup(func() { logx.SetOutput(prev) })

	logx.NewLogger("logs-test").Warn("disk nearly full")
	logx.NewLogger("logs-test").Info("indexed 3 manifests")

	out := run(t, Deps{}, "/logs", newSession(), collab.Collaborators{})
	assert.True(t, strings.HasPrefix(out, "📜 Recent log entries (WARN and above)"), out)
	assert.Contains(t, out, "[logs-test] WARN: disk nearly full")
	assert.NotContains(t, out, "indexed 3 manifests")

	out = run(t, Deps{}, "/logs info", newSession(), collab.Collaborators{})
	assert.Contains(t, out, "[logs-test] INFO: indexed 3 manifests")

	out = run(t, Deps{}, "/logs loud", newSession(), collab.Collaborators{})
	assert.Contains(t, out, "usage: /logs")
}

func TestChatIncludesHistory(t *testing.T) {
	agent := mocks.NewAgent()
	agent.RespondWith("  hi back  ")
	s := newSession()
	s.History.Append(context.Background(), session.RoleUser, "earlier question")

	out := run(t, Deps{}, "how are you", s, collab.Collaborators{Agent: agent})
	assert.Equal(t, "hi back", out)
	assert.Contains(t, agent.Prompts[0], "earlier question")
	assert.Contains(t, agent.Prompts[0], "user: how are you")
}
