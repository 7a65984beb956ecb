package command

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"devpilot/pkg/artifact"
	"devpilot/pkg/collab"
	"devpilot/pkg/config"
	"devpilot/pkg/intent"
	"devpilot/pkg/logx"
	"devpilot/pkg/session"
	"devpilot/pkg/stack"
	"devpilot/pkg/testrun"
	"devpilot/pkg/utils"
)

// Built-in command ids, in default table order.
const (
	IDLint      = "/lint"
	IDEdit      = "/edit"
	IDGlossary  = "/glossary"
	IDManifesto = "/manifesto"
	IDCodegen   = "codegen"
	IDCleanup   = "/cleanup"
	IDTest      = "/test"
	IDMode      = "/mode"
	IDStats     = "/stats"
	IDLogs      = "/logs"
	IDChat      = "chat"
)

const maxOutputChars = 4000

// FileReader reads workspace-relative files.
type FileReader interface {
	Read(path string) (string, error)
}

// StatsSource renders collected metrics.
type StatsSource interface {
	Text() (string, error)
}

// Deps are the non-collaborator services built-in commands use. Nil members disable the
// commands that need them.
type Deps struct {
	Executor     testrun.Executor
	Files        FileReader
	Stats        StatsSource
	Paths        config.PathsConfig
	LintCommands map[string][]string
}

// default lint argv per stack family; the target path is appended.
var defaultLintCommands = map[stack.Family][]string{
	stack.FamilyJavaScript: {"npx", "eslint"},
	stack.FamilyPython:     {"python", "-m", "ruff", "check"},
	stack.FamilyGo:         {"go", "vet"},
	stack.FamilyRust:       {"cargo", "clippy", "--"},
	stack.FamilyDart:       {"flutter", "analyze"},
}

// Builtins returns the built-in commands in table order, ending with the chat fallback.
func Builtins(d Deps) []Command {
	return []Command{
		{ID: IDLint, Match: Slash(IDLint), Run: d.lint},
		{ID: IDEdit, Match: Slash(IDEdit), Run: d.edit},
		{ID: IDGlossary, Match: Slash(IDGlossary), Run: glossary},
		{ID: IDManifesto, Match: Slash(IDManifesto), Run: manifesto},
		{ID: IDCodegen, Match: intent.IsCodeGeneration, Run: d.codegen},
		{ID: IDCleanup, Match: Slash(IDCleanup), Run: d.cleanup},
		{ID: IDTest, Match: Slash(IDTest), Run: runTests},
		{ID: IDMode, Match: Slash(IDMode), Run: mode},
		{ID: IDStats, Match: Slash(IDStats), Run: d.stats},
		{ID: IDLogs, Match: Slash(IDLogs), Run: logs},
		NewFallback(IDChat, chat),
	}
}

// DefaultTable builds a table of the built-in commands.
func DefaultTable(d Deps) (*Table, error) {
	return NewTable(Builtins(d)...)
}

func (d Deps) lint(ctx context.Context, input string, s *session.Session, _ collab.Collaborators) string {
	if d.Executor == nil {
		return Failuref("linting is not available in this session")
	}
	stackName, ok := s.TechStack.Get()
	if !ok {
		return Failuref("no tech stack selected; index the project first")
	}

	argv, target := d.lintCommand(stackName)
	if argv == nil {
		return Failuref("no lint command configured for %s", stackName)
	}
	if path := Args(input, IDLint); path != "" {
		target = path
	}
	argv = append(argv, target)

	var out bytes.Buffer
	exitCode, err := d.Executor.Run(ctx, argv, testrun.ExecOpts{Dir: s.WorkspaceRoot, Stdout: &out, Stderr: &out})
	if err != nil {
		return Failuref("lint failed to run (%s): %v", strings.Join(argv, " "), err)
	}
	if exitCode == 0 {
		return fmt.Sprintf("✅ Lint clean: `%s`", strings.Join(argv, " "))
	}
	return fmt.Sprintf("⚠️ Lint reported issues (exit %d): `%s`\n\n```\n%s\n```",
		exitCode, strings.Join(argv, " "), tail(strings.TrimSpace(out.String()), maxOutputChars))
}

func (d Deps) lintCommand(stackName string) ([]string, string) {
	target := "."
	st, known := stack.LookupStack(stackName)
	if known && st.Family == stack.FamilyGo {
		target = "./..."
	}
	if argv, ok := d.LintCommands[stackName]; ok && len(argv) > 0 {
		return append([]string(nil), argv...), target
	}
	if !known {
		return nil, ""
	}
	argv, ok := defaultLintCommands[st.Family]
	if !ok {
		return nil, ""
	}
	return append([]string(nil), argv...), target
}

func (d Deps) edit(ctx context.Context, input string, s *session.Session, c collab.Collaborators) string {
	path, instruction, _ := strings.Cut(Args(input, IDEdit), " ")
	instruction = strings.TrimSpace(instruction)
	if path == "" || instruction == "" {
		return Failuref("usage: /edit <path> <instruction>")
	}
	return d.rewrite(ctx, path, instruction, s, c)
}

func (d Deps) cleanup(ctx context.Context, input string, s *session.Session, c collab.Collaborators) string {
	path := Args(input, IDCleanup)
	if path == "" {
		return Failuref("usage: /cleanup <path>")
	}
	return d.rewrite(ctx, path, "Remove dead code, unused imports and unused variables. Do not change behavior.", s, c)
}

// rewrite asks the agent for a full replacement of path and writes it back.
func (d Deps) rewrite(ctx context.Context, path, instruction string, s *session.Session, c collab.Collaborators) string {
	if d.Files == nil || c.Writer == nil {
		return Failuref("file access is not available in this session")
	}
	if c.Agent == nil {
		return Failuref("no agent is configured")
	}

	original, err := d.Files.Read(path)
	if err != nil {
		return Failuref("could not read %s: %v", path, err)
	}

	prompt := fmt.Sprintf("Rewrite the file %s according to this instruction: %s\n"+
		"Tech stack: %s\n\nCurrent contents:\n```\n%s\n```\n\n"+
		"Reply with the complete new file contents in a single fenced code block.",
		path, instruction, s.TechStack.OrElse("unknown"), original)

	reply, err := c.Agent.SendMessage(ctx, prompt)
	if err != nil {
		return Failuref("agent request failed: %v", err)
	}
	updated := artifact.ExtractCode(reply)
	if strings.TrimSpace(updated) == "" {
		return Failuref("the agent returned empty content for %s; file left unchanged", path)
	}
	location, err := c.Writer.Write(ctx, path, updated)
	if err != nil {
		return Failuref("could not write %s: %v", path, err)
	}
	return fmt.Sprintf("✅ Updated %s (%d → %d bytes)", location, len(original), len(updated))
}

func glossary(ctx context.Context, input string, _ *session.Session, c collab.Collaborators) string {
	if c.Glossary == nil {
		return Failuref("glossary storage is not configured")
	}

	arg := Args(input, IDGlossary)
	if arg != "" {
		term, definition, ok := strings.Cut(arg, ":")
		term, definition = strings.TrimSpace(term), strings.TrimSpace(definition)
		if !ok || term == "" || definition == "" {
			return Failuref("usage: /glossary <term>: <definition>")
		}
		if err := c.Glossary.AddTerm(ctx, term, definition); err != nil {
			return Failuref("could not save %q: %v", term, err)
		}
		return fmt.Sprintf("✅ Saved glossary term %q", term)
	}

	terms, err := c.Glossary.ListTerms(ctx)
	if err != nil {
		return Failuref("could not load glossary: %v", err)
	}
	if len(terms) == 0 {
		return "📖 The glossary is empty. Add a term with `/glossary <term>: <definition>`."
	}
	var sb strings.Builder
	sb.WriteString("📖 Glossary\n")
	for _, t := range terms {
		fmt.Fprintf(&sb, "- **%s**: %s\n", t.Term, t.Definition)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func manifesto(ctx context.Context, input string, s *session.Session, c collab.Collaborators) string {
	if c.Agent == nil || c.Writer == nil {
		return Failuref("manifesto generation needs an agent and file access")
	}

	var sb strings.Builder
	sb.WriteString("Write a concise project manifesto in Markdown: the coding principles, testing expectations " +
		"and conventions this team should follow.\n")
	fmt.Fprintf(&sb, "Tech stack: %s\nTest framework: %s\n", s.TechStack.OrElse("unknown"), s.TestFramework.OrElse("unknown"))
	if focus := Args(input, IDManifesto); focus != "" {
		fmt.Fprintf(&sb, "Focus on: %s\n", focus)
	}
	if c.Glossary != nil {
		if terms, err := c.Glossary.ListTerms(ctx); err == nil && len(terms) > 0 {
			sb.WriteString("Use this project vocabulary consistently:\n")
			for _, t := range terms {
				fmt.Fprintf(&sb, "- %s: %s\n", t.Term, t.Definition)
			}
		}
	}

	reply, err := c.Agent.SendMessage(ctx, sb.String())
	if err != nil {
		return Failuref("agent request failed: %v", err)
	}
	content := strings.TrimSpace(reply) + "\n"
	location, err := c.Writer.Write(ctx, "MANIFESTO.md", content)
	if err != nil {
		return Failuref("could not write MANIFESTO.md: %v", err)
	}
	return fmt.Sprintf("✅ Manifesto written to %s\n\n%s", location, strings.TrimSpace(reply))
}

var fenceExtensions = map[string]string{
	"go": ".go", "golang": ".go",
	"python": ".py", "py": ".py",
	"javascript": ".js", "js": ".js", "jsx": ".jsx",
	"typescript": ".ts", "ts": ".ts", "tsx": ".tsx",
	"rust": ".rs", "dart": ".dart",
}

func (d Deps) codegen(ctx context.Context, input string, s *session.Session, c collab.Collaborators) string {
	if c.Agent == nil {
		return Failuref("code generation needs an agent")
	}
	if s.AgentMode && c.Writer == nil {
		return Failuref("code generation needs file access to save results")
	}

	stackName := s.TechStack.OrElse("")
	language := "the most suitable language"
	if st, ok := stack.LookupStack(stackName); ok {
		language = fmt.Sprintf("%s (%s)", st.Language, st.Name)
	}
	prompt := fmt.Sprintf("Write %s code for this request:\n%s\n\n"+
		"Reply with a single fenced code block containing complete, runnable code.", language, strings.TrimSpace(input))

	reply, err := c.Agent.SendMessage(ctx, prompt)
	if err != nil {
		return Failuref("agent request failed: %v", err)
	}
	code := artifact.ExtractCode(reply)
	if strings.TrimSpace(code) == "" {
		return Failuref("the agent returned no code")
	}
	fence := artifact.FenceLanguage(reply)

	// chat-only mode never writes files
	if !s.AgentMode {
		return fmt.Sprintf("💬 Generated code (not saved; turn on agent mode with `/mode agent on` to save it)\n\n```%s\n%s```", fence, code)
	}

	ext := ".txt"
	if st, ok := stack.LookupStack(stackName); ok {
		ext = st.SourceExt
	} else if e, ok := fenceExtensions[fence]; ok {
		ext = e
	}
	srcDir := d.Paths.SrcDir
	if srcDir == "" {
		srcDir = "src"
	}
	name := fmt.Sprintf("%s_%s%s", utils.Slugify(input, 4), uuid.NewString()[:8], ext)
	location, err := c.Writer.Write(ctx, filepath.Join(srcDir, name), code)
	if err != nil {
		return Failuref("could not save generated code: %v", err)
	}
	return fmt.Sprintf("✅ Generated code saved to %s\n\n```%s\n%s```", location, fence, code)
}

func runTests(ctx context.Context, input string, s *session.Session, c collab.Collaborators) string {
	if c.Runner == nil {
		return Failuref("no test runner is configured")
	}
	framework := Args(input, IDTest)
	if framework == "" {
		framework = s.TestFramework.OrElse("")
	}
	if framework == "" {
		return Failuref("no test framework selected; use /test <framework> or index the project")
	}

	report, err := c.Runner.Run(ctx, framework)
	if err != nil {
		return Failuref("could not run %s tests: %v", framework, err)
	}
	return RenderReport(framework, report)
}

// RenderReport formats a test report for chat.
func RenderReport(framework string, r collab.TestReport) string {
	icon := "🔴"
	if r.Passed() {
		icon = "🟢"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s: %s (exit %d, %s)", icon, framework, r.Outcome, r.ExitCode, r.Duration.Round(time.Millisecond))
	if len(r.Failed) > 0 {
		sb.WriteString("\nFailed:")
		for _, f := range r.Failed {
			fmt.Fprintf(&sb, "\n- %s", f)
		}
	}
	if out := strings.TrimSpace(r.Output); out != "" && !r.Passed() {
		fmt.Fprintf(&sb, "\n\n```\n%s\n```", tail(out, maxOutputChars))
	}
	return sb.String()
}

func mode(_ context.Context, input string, s *session.Session, _ collab.Collaborators) string {
	fields := strings.Fields(Args(input, IDMode))
	if len(fields) == 0 {
		return s.Describe()
	}
	if len(fields) != 2 {
		return Failuref("usage: /mode [agent|tdd|uitdd] [on|off]")
	}

	var enabled bool
	switch strings.ToLower(fields[1]) {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
	default:
		return Failuref("expected on or off, got %q", fields[1])
	}

	switch strings.ToLower(fields[0]) {
	case "agent":
		s.AgentMode = enabled
	case "tdd":
		s.TddMode = enabled
	case "uitdd", "ui-tdd", "ui":
		s.UiTddMode = enabled
	default:
		return Failuref("unknown mode %q", fields[0])
	}
	state := "off"
	if enabled {
		state = "on"
	}
	return fmt.Sprintf("✅ %s mode %s", strings.ToLower(fields[0]), state)
}

func (d Deps) stats(_ context.Context, _ string, _ *session.Session, _ collab.Collaborators) string {
	if d.Stats == nil {
		return Failuref("metrics are not enabled")
	}
	text, err := d.Stats.Text()
	if err != nil {
		return Failuref("could not collect metrics: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return "📊 No activity recorded yet."
	}
	return "📊 Session metrics\n```\n" + strings.TrimRight(text, "\n") + "\n```"
}

// logLimit caps /logs output.
const logLimit = 20

func logs(_ context.Context, input string, _ *session.Session, _ collab.Collaborators) string {
	level := logx.LevelWarn
	if arg := Args(input, IDLogs); arg != "" {
		l, ok := logx.ParseLevel(arg)
		if !ok {
			return Failuref("usage: /logs [debug|info|warn|error]")
		}
		level = l
	}

	entries := logx.RecentEntries(logLimit, level)
	if len(entries) == 0 {
		return fmt.Sprintf("📜 No log entries at %s or above.", level)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 Recent log entries (%s and above)\n```\n", level)
	for _, e := range entries {
		fmt.Fprintf(&sb, "[%s] [%s] %s: %s\n", e.Timestamp, e.Component, e.Level, e.Message)
	}
	sb.WriteString("```")
	return sb.String()
}

func chat(ctx context.Context, input string, s *session.Session, c collab.Collaborators) string {
	if c.Agent == nil {
		return Failuref("no agent is configured")
	}
	prompt := strings.TrimSpace(input)
	if s.History != nil && s.History.Len() > 0 {
		prompt = fmt.Sprintf("Conversation so far:\n%s\n\nuser: %s", s.History.Transcript(), prompt)
	}
	reply, err := c.Agent.SendMessage(ctx, prompt)
	if err != nil {
		return Failuref("agent request failed: %v", err)
	}
	return strings.TrimSpace(reply)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
