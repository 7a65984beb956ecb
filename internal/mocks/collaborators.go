package mocks

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"devpilot/pkg/collab"
)

// Agent implements collab.AgentClient.
type Agent struct {
	// SendFunc is called when SendMessage is invoked. Override to customize behavior.
	SendFunc func(ctx context.Context, prompt string) (string, error)

	// Prompts records every prompt sent.
	Prompts []string

	mu sync.Mutex
}

// NewAgent returns an agent that replies "Mock response".
func NewAgent() *Agent {
	a := &Agent{}
	a.RespondWith("Mock response")
	return a
}

func (a *Agent) SendMessage(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	a.Prompts = append(a.Prompts, prompt)
	fn := a.SendFunc
	a.mu.Unlock()
	return fn(ctx, prompt)
}

func (a *Agent) RespondWith(reply string) {
	a.SendFunc = func(context.Context, string) (string, error) { return reply, nil }
}

// RespondInSequence returns replies in order, repeating the last one.
func (a *Agent) RespondInSequence(replies ...string) {
	var n int
	a.SendFunc = func(context.Context, string) (string, error) {
		i := n
		if i >= len(replies) {
			i = len(replies) - 1
		}
		n++
		return replies[i], nil
	}
}

func (a *Agent) FailWith(err error) {
	a.SendFunc = func(context.Context, string) (string, error) { return "", err }
}

// Calls returns the number of prompts sent.
func (a *Agent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Prompts)
}

// PromptsContaining counts prompts that contain substr.
func (a *Agent) PromptsContaining(substr string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, p := range a.Prompts {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

// Runner implements collab.TestRunner, returning scripted outcomes in order.
type Runner struct {
	// RunFunc is called when Run is invoked. Override to customize behavior.
	RunFunc func(ctx context.Context, framework string) (collab.TestReport, error)

	// Frameworks records the framework of every run.
	Frameworks []string

	mu sync.Mutex
}

// NewRunner returns outcomes in order, repeating the last one.
func NewRunner(outcomes ...collab.Outcome) *Runner {
	if len(outcomes) == 0 {
		outcomes = []collab.Outcome{collab.OutcomePassing}
	}
	r := &Runner{}
	var n int
	r.RunFunc = func(context.Context, string) (collab.TestReport, error) {
		i := n
		if i >= len(outcomes) {
			i = len(outcomes) - 1
		}
		n++
		report := collab.TestReport{Outcome: outcomes[i], Duration: 10 * time.Millisecond}
		if outcomes[i] != collab.OutcomePassing {
			report.ExitCode = 1
			report.Failed = []string{"generated test"}
		}
		return report, nil
	}
	return r
}

func (r *Runner) Run(ctx context.Context, framework string) (collab.TestReport, error) {
	r.mu.Lock()
	r.Frameworks = append(r.Frameworks, framework)
	fn := r.RunFunc
	r.mu.Unlock()
	return fn(ctx, framework)
}

func (r *Runner) FailWith(err error) {
	r.RunFunc = func(context.Context, string) (collab.TestReport, error) { return collab.TestReport{}, err }
}

func (r *Runner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Frameworks)
}

// Writer implements collab.FileWriter in memory. Locations are "mem://<path>".
type Writer struct {
	// Files maps path to the last content written.
	Files map[string]string

	// Order records paths in write order.
	Order []string

	// Err, when set, fails every write.
	Err error

	mu sync.Mutex
}

func NewWriter() *Writer {
	return &Writer{Files: make(map[string]string)}
}

func (w *Writer) Write(_ context.Context, p, content string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return "", w.Err
	}
	p = path.Clean(p)
	w.Files[p] = content
	w.Order = append(w.Order, p)
	return "mem://" + p, nil
}

// Read lets Writer stand in for a file reader too.
func (w *Writer) Read(p string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	content, ok := w.Files[path.Clean(p)]
	if !ok {
		return "", fmt.Errorf("%s: no such file", p)
	}
	return content, nil
}

// PathsUnder returns written paths under dir, in write order.
func (w *Writer) PathsUnder(dir string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := path.Clean(dir) + "/"
	var out []string
	for _, p := range w.Order {
		if strings.HasPrefix(p, prefix) && !strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			out = append(out, p)
		}
	}
	return out
}

// Prompter implements collab.Prompter with scripted answers keyed by call order.
// An empty answer declines.
type Prompter struct {
	// SelectFunc is called when Select is invoked. Override to customize behavior.
	SelectFunc func(ctx context.Context, title string, options []string) (string, bool, error)

	// Titles records every prompt title.
	Titles []string

	// Options records the options offered with each prompt.
	Options [][]string

	mu sync.Mutex
}

// NewPrompter answers prompts in order; an empty answer declines. Extra prompts decline.
func NewPrompter(answers ...string) *Prompter {
	p := &Prompter{}
	var n int
	p.SelectFunc = func(context.Context, string, []string) (string, bool, error) {
		if n >= len(answers) {
			return "", false, nil
		}
		a := answers[n]
		n++
		return a, a != "", nil
	}
	return p
}

func (p *Prompter) Select(ctx context.Context, title string, options []string) (string, bool, error) {
	p.mu.Lock()
	p.Titles = append(p.Titles, title)
	p.Options = append(p.Options, options)
	fn := p.SelectFunc
	p.mu.Unlock()
	return fn(ctx, title, options)
}

// Glossary implements collab.GlossaryStore in memory.
type Glossary struct {
	terms map[string]collab.GlossaryTerm
	Err   error
	mu    sync.Mutex
}

func NewGlossary() *Glossary {
	return &Glossary{terms: make(map[string]collab.GlossaryTerm)}
}

func (g *Glossary) AddTerm(_ context.Context, term, definition string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	g.terms[strings.ToLower(term)] = collab.GlossaryTerm{Term: term, Definition: definition, UpdatedAt: time.Now()}
	return nil
}

func (g *Glossary) ListTerms(context.Context) ([]collab.GlossaryTerm, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	out := make([]collab.GlossaryTerm, 0, len(g.terms))
	for _, t := range g.terms {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Term) < strings.ToLower(out[j].Term) })
	return out, nil
}

// RunLog implements collab.RunLog by keeping every record.
type RunLog struct {
	Runs []collab.RunRecord
	Err  error
	mu   sync.Mutex
}

func (l *RunLog) RecordRun(_ context.Context, run collab.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.Runs = append(l.Runs, run)
	return nil
}
