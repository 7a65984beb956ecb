// Package logx provides component-scoped logging with domain-filtered debug output.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger writes lines tagged with the component that owns it.
type Logger struct {
	component string
}

// Entry is one captured log line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Component string `json:"component"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Domain    string `json:"domain,omitempty"`
}

type ringBuffer struct {
	entries []Entry
	maxSize int
	mu      sync.RWMutex
}

type debugSettings struct {
	domains map[string]bool // nil means every domain
	enabled bool
}

type ctxKey struct{}

//nolint:gochecknoglobals // process-wide logging sinks
var (
	output   io.Writer = os.Stderr
	outputMu sync.Mutex

	debug   debugSettings
	debugMu sync.RWMutex

	recent = &ringBuffer{maxSize: 500}
)

func init() { //nolint:gochecknoinits // env-driven debug switches
	loadDebugFromEnv()
}

// loadDebugFromEnv reads DEBUG=1|true and DEBUG_DOMAINS=dispatch,tdd.
func loadDebugFromEnv() {
	debugMu.Lock()
	defer debugMu.Unlock()

	v := os.Getenv("DEBUG")
	debug.enabled = v == "1" || strings.EqualFold(v, "true")
	debug.domains = parseDomains(os.Getenv("DEBUG_DOMAINS"))
}

func parseDomains(raw string) map[string]bool {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	domains := make(map[string]bool)
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains[d] = true
		}
	}
	return domains
}

// NewLogger returns a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// SetOutput redirects all log output. It returns the previous writer so tests can restore it.
func SetOutput(w io.Writer) io.Writer {
	outputMu.Lock()
	defer outputMu.Unlock()
	prev := output
	output = w
	return prev
}

// SetDebug enables or disables debug output. An empty domain list enables every domain.
func SetDebug(enabled bool, domains ...string) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debug.enabled = enabled
	debug.domains = parseDomains(strings.Join(domains, ","))
}

// IsDebugEnabledForDomain reports whether Debug calls for domain produce output.
func IsDebugEnabledForDomain(domain string) bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	if !debug.enabled {
		return false
	}
	if debug.domains == nil {
		return true
	}
	return debug.domains[domain]
}

// WithComponent stores a component name on ctx for package-level Debug calls.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ctxKey{}, component)
}

func componentFrom(ctx context.Context) string {
	if ctx != nil {
		if c, ok := ctx.Value(ctxKey{}).(string); ok && c != "" {
			return c
		}
	}
	return "devpilot"
}

func write(component string, level Level, domain, message string) {
	ts := time.Now().UTC().Format(timestampLayout)
	line := fmt.Sprintf("[%s] [%s] %s: %s", ts, component, level, message)
	if domain != "" {
		line = fmt.Sprintf("[%s] [%s] %s: [%s] %s", ts, component, level, domain, message)
	}

	outputMu.Lock()
	_, _ = fmt.Fprintln(output, line)
	outputMu.Unlock()

	recent.add(Entry{
		Timestamp: ts,
		Component: component,
		Level:     string(level),
		Message:   message,
		Domain:    domain,
	})
}

func (l *Logger) Debug(format string, args ...any) {
	debugMu.RLock()
	enabled := debug.enabled
	debugMu.RUnlock()
	if !enabled {
		return
	}
	write(l.component, LevelDebug, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	write(l.component, LevelInfo, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	write(l.component, LevelWarn, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	write(l.component, LevelError, "", fmt.Sprintf(format, args...))
}

// DebugState logs a state machine step.
func (l *Logger) DebugState(action, state string, extra ...string) {
	if len(extra) > 0 {
		l.Debug("State %s: %s - %s", action, state, extra[0])
		return
	}
	l.Debug("State %s: %s", action, state)
}

// Debug logs under a domain, honoring DEBUG_DOMAINS filtering.
//
//	DEBUG=1                          # every domain
//	DEBUG=1 DEBUG_DOMAINS=tdd        # only the tdd domain
//	DEBUG=1 DEBUG_DOMAINS=tdd,intent # several domains
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}
	write(componentFrom(ctx), LevelDebug, domain, fmt.Sprintf(format, args...))
}

// DebugFlow logs a workflow step for a domain.
func DebugFlow(ctx context.Context, domain, step, status string) {
	Debug(ctx, domain, "Flow %s: %s", step, status)
}

func (b *ringBuffer) add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	if len(b.entries) > b.maxSize {
		b.entries = b.entries[len(b.entries)-b.maxSize:]
	}
}

// RecentEntries returns captured entries, newest last, optionally filtered by minimum level.
func RecentEntries(limit int, minLevel Level) []Entry {
	recent.mu.RLock()
	defer recent.mu.RUnlock()

	out := make([]Entry, 0, len(recent.entries))
	for _, e := range recent.entries {
		if levelRank(Level(e.Level)) >= levelRank(minLevel) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// ParseLevel accepts a level name in any case.
func ParseLevel(name string) (Level, bool) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(name))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, true
	}
	return "", false
}

func levelRank(l Level) int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 0
	}
}

var defaultLogger = NewLogger("devpilot") //nolint:gochecknoglobals

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

// Errorf logs and returns the formatted error.
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err and returns the wrapped error. A nil err returns nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrapped.Error())
	return wrapped
}
