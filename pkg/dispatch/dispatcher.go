// Package dispatch routes each chat message to the TDD workflow or to the first matching command.
package dispatch

import (
	"context"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"devpilot/pkg/collab"
	"devpilot/pkg/command"
	"devpilot/pkg/intent"
	"devpilot/pkg/logx"
	"devpilot/pkg/metrics"
	"devpilot/pkg/session"
)

// RouteWorkflow is the metrics route for messages handled by the workflow.
const RouteWorkflow = "tdd"

// Responses used when no command produced usable text.
const (
	GenericFailure = command.FailurePrefix + "Something went wrong while handling your message. Please try again."
	NoHandler      = command.FailurePrefix + "No command can handle this message."
	EmptyResponse  = command.FailurePrefix + "The assistant produced an empty response."
)

// Workflow is the automatic TDD action.
type Workflow interface {
	Execute(ctx context.Context, message string, s *session.Session, c collab.Collaborators) string
}

// Exchange is one handled message.
type Exchange struct {
	At       time.Time
	Message  string
	Response string
	// Route is the command id, RouteWorkflow, or "none".
	Route    string
	Duration time.Duration
}

// Sink receives every exchange after the response is final.
type Sink interface {
	Record(ex Exchange) error
}

// Dispatcher processes one message at a time; it must not be re-entered from a command.
type Dispatcher struct {
	table      *command.Table
	workflow   Workflow
	classifier *intent.Classifier
	recorder   metrics.Recorder
	sink       Sink
	logger     *logx.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithClassifier(c *intent.Classifier) Option {
	return func(d *Dispatcher) { d.classifier = c }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithSink records every exchange, e.g. to a transcript file.
func WithSink(s Sink) Option {
	return func(d *Dispatcher) { d.sink = s }
}

// New returns a dispatcher over table. workflow may be nil, which disables automatic action.
func New(table *command.Table, workflow Workflow, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		table:      table,
		workflow:   workflow,
		classifier: intent.NewClassifier(intent.DefaultRules()...),
		recorder:   metrics.Nop{},
		logger:     logx.NewLogger("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch returns the response for message. It always returns a non-empty string and never
// panics; both the message and the response are appended to the session history.
func (d *Dispatcher) Dispatch(ctx context.Context, message string, s *session.Session, c collab.Collaborators) (response string) {
	if s == nil {
		return GenericFailure
	}

	started := time.Now()
	route := "none"
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("recovered from panic while dispatching %q: %v\n%s", truncate(message, 80), r, debug.Stack())
			response = GenericFailure
		}
		if strings.TrimSpace(response) == "" {
			response = EmptyResponse
		}
		if s.History != nil {
			s.History.Append(ctx, session.RoleUser, message)
			s.History.Append(ctx, session.RoleAssistant, response)
		}
		if d.sink != nil {
			ex := Exchange{At: started, Message: message, Response: response, Route: route, Duration: time.Since(started)}
			if err := d.sink.Record(ex); err != nil {
				d.logger.Warn("failed to record exchange: %v", err)
			}
		}
	}()

	if s.TddMode && d.workflow != nil && !d.isSlashCommand(message) && d.ShouldTriggerAutomaticFixes(message, s) {
		logx.Debug(ctx, "dispatch", "routing to TDD workflow")
		route = RouteWorkflow
		d.recorder.ObserveDispatch(route)
		return d.workflow.Execute(ctx, message, s, c)
	}

	cmd, ok := d.table.Resolve(message)
	if !ok {
		d.logger.Warn("no command matched %q", truncate(message, 80))
		d.recorder.ObserveDispatch(route)
		return NoHandler
	}
	logx.Debug(ctx, "dispatch", "routing to %s", cmd.ID)
	route = cmd.ID
	d.recorder.ObserveDispatch(route)

	response = cmd.Run(ctx, message, s, c)
	if strings.HasPrefix(response, command.FailurePrefix) {
		d.logger.Warn("%s failed: %s", cmd.ID, truncate(strings.TrimPrefix(response, command.FailurePrefix), 200))
	}
	return response
}

// ShouldTriggerAutomaticFixes reports whether message warrants automatic code work. It is
// always false outside agent mode; otherwise only the Unclear category suppresses it.
func (d *Dispatcher) ShouldTriggerAutomaticFixes(message string, s *session.Session) bool {
	if s == nil || !s.AgentMode {
		return false
	}
	category := d.classifier.Classify(message)
	d.recorder.ObserveClassification(string(category))
	logx.Debug(context.Background(), "dispatch", "classified %q as %s", truncate(message, 60), category)
	return category != intent.Unclear
}

// isSlashCommand reports whether message explicitly invokes a slash command, which the workflow
// never preempts.
func (d *Dispatcher) isSlashCommand(message string) bool {
	cmd, ok := d.table.Resolve(message)
	return ok && !cmd.IsFallback() && strings.HasPrefix(cmd.ID, "/")
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
