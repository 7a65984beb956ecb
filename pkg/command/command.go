// Package command holds the ordered command table the dispatcher scans, and the built-in commands.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"devpilot/pkg/collab"
	"devpilot/pkg/session"
)

// FailurePrefix starts every user-facing failure message.
const FailurePrefix = "❌ "

var (
	// ErrNoFallback is returned when a table does not end with the fallback command.
	ErrNoFallback = errors.New("command table must end with the fallback command")

	// ErrFallbackRemoval is returned by Remove for the fallback command.
	ErrFallbackRemoval = errors.New("the fallback command can only be removed with RemoveFallback")
)

// RunFunc produces the response for input. It must convert its own failures into a response
// string starting with FailurePrefix rather than panicking.
type RunFunc func(ctx context.Context, input string, s *session.Session, c collab.Collaborators) string

// Command is one routable capability. Match must be pure.
type Command struct {
	ID    string
	Match func(text string) bool
	Run   RunFunc

	fallback bool
}

// IsFallback reports whether c was built by NewFallback.
func (c Command) IsFallback() bool { return c.fallback }

// Always matches every input.
func Always(string) bool { return true }

// NewFallback builds the always-matching command that terminates a table.
func NewFallback(id string, run RunFunc) Command {
	return Command{ID: id, Match: Always, Run: run, fallback: true}
}

// Failuref formats a failure response.
func Failuref(format string, args ...any) string {
	return FailurePrefix + fmt.Sprintf(format, args...)
}

// Table is an ordered list of commands. The first matching command handles a message.
type Table struct {
	cmds []Command
}

// NewTable validates that ids are unique, that exactly the last command is the fallback,
// and that every command has a predicate and an action.
func NewTable(cmds ...Command) (*Table, error) {
	if len(cmds) == 0 || !cmds[len(cmds)-1].fallback {
		return nil, ErrNoFallback
	}
	if last := cmds[len(cmds)-1]; last.Match != nil && !matchesAnything(last.Match) {
		return nil, fmt.Errorf("fallback command %q does not match every input: %w", last.ID, ErrNoFallback)
	}
	seen := make(map[string]bool, len(cmds))
	for i, c := range cmds {
		if err := validate(c); err != nil {
			return nil, err
		}
		if c.fallback && i != len(cmds)-1 {
			return nil, fmt.Errorf("fallback command %q must be last: %w", c.ID, ErrNoFallback)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate command id %q", c.ID)
		}
		seen[c.ID] = true
	}
	return &Table{cmds: append([]Command(nil), cmds...)}, nil
}

// fallbackSamples are inputs a fallback predicate has to accept.
var fallbackSamples = []string{"", " ", "???", "hello", "/unknown", "create a function"}

func matchesAnything(match func(string) bool) bool {
	for _, in := range fallbackSamples {
		if !match(in) {
			return false
		}
	}
	return true
}

func validate(c Command) error {
	if c.ID == "" {
		return fmt.Errorf("command id is required")
	}
	if c.Match == nil || c.Run == nil {
		return fmt.Errorf("command %q needs both Match and Run", c.ID)
	}
	return nil
}

// Append adds c immediately before the fallback, preserving the order of existing entries.
func (t *Table) Append(c Command) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.fallback {
		return fmt.Errorf("cannot append a second fallback %q", c.ID)
	}
	if t.index(c.ID) >= 0 {
		return fmt.Errorf("duplicate command id %q", c.ID)
	}

	n := len(t.cmds)
	if n > 0 && t.cmds[n-1].fallback {
		t.cmds = append(t.cmds[:n-1], c, t.cmds[n-1])
		return nil
	}
	t.cmds = append(t.cmds, c)
	return nil
}

// Remove deletes the command with id. The fallback is protected.
func (t *Table) Remove(id string) error {
	i := t.index(id)
	if i < 0 {
		return fmt.Errorf("unknown command %q", id)
	}
	if t.cmds[i].fallback {
		return ErrFallbackRemoval
	}
	t.cmds = append(t.cmds[:i], t.cmds[i+1:]...)
	return nil
}

// RemoveFallback drops the fallback, after which Resolve may find no match.
func (t *Table) RemoveFallback() {
	if n := len(t.cmds); n > 0 && t.cmds[n-1].fallback {
		t.cmds = t.cmds[:n-1]
	}
}

// Resolve returns the first command whose predicate accepts text.
func (t *Table) Resolve(text string) (Command, bool) {
	for _, c := range t.cmds {
		if c.Match(text) {
			return c, true
		}
	}
	return Command{}, false
}

// IDs lists command ids in table order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.cmds))
	for i, c := range t.cmds {
		ids[i] = c.ID
	}
	return ids
}

func (t *Table) index(id string) int {
	for i, c := range t.cmds {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Slash returns a predicate matching "/name" alone or followed by arguments.
func Slash(name string) func(string) bool {
	return func(text string) bool {
		text = strings.TrimSpace(text)
		if len(text) < len(name) || !strings.EqualFold(text[:len(name)], name) {
			return false
		}
		return len(text) == len(name) || text[len(name)] == ' ' || text[len(name)] == '\t'
	}
}

// Args returns the text after the slash command name.
func Args(text, name string) string {
	text = strings.TrimSpace(text)
	if len(text) < len(name) {
		return ""
	}
	return strings.TrimSpace(text[len(name):])
}
