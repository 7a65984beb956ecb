package session

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"devpilot/pkg/logx"
	"devpilot/pkg/utils"
)

const (
	// DefaultMaxEntryChars caps a single history entry.
	DefaultMaxEntryChars = 4096

	// TruncationSuffix marks an entry that was cut to DefaultMaxEntryChars.
	TruncationSuffix = " … [truncated]"
)

// Role identifies who produced a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one turn of the conversation.
type Entry struct {
	At      time.Time
	Role    Role
	Content string
	Tokens  int
}

// History is a bounded conversation log. Entries are redacted and truncated on the way in
// and the oldest entries are evicted once either the entry limit or the token budget is exceeded.
type History struct {
	scanner     SecretScanner
	logger      *logx.Logger
	entries     []Entry
	maxEntries  int
	tokenBudget int
	tokens      int
	mu          sync.Mutex
}

// NewHistory creates a history. Non-positive limits disable the corresponding bound.
func NewHistory(maxEntries, tokenBudget int, scanner SecretScanner) *History {
	return &History{
		scanner:     scanner,
		logger:      logx.NewLogger("history"),
		maxEntries:  maxEntries,
		tokenBudget: tokenBudget,
	}
}

// Append records a turn.
func (h *History) Append(ctx context.Context, role Role, content string) {
	if h.scanner != nil {
		redacted, hit, err := h.scanner.Scan(ctx, content)
		switch {
		case err != nil:
			h.logger.Warn("secret scan failed, dropping %s entry: %v", role, err)
			return
		case hit:
			h.logger.Info("redacted secrets from %s entry", role)
		}
		content = redacted
	}
	content = truncate(content, DefaultMaxEntryChars)

	entry := Entry{
		At:      time.Now(),
		Role:    role,
		Content: content,
		Tokens:  utils.CountTokensSimple(content),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	h.tokens += entry.Tokens
	h.evictLocked()
}

func (h *History) evictLocked() {
	for len(h.entries) > 1 {
		overCount := h.maxEntries > 0 && len(h.entries) > h.maxEntries
		overTokens := h.tokenBudget > 0 && h.tokens > h.tokenBudget
		if !overCount && !overTokens {
			return
		}
		h.tokens -= h.entries[0].Tokens
		h.entries = h.entries[1:]
	}
}

// Entries returns a copy of the retained turns, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of retained turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Tokens returns the token total of the retained turns.
func (h *History) Tokens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tokens
}

// Transcript renders the retained turns as "role: content" lines.
func (h *History) Transcript() string {
	var sb strings.Builder
	for _, e := range h.Entries() {
		sb.WriteString(string(e.Role))
		sb.WriteString(": ")
		sb.WriteString(e.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + TruncationSuffix
}
