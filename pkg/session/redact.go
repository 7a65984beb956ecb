package session

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// RedactedMarker replaces every detected secret.
const RedactedMarker = "[redacted]"

// SecretScanner detects and redacts credentials in free text.
type SecretScanner interface {
	Scan(ctx context.Context, text string) (redacted string, hadRedactions bool, err error)
}

// PatternScanner redacts secrets matched by a fixed set of regular expressions.
type PatternScanner struct {
	patterns []*regexp.Regexp
	timeout  time.Duration
}

// NewPatternScanner returns a scanner with the default credential patterns.
// A zero timeout disables the per-scan deadline.
func NewPatternScanner(timeout time.Duration) *PatternScanner {
	return &PatternScanner{
		patterns: defaultSecretPatterns(),
		timeout:  timeout,
	}
}

func defaultSecretPatterns() []*regexp.Regexp {
	raw := []string{
		`sk-ant-[A-Za-z0-9_-]{40,}`,
		`sk-proj-[A-Za-z0-9_-]{40,}`,
		`sk-[A-Za-z0-9]{40,}`,
		`AIza[0-9A-Za-z_-]{35}`,
		`AKIA[0-9A-Z]{16}`,
		`gh[pousr]_[A-Za-z0-9]{36}`,
		`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*['"]?[A-Za-z0-9_\-./+]{12,}['"]?`,
		`Bearer\s+[A-Za-z0-9_\-.]{20,}`,
		`-----BEGIN\s+(?:RSA|DSA|EC|OPENSSH|PGP)?\s*PRIVATE\s+KEY-----`,
	}
	out := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Scan replaces every match with RedactedMarker.
func (s *PatternScanner) Scan(ctx context.Context, text string) (string, bool, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	redacted := text
	hit := false
	for _, re := range s.patterns {
		if err := ctx.Err(); err != nil {
			return "", false, fmt.Errorf("secret scan interrupted: %w", err)
		}
		if re.MatchString(redacted) {
			hit = true
			redacted = re.ReplaceAllLiteralString(redacted, RedactedMarker)
		}
	}
	return redacted, hit, nil
}
