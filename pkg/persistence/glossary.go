package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"devpilot/pkg/collab"
)

// AddTerm inserts or replaces a glossary entry. Terms compare case-insensitively.
func (s *Store) AddTerm(ctx context.Context, term, definition string) error {
	term = strings.TrimSpace(term)
	definition = strings.TrimSpace(definition)
	if term == "" || definition == "" {
		return fmt.Errorf("glossary term and definition are required")
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO glossary_terms (term, definition, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(term) DO UPDATE SET definition = excluded.definition, updated_at = excluded.updated_at`,
		term, definition, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save glossary term %q: %w", term, err)
	}
	return nil
}

// ListTerms returns every term in alphabetical order.
func (s *Store) ListTerms(ctx context.Context) ([]collab.GlossaryTerm, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term, definition, updated_at FROM glossary_terms ORDER BY term COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to query glossary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var terms []collab.GlossaryTerm
	for rows.Next() {
		var (
			t       collab.GlossaryTerm
			updated string
		)
		if err := rows.Scan(&t.Term, &t.Definition, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan glossary term: %w", err)
		}
		t.UpdatedAt, _ = time.Parse(timeLayout, updated)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
