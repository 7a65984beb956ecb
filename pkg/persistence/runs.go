package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"devpilot/pkg/collab"
)

// Fixed-width so lexical order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRun stores a run and its artifacts in one transaction. Missing ids are generated.
func (s *Store) RecordRun(ctx context.Context, run collab.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO workflow_runs
		(id, request, final_state, abort_reason, tech_stack, test_framework, ui_framework, states, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Request, run.FinalState, run.AbortReason, run.TechStack, run.TestFramework, run.UiFramework,
		strings.Join(run.States, ","), run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for _, a := range run.Artifacts {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO run_artifacts (id, run_id, kind, path, checksum) VALUES (?, ?, ?, ?, ?)`,
			a.ID, run.ID, a.Kind, a.Path, a.Checksum)
		if err != nil {
			return fmt.Errorf("failed to insert artifact %s: %w", a.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	s.logger.Debug("recorded run %s (%s, %d artifacts)", run.ID, run.FinalState, len(run.Artifacts))
	return nil
}

// RecentRuns returns up to limit runs, newest first, with their artifacts.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]collab.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, request, final_state, abort_reason, tech_stack, test_framework,
		ui_framework, states, started_at, finished_at
		FROM workflow_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []collab.RunRecord
	for rows.Next() {
		var (
			r                 collab.RunRecord
			states            string
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Request, &r.FinalState, &r.AbortReason, &r.TechStack, &r.TestFramework,
			&r.UiFramework, &states, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if states != "" {
			r.States = strings.Split(states, ",")
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for i := range runs {
		artifacts, err := s.artifacts(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Artifacts = artifacts
	}
	return runs, nil
}

func (s *Store) artifacts(ctx context.Context, runID string) ([]collab.ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, path, checksum FROM run_artifacts WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts for %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []collab.ArtifactRecord
	for rows.Next() {
		var a collab.ArtifactRecord
		if err := rows.Scan(&a.ID, &a.Kind, &a.Path, &a.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountRuns returns the number of runs that ended in state.
func (s *Store) CountRuns(ctx context.Context, state string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_runs WHERE final_state = ?`, state).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
