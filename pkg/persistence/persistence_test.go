package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpilot/pkg/collab"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "devpilot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSchemaVersion(t *testing.T) {
	s := openTestStore(t)
	v, err := SchemaVersion(context.Background(), s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)

	require.NoError(t, migrate(context.Background(), s.db))
}

func TestRecordAndListRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.RecordRun(ctx, collab.RunRecord{
		Request:    "add a login form",
		FinalState: "COMPLETE",
		TechStack:  "React",
		States:     []string{"START", "WRITING_TESTS", "COMPLETE"},
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Artifacts: []collab.ArtifactRecord{
			{Kind: "unit_test", Path: "tests/add_login_form_1234abcd.test.js"},
			{Kind: "implementation", Path: "src/add_login_form_1234abcd.js", Checksum: "abc"},
		},
	}))
	require.NoError(t, s.RecordRun(ctx, collab.RunRecord{
		ID: "later", Request: "fix", FinalState: "ABORTED", AbortReason: "setup cancelled",
		StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour),
	}))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "later", runs[0].ID)
	assert.Empty(t, runs[0].Artifacts)
	assert.Nil(t, runs[0].States)

	first := runs[1]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, []string{"START", "WRITING_TESTS", "COMPLETE"}, first.States)
	assert.True(t, start.Equal(first.StartedAt))
	require.Len(t, first.Artifacts, 2)
	assert.Equal(t, "unit_test", first.Artifacts[0].Kind)
	assert.Equal(t, "abc", first.Artifacts[1].Checksum)

	n, err := s.CountRuns(ctx, "ABORTED")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDuplicateRunIDRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := collab.RunRecord{ID: "dup", Request: "r", FinalState: "COMPLETE"}
	require.NoError(t, s.RecordRun(ctx, run))
	assert.Error(t, s.RecordRun(ctx, run))
}

func TestGlossaryUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.AddTerm(ctx, "Widget", "a thing"))
	require.NoError(t, s.AddTerm(ctx, "api", "application interface"))
	require.NoError(t, s.AddTerm(ctx, "widget", "a reusable UI element"))
	assert.Error(t, s.AddTerm(ctx, " ", "x"))

	terms, err := s.ListTerms(ctx)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "api", terms[0].Term)
	assert.Equal(t, "Widget", terms[1].Term)
	assert.Equal(t, "a reusable UI element", terms[1].Definition)
	assert.False(t, terms[1].UpdatedAt.IsZero())
}
