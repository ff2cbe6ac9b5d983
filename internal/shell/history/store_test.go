package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(role, mode string, startedAt time.Time) *Record {
	return &Record{
		Role:       role,
		Mode:       mode,
		Outcome:    OutcomeSucceeded,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Second),
	}
}

// =============================================================================
// Record Tests
// =============================================================================

func TestSQLiteStore_RecordInvocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("web", "install", time.Now())
	require.NoError(t, store.RecordInvocation(ctx, rec))

	// An ID is assigned on save.
	assert.NotEmpty(t, rec.ID)

	records, err := store.ListByRole(ctx, "web", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, "install", records[0].Mode)
	assert.Equal(t, OutcomeSucceeded, records[0].Outcome)
}

func TestSQLiteStore_RecordInvocation_KeepsExplicitID(t *testing.T) {
	store := newTestStore(t)

	rec := sampleRecord("web", "install", time.Now())
	rec.ID = "explicit-id"

	require.NoError(t, store.RecordInvocation(context.Background(), rec))
	assert.Equal(t, "explicit-id", rec.ID)
}

func TestSQLiteStore_RecordInvocation_FailedOutcome(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("web", "purge", time.Now())
	rec.Outcome = OutcomeFailed
	rec.Error = "daemon unreachable"
	require.NoError(t, store.RecordInvocation(ctx, rec))

	records, err := store.ListByRole(ctx, "web", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, OutcomeFailed, records[0].Outcome)
	assert.Equal(t, "daemon unreachable", records[0].Error)
}

// =============================================================================
// List Tests
// =============================================================================

func TestSQLiteStore_ListByRole_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.RecordInvocation(ctx, sampleRecord("web", "install", base)))
	require.NoError(t, store.RecordInvocation(ctx, sampleRecord("web", "purge", base.Add(10*time.Minute))))
	require.NoError(t, store.RecordInvocation(ctx, sampleRecord("web", "install", base.Add(20*time.Minute))))

	records, err := store.ListByRole(ctx, "web", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "install", records[0].Mode)
	assert.Equal(t, "purge", records[1].Mode)
	assert.True(t, records[0].StartedAt.After(records[1].StartedAt))
}

func TestSQLiteStore_ListByRole_FiltersByRole(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordInvocation(ctx, sampleRecord("web", "install", time.Now())))
	require.NoError(t, store.RecordInvocation(ctx, sampleRecord("db", "install", time.Now())))

	records, err := store.ListByRole(ctx, "web", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "web", records[0].Role)
}

func TestSQLiteStore_ListByRole_Limit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordInvocation(ctx, sampleRecord("web", "install", base.Add(time.Duration(i)*time.Minute))))
	}

	records, err := store.ListByRole(ctx, "web", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSQLiteStore_ListByRole_Empty(t *testing.T) {
	store := newTestStore(t)

	records, err := store.ListByRole(context.Background(), "never-deployed", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteStore_ListByRole_CorruptTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO invocations (id, role, mode, outcome, warnings, error, started_at, finished_at)
		VALUES ('corrupt', 'web', 'install', 'succeeded', 0, '', 'not-a-timestamp', '')
	`)
	require.NoError(t, err)

	// A corrupt row still lists; its timestamps degrade to the zero time.
	records, err := store.ListByRole(ctx, "web", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].StartedAt.IsZero())
	assert.True(t, records[0].FinishedAt.IsZero())
}
