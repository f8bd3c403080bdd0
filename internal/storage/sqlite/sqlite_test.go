package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointfeatures/internal/monitoring"
	"github.com/banshee-data/pointfeatures/internal/testutil"
	"github.com/banshee-data/pointfeatures/internal/timeutil"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "features.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	version, dirty, err := MigrateVersion(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, MigrateUp(db))

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestFeatureRunStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store := NewFeatureRunStore(openTestDB(t))
	clock := timeutil.NewStepClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 0)
	store.SetClock(clock)

	run := &FeatureRun{
		SourcePath:     "tile.json",
		TargetPath:     "targets.json",
		VolumeType:     "infinite cylinder",
		VolumeSize:     2.5,
		TargetCount:    3,
		ProvenanceJSON: json.RawMessage(`[{"module":"load"}]`),
	}
	values := map[string][]float64{
		"mean_z": {1.5, math.NaN(), 3},
		"slope":  {0, math.Inf(1), 0.25},
	}
	require.NoError(t, store.Insert(run, values))
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, clock.Now().UnixNano(), run.CreatedAt)
	assert.Equal(t, []string{"mean_z", "slope"}, run.Features)

	got, err := store.Get(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	mean, err := store.Values(run.RunID, "mean_z")
	require.NoError(t, err)
	assert.True(t, testutil.FloatsNear([]float64{1.5, math.NaN(), 3}, mean, 0), "%v", mean)

	slope, err := store.Values(run.RunID, "slope")
	require.NoError(t, err)
	assert.True(t, math.IsInf(slope[1], 1))

	missing, err := store.Values(run.RunID, "perc_95_z")
	require.NoError(t, err)
	testutil.AssertAllNaN(t, missing)
}

func TestFeatureRunStore_ListAndDelete(t *testing.T) {
	t.Parallel()
	store := NewFeatureRunStore(openTestDB(t))
	store.SetClock(timeutil.NewStepClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Second))

	var ids []string
	for i := 0; i < 3; i++ {
		run := &FeatureRun{TargetCount: 1}
		require.NoError(t, store.Insert(run, map[string][]float64{"var_z": {float64(i)}}))
		ids = append(ids, run.RunID)
	}

	runs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID, "newest first")

	runs, err = store.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	require.NoError(t, store.Delete(ids[0]))
	_, err = store.Get(ids[0])
	assert.True(t, errors.Is(err, ErrRunNotFound))
	_, err = store.Values(ids[0], "var_z")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(store.Delete(ids[0]), ErrRunNotFound))

	var remaining int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM feature_values`).Scan(&remaining))
	assert.Equal(t, 2, remaining)
}

func TestFeatureRunStore_InsertErrors(t *testing.T) {
	t.Parallel()
	store := NewFeatureRunStore(openTestDB(t))

	assert.Error(t, store.Insert(nil, nil))
	assert.Error(t, store.Insert(&FeatureRun{TargetCount: 2}, map[string][]float64{"mean_z": {1}}))

	run := &FeatureRun{RunID: "fixed", TargetCount: 1}
	require.NoError(t, store.Insert(run, map[string][]float64{"mean_z": {1}}))
	assert.Error(t, store.Insert(&FeatureRun{RunID: "fixed", TargetCount: 1}, nil), "duplicate run id")
}

func TestFeatureRunStore_InsertFailureLeavesRunUntouched(t *testing.T) {
	t.Parallel()
	store := NewFeatureRunStore(openTestDB(t))
	values := map[string][]float64{"mean_z": {1}, "max_z": {2}}

	first := &FeatureRun{TargetCount: 1}
	require.NoError(t, store.Insert(first, values))
	assert.NotEmpty(t, first.RunID)
	assert.NotZero(t, first.CreatedAt)
	assert.Equal(t, []string{"max_z", "mean_z"}, first.Features)

	tests := []struct {
		name   string
		run    *FeatureRun
		values map[string][]float64
	}{
		{"duplicate run id", &FeatureRun{RunID: first.RunID, TargetCount: 1}, values},
		{"length mismatch", &FeatureRun{TargetCount: 3}, values},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.run
			require.Error(t, store.Insert(tt.run, tt.values))
			assert.Equal(t, before, *tt.run)
		})
	}
}

func TestMigrateLogger_UsesOwnPrefix(t *testing.T) {
	var diag bytes.Buffer
	monitoring.SetLogWriters(monitoring.LogWriters{Diag: &diag})
	defer monitoring.SetLogWriters(monitoring.LogWriters{})

	migrateLogger{}.Printf("1/u create_feature_runs (%dms)\n", 3)
	assert.True(t, strings.HasPrefix(diag.String(), "[migrate] "), diag.String())
	assert.True(t, strings.HasSuffix(diag.String(), " 1/u create_feature_runs (3ms)\n"), diag.String())
	assert.NotContains(t, diag.String(), "[features]")
	assert.False(t, migrateLogger{}.Verbose())
}

func TestIsSQLiteBusy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"database is locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"SQLITE_BUSY", errors.New("SQLITE_BUSY"), true},
		{"other error", errors.New("some other error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSQLiteBusy(tt.err); got != tt.expected {
				t.Errorf("isSQLiteBusy(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryOnBusy(t *testing.T) {
	busy := errors.New("database is locked (5) (SQLITE_BUSY)")

	t.Run("success after retry", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			if calls < 3 {
				return busy
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-busy error fails immediately", func(t *testing.T) {
		calls := 0
		testErr := errors.New("some other error")
		err := retryOnBusy(func() error {
			calls++
			return testErr
		})
		assert.Equal(t, testErr, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return busy
		})
		assert.True(t, errors.Is(err, busy))
		assert.Equal(t, maxBusyRetries, calls)
	})
}
