package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/banshee-data/pointfeatures/internal/timeutil"
)

// ErrRunNotFound is returned for operations on an unknown run ID.
var ErrRunNotFound = errors.New("feature run not found")

// FeatureRun describes one persisted extraction run.
type FeatureRun struct {
	RunID          string          `json:"run_id"`
	SourcePath     string          `json:"source_path"`
	TargetPath     string          `json:"target_path"`
	VolumeType     string          `json:"volume_type"`
	VolumeSize     float64         `json:"volume_size"`
	TargetCount    int             `json:"target_count"`
	Features       []string        `json:"features"`
	ProvenanceJSON json.RawMessage `json:"provenance_json,omitempty"`
	CreatedAt      int64           `json:"created_at"`
}

// FeatureRunStore provides persistence for extraction runs and their
// per-point feature values.
type FeatureRunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewFeatureRunStore creates a new FeatureRunStore.
func NewFeatureRunStore(db *sql.DB) *FeatureRunStore {
	return &FeatureRunStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used for CreatedAt timestamps.
func (s *FeatureRunStore) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Insert persists run and the given feature columns in one transaction.
// Every column must hold run.TargetCount values. When RunID is empty a
// UUID is generated; when Features is empty it is filled from values. The
// generated fields are set on run only once the transaction commits.
func (s *FeatureRunStore) Insert(run *FeatureRun, values map[string][]float64) error {
	if run == nil {
		return fmt.Errorf("nil feature run")
	}
	for name, col := range values {
		if len(col) != run.TargetCount {
			return fmt.Errorf("feature %q has %d values, run has %d targets", name, len(col), run.TargetCount)
		}
	}
	runID := run.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	createdAt := run.CreatedAt
	if createdAt == 0 {
		createdAt = s.clock.Now().UnixNano()
	}
	names := run.Features
	if len(names) == 0 {
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	featuresJSON, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	var provenance interface{}
	if len(run.ProvenanceJSON) > 0 {
		provenance = string(run.ProvenanceJSON)
	}
	var volumeSize interface{}
	if !math.IsNaN(run.VolumeSize) && run.VolumeSize != 0 {
		volumeSize = run.VolumeSize
	}

	err = retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO feature_runs (
				run_id, source_path, target_path, volume_type, volume_size,
				target_count, features_json, provenance_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, run.SourcePath, run.TargetPath, run.VolumeType, volumeSize,
			run.TargetCount, string(featuresJSON), provenance, createdAt,
		); err != nil {
			return fmt.Errorf("insert feature run: %w", err)
		}

		stmt, err := tx.Prepare(`INSERT INTO feature_values (run_id, feature, point_index, value) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare feature values: %w", err)
		}
		defer stmt.Close()
		for name, col := range values {
			for i, v := range col {
				if _, err := stmt.Exec(runID, name, i, nullableFloat(v)); err != nil {
					return fmt.Errorf("insert feature value %s[%d]: %w", name, i, err)
				}
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return err
	}
	run.RunID, run.CreatedAt, run.Features = runID, createdAt, names
	return nil
}

// Get returns a single run by ID.
func (s *FeatureRunStore) Get(runID string) (*FeatureRun, error) {
	row := s.db.QueryRow(`
		SELECT run_id, source_path, target_path, volume_type, volume_size,
		       target_count, features_json, provenance_json, created_at
		FROM feature_runs
		WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first, at most limit of them (all
// when limit <= 0).
func (s *FeatureRunStore) List(limit int) ([]*FeatureRun, error) {
	query := `
		SELECT run_id, source_path, target_path, volume_type, volume_size,
		       target_count, features_json, provenance_json, created_at
		FROM feature_runs
		ORDER BY created_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feature runs: %w", err)
	}
	defer rows.Close()

	var runs []*FeatureRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Values returns one feature column of a run indexed by target point.
// Points without a stored value read as NaN.
func (s *FeatureRunStore) Values(runID, feature string) ([]float64, error) {
	run, err := s.Get(runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT point_index, value FROM feature_values
		WHERE run_id = ? AND feature = ?
		ORDER BY point_index`, runID, feature)
	if err != nil {
		return nil, fmt.Errorf("query feature values: %w", err)
	}
	defer rows.Close()

	out := make([]float64, run.TargetCount)
	for i := range out {
		out[i] = math.NaN()
	}
	for rows.Next() {
		var idx int
		var v sql.NullFloat64
		if err := rows.Scan(&idx, &v); err != nil {
			return nil, fmt.Errorf("scan feature value: %w", err)
		}
		if idx >= 0 && idx < len(out) && v.Valid {
			out[idx] = v.Float64
		}
	}
	return out, rows.Err()
}

// Delete removes a run and its values.
func (s *FeatureRunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM feature_values WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("delete feature values: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM feature_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete feature run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return tx.Commit()
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*FeatureRun, error) {
	var run FeatureRun
	var volumeSize sql.NullFloat64
	var featuresJSON string
	var provenance sql.NullString
	err := row.Scan(
		&run.RunID, &run.SourcePath, &run.TargetPath, &run.VolumeType, &volumeSize,
		&run.TargetCount, &featuresJSON, &provenance, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan feature run: %w", err)
	}
	if volumeSize.Valid {
		run.VolumeSize = volumeSize.Float64
	}
	if err := json.Unmarshal([]byte(featuresJSON), &run.Features); err != nil {
		return nil, fmt.Errorf("parse features_json of run %s: %w", run.RunID, err)
	}
	if provenance.Valid {
		run.ProvenanceJSON = json.RawMessage(provenance.String)
	}
	return &run, nil
}

func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
