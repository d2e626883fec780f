// Package runs persists completed sweep runs so the GUI can re-plot them
// without re-simulating.
//
// This is history, not a cache: the simulation core computes every spectrum
// fresh and never consults this store. Records are appended after a sweep
// finishes, read back for charts, and removed by hand or by the retention
// scheduler.
package runs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/rqlab/internal/modules/circuit"
	"github.com/aristath/rqlab/internal/modules/simulation"
)

// ErrRunNotFound marks lookups of run IDs that are not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored sweep run with its full point data.
type Run struct {
	ID         string                  `json:"id"`
	Topology   string                  `json:"topology"`
	Spec       circuit.Spec            `json:"spec"`
	FluxLo     float64                 `json:"flux_lo"`
	FluxHi     float64                 `json:"flux_hi"`
	NPoints    int                     `json:"n_points"`
	NLevels    int                     `json:"n_levels"`
	Failed     int                     `json:"failed"`
	DurationMS int64                   `json:"duration_ms"`
	Points     []simulation.SweepPoint `json:"points"`
	CreatedAt  time.Time               `json:"created_at"`
}

// Summary is a run without its point data, for listings.
type Summary struct {
	ID         string    `json:"id"`
	Topology   string    `json:"topology"`
	FluxLo     float64   `json:"flux_lo"`
	FluxHi     float64   `json:"flux_hi"`
	NPoints    int       `json:"n_points"`
	NLevels    int       `json:"n_levels"`
	Failed     int       `json:"failed"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository handles sweep-run database operations against results.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new run repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Save stores a completed sweep result. Point data (flux, spectrum, status
// per point) is msgpack-encoded into a single blob; the remaining columns
// exist for listing and retention queries.
func (r *Repository) Save(result *simulation.SweepResult) error {
	specJSON, err := json.Marshal(result.Spec)
	if err != nil {
		return fmt.Errorf("failed to encode spec for run %s: %w", result.RunID, err)
	}

	pointsBlob, err := msgpack.Marshal(result.Points)
	if err != nil {
		return fmt.Errorf("failed to encode points for run %s: %w", result.RunID, err)
	}

	_, err = r.db.Exec(`
		INSERT INTO sweep_runs
			(id, topology, spec_json, flux_lo, flux_hi, n_points, n_levels,
			 failed, duration_ms, points_blob, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.RunID,
		string(result.Spec.Topology),
		string(specJSON),
		result.Config.Lo,
		result.Config.Hi,
		result.Config.NPoints,
		result.Config.NLevels,
		result.Failed,
		result.Duration.Milliseconds(),
		pointsBlob,
		result.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.RunID, err)
	}

	r.log.Info().
		Str("run_id", result.RunID).
		Int("points", len(result.Points)).
		Msg("Sweep run stored")

	return nil
}

// Get retrieves a run with its decoded point data.
func (r *Repository) Get(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, topology, spec_json, flux_lo, flux_hi, n_points, n_levels,
		       failed, duration_ms, points_blob, created_at
		FROM sweep_runs WHERE id = ?
	`, id)

	var (
		run       Run
		specJSON  string
		blob      []byte
		createdAt int64
	)
	err := row.Scan(&run.ID, &run.Topology, &specJSON, &run.FluxLo, &run.FluxHi,
		&run.NPoints, &run.NLevels, &run.Failed, &run.DurationMS, &blob, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(specJSON), &run.Spec); err != nil {
		return nil, fmt.Errorf("failed to decode spec for run %s: %w", id, err)
	}
	if err := msgpack.Unmarshal(blob, &run.Points); err != nil {
		return nil, fmt.Errorf("failed to decode points for run %s: %w", id, err)
	}
	run.CreatedAt = time.Unix(createdAt, 0)

	return &run, nil
}

// List returns run summaries, newest first.
func (r *Repository) List(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, topology, flux_lo, flux_hi, n_points, n_levels,
		       failed, duration_ms, created_at
		FROM sweep_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var (
			s         Summary
			createdAt int64
		)
		if err := rows.Scan(&s.ID, &s.Topology, &s.FluxLo, &s.FluxHi,
			&s.NPoints, &s.NLevels, &s.Failed, &s.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		s.CreatedAt = time.Unix(createdAt, 0)
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// Delete removes a stored run.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM sweep_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of run %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// PruneOlderThan removes runs created before the cutoff and returns how
// many were removed. Used by the retention scheduler.
func (r *Repository) PruneOlderThan(cutoff time.Time) (int, error) {
	res, err := r.db.Exec("DELETE FROM sweep_runs WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	if affected > 0 {
		r.log.Info().Int64("removed", affected).Time("cutoff", cutoff).Msg("Pruned old sweep runs")
	}
	return int(affected), nil
}
