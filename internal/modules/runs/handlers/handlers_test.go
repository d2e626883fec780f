package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/rqlab/internal/events"
	"github.com/aristath/rqlab/internal/modules/circuit"
	"github.com/aristath/rqlab/internal/modules/runs"
	"github.com/aristath/rqlab/internal/modules/simulation"
)

func setupTestRepo(t *testing.T) *runs.Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE sweep_runs (
			id          TEXT PRIMARY KEY,
			topology    TEXT NOT NULL,
			spec_json   TEXT NOT NULL,
			flux_lo     REAL NOT NULL,
			flux_hi     REAL NOT NULL,
			n_points    INTEGER NOT NULL,
			n_levels    INTEGER NOT NULL,
			failed      INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			points_blob BLOB NOT NULL,
			created_at  INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return runs.NewRepository(db, zerolog.Nop())
}

func seedRun(t *testing.T, repo *runs.Repository, id string) {
	t.Helper()
	spec, err := circuit.NewInverter(circuit.GateParameters{Ej: 15, Ec: 0.3, Flux: 0, NLevels: 2}, 0)
	require.NoError(t, err)

	require.NoError(t, repo.Save(&simulation.SweepResult{
		RunID:  id,
		Spec:   spec,
		Config: simulation.SweepConfig{Lo: 0, Hi: 1, NPoints: 2, NLevels: 2},
		Points: []simulation.SweepPoint{
			{Flux: 0, Status: simulation.PointOK, Energies: []float64{0, 1}},
			{Flux: 1, Status: simulation.PointOK, Energies: []float64{1, 2}},
		},
		StartedAt: time.Now(),
	}))
}

func newTestRouter(repo *runs.Repository, bus *events.Bus) *chi.Mux {
	h := NewHandler(repo, bus, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandleList(t *testing.T) {
	repo := setupTestRepo(t)
	seedRun(t, repo, "run-1")
	seedRun(t, repo, "run-2")
	router := newTestRouter(repo, events.NewBus(zerolog.Nop()))

	req := httptest.NewRequest("GET", "/runs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []runs.Summary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	assert.Len(t, envelope.Data, 2)
}

func TestHandleGet(t *testing.T) {
	repo := setupTestRepo(t)
	seedRun(t, repo, "run-1")
	router := newTestRouter(repo, events.NewBus(zerolog.Nop()))

	req := httptest.NewRequest("GET", "/runs/run-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data runs.Run `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	assert.Equal(t, "run-1", envelope.Data.ID)
	assert.Len(t, envelope.Data.Points, 2)
}

func TestHandleGet_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	router := newTestRouter(repo, events.NewBus(zerolog.Nop()))

	req := httptest.NewRequest("GET", "/runs/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "run_not_found")
}

func TestHandleDelete(t *testing.T) {
	repo := setupTestRepo(t)
	seedRun(t, repo, "run-1")

	bus := events.NewBus(zerolog.Nop())
	var deleted []string
	bus.Subscribe(events.RunDeleted, func(e *events.Event) {
		deleted = append(deleted, e.Data.(*events.RunDeletedData).RunID)
	})

	router := newTestRouter(repo, bus)

	req := httptest.NewRequest("DELETE", "/runs/run-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"run-1"}, deleted)

	_, err := repo.Get("run-1")
	assert.ErrorIs(t, err, runs.ErrRunNotFound)
}

func TestHandleDelete_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	router := newTestRouter(repo, events.NewBus(zerolog.Nop()))

	req := httptest.NewRequest("DELETE", "/runs/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
