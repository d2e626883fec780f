package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rqlab/internal/modules/simulation"
	simtest "github.com/aristath/rqlab/internal/testing"
)

// memStore records saved sweeps in memory.
type memStore struct {
	saved   []*simulation.SweepResult
	saveErr error
}

func (m *memStore) Save(result *simulation.SweepResult) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, result)
	return nil
}

func newTestHandler(fake *simulation.Service, store *memStore) *Handler {
	return NewHandler(fake, store, Defaults{NPoints: 50, NLevels: 5, MaxFailures: 0}, zerolog.Nop())
}

func fakeService() (*simulation.Service, *simtest.FakeSimulator) {
	fake := simtest.NewFakeSimulator()
	return simulation.NewService(fake, nil, zerolog.Nop()), fake
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data     map[string]interface{} `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.NotEmpty(t, envelope.Metadata["timestamp"])
	return envelope.Data
}

func decodeErrorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.NotEmpty(t, envelope.Error.Message)
	return envelope.Error.Kind
}

func TestHandleSpectrum(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleSpectrum, "/simulation/spectrum", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "flux": 0.25, "n_levels": 3,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	data := decodeData(t, w)
	assert.Equal(t, "inverter", data["topology"])
	energies, ok := data["energies"].([]interface{})
	require.True(t, ok)
	assert.Len(t, energies, 3)
	assert.NotNil(t, data["metrics"])
}

func TestHandleSpectrum_SingleLevelOmitsMetrics(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleSpectrum, "/simulation/spectrum", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "flux": 0.25, "n_levels": 1,
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)

	energies, ok := data["energies"].([]interface{})
	require.True(t, ok)
	require.Len(t, energies, 1)
	assert.InDelta(t, 0.25, energies[0].(float64), 1e-9)

	_, present := data["metrics"]
	assert.False(t, present, "metrics cannot be derived from one level")
}

func TestHandleSpectrum_InvalidParameter(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleSpectrum, "/simulation/spectrum", map[string]interface{}{
		"gate": "inverter", "ej": -15.0, "ec": 0.3, "flux": 0.25,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_parameter", decodeErrorKind(t, w))
}

func TestHandleSpectrum_UnknownGate(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleSpectrum, "/simulation/spectrum", map[string]interface{}{
		"gate": "nand", "ej": 15.0, "ec": 0.3,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_parameter", decodeErrorKind(t, w))
}

func TestHandleSpectrum_ConstructionFailure(t *testing.T) {
	svc, fake := fakeService()
	fake.FailBuild()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleSpectrum, "/simulation/spectrum", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "flux": 0.25,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "circuit_construction", decodeErrorKind(t, w))
}

func TestHandleSweep_StoresByDefault(t *testing.T) {
	svc, _ := fakeService()
	store := &memStore{}
	h := newTestHandler(svc, store)

	w := postJSON(t, h.HandleSweep, "/simulation/sweep", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "n_points": 5, "n_levels": 3,
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.saved, 1)
	assert.Len(t, store.saved[0].Points, 5)

	data := decodeData(t, w)
	assert.NotEmpty(t, data["run_id"])
	points, ok := data["points"].([]interface{})
	require.True(t, ok)
	assert.Len(t, points, 5)
}

func TestHandleSweep_StoreOptOut(t *testing.T) {
	svc, _ := fakeService()
	store := &memStore{}
	h := newTestHandler(svc, store)

	w := postJSON(t, h.HandleSweep, "/simulation/sweep", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "n_points": 3, "store": false,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.saved)
}

func TestHandleSweep_StorageFailureStillReturnsResult(t *testing.T) {
	svc, _ := fakeService()
	store := &memStore{saveErr: fmt.Errorf("disk full")}
	h := newTestHandler(svc, store)

	w := postJSON(t, h.HandleSweep, "/simulation/sweep", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "n_points": 3,
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSweep_AbortedPastThreshold(t *testing.T) {
	svc, fake := fakeService()
	fake.FailAtFlux(0.25)
	fake.FailAtFlux(0.5)
	store := &memStore{}
	h := newTestHandler(svc, store)

	maxFailures := 1
	w := postJSON(t, h.HandleSweep, "/simulation/sweep", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "n_points": 5,
		"max_failures": maxFailures,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "sweep_aborted", decodeErrorKind(t, w))
	assert.Empty(t, store.saved, "aborted sweeps are not stored")
}

func TestHandleSweep_InvalidRange(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	lo, hi := 0.8, 0.2
	w := postJSON(t, h.HandleSweep, "/simulation/sweep", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "lo": lo, "hi": hi,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_parameter", decodeErrorKind(t, w))
}

func TestHandleMetrics(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleMetrics, "/simulation/metrics", map[string]interface{}{
		"energies": []float64{0, 5, 9.5},
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)

	metrics, ok := data["metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, -0.5, metrics["anharmonicity"].(float64), 1e-9)

	transitions, ok := data["transition_frequencies"].([]interface{})
	require.True(t, ok)
	assert.Len(t, transitions, 2)
}

func TestHandleMetrics_InsufficientLevels(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleMetrics, "/simulation/metrics", map[string]interface{}{
		"energies": []float64{4.2},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient_levels", decodeErrorKind(t, w))
}

func TestHandleCoupling(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleCoupling, "/simulation/coupling", map[string]interface{}{
		"energies_a": []float64{0, 5.2},
		"energies_b": []float64{0, 5.0},
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.InDelta(t, 0.2, data["coupling_strength"].(float64), 1e-9)
}

func TestHandleEvolve(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleEvolve, "/simulation/evolve", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3, "n_levels": 3,
		"times": []float64{0, 1, 2},
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	populations, ok := data["populations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, populations, 3)
}

func TestHandleRefineAntiCrossing_BadGuess(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	w := postJSON(t, h.HandleRefineAntiCrossing, "/simulation/anticrossing", map[string]interface{}{
		"gate": "inverter", "ej": 15.0, "ec": 0.3,
		"level_a": 0, "level_b": 1, "guess": 1.7,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_parameter", decodeErrorKind(t, w))
}

func TestHandlers_MalformedBody(t *testing.T) {
	svc, _ := fakeService()
	h := newTestHandler(svc, &memStore{})

	req := httptest.NewRequest("POST", "/simulation/spectrum", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.HandleSpectrum(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
