package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/modules/risk"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "protocol.db"),
		Profile: database.ProfileStandard,
		Name:    "protocol",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	manager := events.NewManager(events.NewBus(log), log)
	service := risk.NewService(risk.NewRepository(db.Conn(), log), manager, log)

	r := chi.NewRouter()
	NewHandler(service, log).RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router *chi.Mux, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleAssess(t *testing.T) {
	router := setupRouter(t)

	rec := postJSON(t, router, "/risk/assess", map[string]interface{}{
		"userId":            "user-1",
		"incomeStability":   78,
		"repaymentHistory":  85,
		"sectorCoefficient": 1.1,
		"liquidityBuffer":   62,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(74), data["riskScore"])
	assert.Equal(t, "A", data["tier"])
}

func TestHandleAssessValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing userId",
			body: map[string]interface{}{
				"incomeStability":   50,
				"repaymentHistory":  50,
				"sectorCoefficient": 1.0,
				"liquidityBuffer":   50,
			},
		},
		{
			name: "missing factor",
			body: map[string]interface{}{
				"userId":            "u",
				"incomeStability":   50,
				"repaymentHistory":  50,
				"sectorCoefficient": 1.0,
			},
		},
		{
			name: "stability above range",
			body: map[string]interface{}{
				"userId":            "u",
				"incomeStability":   120,
				"repaymentHistory":  50,
				"sectorCoefficient": 1.0,
				"liquidityBuffer":   50,
			},
		},
		{
			name: "sector coefficient below range",
			body: map[string]interface{}{
				"userId":            "u",
				"incomeStability":   50,
				"repaymentHistory":  50,
				"sectorCoefficient": 0.2,
				"liquidityBuffer":   50,
			},
		},
		{
			name: "negative buffer",
			body: map[string]interface{}{
				"userId":            "u",
				"incomeStability":   50,
				"repaymentHistory":  50,
				"sectorCoefficient": 1.0,
				"liquidityBuffer":   -5,
			},
		},
	}

	router := setupRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/risk/assess", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleAssessValidationDetails(t *testing.T) {
	router := setupRouter(t)

	rec := postJSON(t, router, "/risk/assess", map[string]interface{}{
		"userId":            "u",
		"incomeStability":   120,
		"repaymentHistory":  50,
		"sectorCoefficient": 1.0,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	errObj := response["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])

	details := errObj["details"].([]interface{})
	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.(map[string]interface{})["field"].(string))
	}
	assert.Contains(t, fields, "incomeStability")
	assert.Contains(t, fields, "liquidityBuffer")
}

func TestHandleGetEngine(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/risk", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, risk.EngineName, data["engine"])
	assert.Len(t, data["tiers"], 8)
}

func TestHandleGetProfileNotFound(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/risk/profiles/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
