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
	"github.com/Xconmax245/Quantara/internal/modules/contracts"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	manager := events.NewManager(events.NewBus(log), log)
	service := contracts.NewService(contracts.NewRepository(db.Conn(), log), manager, log)

	r := chi.NewRouter()
	NewHandler(service, log).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createContract(t *testing.T, router *chi.Mux) map[string]interface{} {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/contracts", map[string]interface{}{
		"borrowerId":   "borrower-1",
		"principal":    10000,
		"interestRate": 12,
		"term":         12,
		"riskTier":     "A",
		"riskScore":    74,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response["data"].(map[string]interface{})
}

func TestHandleCreate(t *testing.T) {
	router := setupRouter(t)
	data := createContract(t, router)

	assert.Equal(t, "CREATED", data["status"])
	assert.Regexp(t, `^0x[0-9a-f]{40}$`, data["nftId"])
	assert.Len(t, data["repaymentSchedule"], 12)
}

func TestHandleCreateValidation(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing borrower", map[string]interface{}{"principal": 1000, "interestRate": 5, "term": 6, "riskTier": "A", "riskScore": 70}},
		{"zero principal", map[string]interface{}{"borrowerId": "b", "principal": 0, "interestRate": 5, "term": 6, "riskTier": "A", "riskScore": 70}},
		{"zero term", map[string]interface{}{"borrowerId": "b", "principal": 1000, "interestRate": 5, "term": 0, "riskTier": "A", "riskScore": 70}},
		{"bad tier", map[string]interface{}{"borrowerId": "b", "principal": 1000, "interestRate": 5, "term": 6, "riskTier": "ZZZ", "riskScore": 70}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/contracts", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleFundAndTransition(t *testing.T) {
	router := setupRouter(t)
	data := createContract(t, router)
	contractID := data["id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/contracts/"+contractID+"/fund", map[string]interface{}{"amount": 10000})
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "FUNDED", response["data"].(map[string]interface{})["status"])

	rec = doJSON(t, router, http.MethodPost, "/contracts/"+contractID+"/transition", map[string]interface{}{"target": "ACTIVE"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleInvalidTransitionConflict(t *testing.T) {
	router := setupRouter(t)
	data := createContract(t, router)
	contractID := data["id"].(string)

	rec := doJSON(t, router, http.MethodPost, "/contracts/"+contractID+"/transition", map[string]interface{}{"target": "ACTIVE"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	errObj := response["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_TRANSITION", errObj["code"])
	details := errObj["details"].(map[string]interface{})
	assert.Equal(t, "CREATED", details["from"])
	assert.Equal(t, "ACTIVE", details["to"])
}

func TestHandleGetNotFound(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/contracts/CTR-MISSING", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
