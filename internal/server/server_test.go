package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xconmax245/Quantara/internal/config"
	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/modules/capital"
	"github.com/Xconmax245/Quantara/internal/modules/compliance"
	"github.com/Xconmax245/Quantara/internal/modules/contracts"
	"github.com/Xconmax245/Quantara/internal/modules/income"
	"github.com/Xconmax245/Quantara/internal/modules/insurance"
	"github.com/Xconmax245/Quantara/internal/modules/risk"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

type testStack struct {
	server    *Server
	contracts *contracts.Service
	capital   *capital.Service
	insurance *insurance.Service
}

func setupServer(t *testing.T) *testStack {
	t.Helper()

	dir := t.TempDir()
	log := zerolog.Nop()

	openDB := func(name string, profile database.DatabaseProfile) *database.DB {
		db, err := database.New(database.Config{
			Path:    filepath.Join(dir, name+".db"),
			Profile: profile,
			Name:    name,
		})
		require.NoError(t, err)
		require.NoError(t, db.Migrate())
		t.Cleanup(func() { _ = db.Close() })
		return db
	}

	protocolDB := openDB("protocol", database.ProfileStandard)
	ledgerDB := openDB("ledger", database.ProfileLedger)
	cacheDB := openDB("cache", database.ProfileCache)

	bus := events.NewBus(log)
	manager := events.NewManager(bus, log)
	archive := events.NewArchive(cacheDB.Conn(), log)
	archive.Attach(bus)

	riskService := risk.NewService(risk.NewRepository(protocolDB.Conn(), log), manager, log)
	incomeService := income.NewService(income.NewRepository(protocolDB.Conn(), log), log)
	contractService := contracts.NewService(contracts.NewRepository(ledgerDB.Conn(), log), manager, log)
	capitalService := capital.NewService(capital.NewRepository(protocolDB.Conn(), ledgerDB.Conn(), log), manager, log)
	insuranceService := insurance.NewService(insurance.NewRepository(protocolDB.Conn(), ledgerDB.Conn(), log), manager, log)
	complianceService := compliance.NewService(compliance.NewRepository(protocolDB.Conn(), log), manager, log)

	srv := New(Config{
		Log:               log,
		Cfg:               &config.Config{DataDir: dir, Port: 0, DevMode: true},
		ProtocolDB:        protocolDB,
		LedgerDB:          ledgerDB,
		CacheDB:           cacheDB,
		EventBus:          bus,
		EventArchive:      archive,
		RiskService:       riskService,
		IncomeService:     incomeService,
		ContractService:   contractService,
		CapitalService:    capitalService,
		InsuranceService:  insuranceService,
		ComplianceService: complianceService,
	})

	return &testStack{
		server:    srv,
		contracts: contractService,
		capital:   capitalService,
		insurance: insuranceService,
	}
}

func getJSON(t *testing.T, srv *Server, path string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestHealthEndpoint(t *testing.T) {
	stack := setupServer(t)

	code, body := getJSON(t, stack.server, "/health")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestSystemHealthReportsAllDatabases(t *testing.T) {
	stack := setupServer(t)

	code, body := getJSON(t, stack.server, "/api/system/health")
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, "healthy", body["status"])
	databases := body["databases"].([]interface{})
	require.Len(t, databases, 3)

	names := map[string]bool{}
	for _, entry := range databases {
		db := entry.(map[string]interface{})
		assert.Equal(t, "ok", db["status"])
		names[db["name"].(string)] = true
	}
	assert.True(t, names["protocol"])
	assert.True(t, names["ledger"])
	assert.True(t, names["cache"])
}

func TestMetricsAggregation(t *testing.T) {
	stack := setupServer(t)

	_, err := stack.capital.CreatePool("POOL-A", "Senior", 1000000, 8.0, nil)
	require.NoError(t, err)
	_, _, err = stack.capital.Allocate("POOL-A", "INV-001", 200000)
	require.NoError(t, err)

	_, err = stack.insurance.CreateVault("INS-A", "POOL-A", 50000, 0.1)
	require.NoError(t, err)

	_, err = stack.contracts.Create(contracts.CreateParams{
		BorrowerID: "USR-001", Principal: 10000, InterestRate: 12, Term: 12,
		RiskTier: riskmath.TierA, RiskScore: 74,
	})
	require.NoError(t, err)

	defaulted, err := stack.contracts.Create(contracts.CreateParams{
		BorrowerID: "USR-002", Principal: 5000, InterestRate: 10, Term: 6,
		RiskTier: riskmath.TierB, RiskScore: 55,
	})
	require.NoError(t, err)
	_, err = stack.contracts.Fund(defaulted.ID, 5000)
	require.NoError(t, err)
	_, err = stack.contracts.Transition(defaulted.ID, contracts.StatusActive)
	require.NoError(t, err)
	_, err = stack.contracts.Transition(defaulted.ID, contracts.StatusDefaulted)
	require.NoError(t, err)

	code, body := getJSON(t, stack.server, "/api/metrics")
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, 1050000.0, body["totalValueLocked"])
	assert.Equal(t, "$1,050,000", body["totalValueLockedFormatted"])
	assert.Equal(t, 200000.0, body["deployedCapital"])
	assert.Equal(t, 20.0, body["utilizationPercent"])
	assert.Equal(t, 50000.0, body["insuranceReserves"])
	assert.Equal(t, float64(2), body["totalContracts"])
	assert.Equal(t, float64(0), body["activeContracts"])
	assert.Equal(t, 50.0, body["defaultRatePercent"])

	byStatus := body["contractsByStatus"].(map[string]interface{})
	assert.Equal(t, float64(1), byStatus[string(contracts.StatusCreated)])
	assert.Equal(t, float64(1), byStatus[string(contracts.StatusDefaulted)])

	pools := body["pools"].([]interface{})
	require.Len(t, pools, 1)
	assert.Equal(t, 20.0, pools[0].(map[string]interface{})["utilizationPercent"])
}

func TestEventsLogEndpoint(t *testing.T) {
	stack := setupServer(t)

	_, err := stack.contracts.Create(contracts.CreateParams{
		BorrowerID: "USR-001", Principal: 10000, InterestRate: 12, Term: 12,
		RiskTier: riskmath.TierA, RiskScore: 74,
	})
	require.NoError(t, err)

	code, body := getJSON(t, stack.server, "/api/events")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])

	// Type filter returns matching events only.
	code, body = getJSON(t, stack.server, "/api/events?type=ContractCreated&limit=10")
	require.Equal(t, http.StatusOK, code)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])

	code, _ = getJSON(t, stack.server, "/api/events?type=RepaymentReceived")
	require.Equal(t, http.StatusOK, code)

	code, _ = getJSON(t, stack.server, "/api/events?type=NotAThing")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getJSON(t, stack.server, "/api/events?limit=zero")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestModuleRoutesMounted(t *testing.T) {
	stack := setupServer(t)

	for _, path := range []string{
		"/api/risk",
		"/api/risk/profiles",
		"/api/contracts",
		"/api/capital/pools",
		"/api/insurance/vaults",
		"/api/compliance/flags",
	} {
		code, _ := getJSON(t, stack.server, path)
		assert.Equal(t, http.StatusOK, code, path)
	}
}
