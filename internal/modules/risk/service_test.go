package risk

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

func setupService(t *testing.T) (*Service, *events.Bus) {
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
	bus := events.NewBus(log)
	manager := events.NewManager(bus, log)
	repo := NewRepository(db.Conn(), log)
	return NewService(repo, manager, log), bus
}

func TestAssessCreatesProfile(t *testing.T) {
	service, _ := setupService(t)

	profile, err := service.Assess("user-1", riskmath.Inputs{
		IncomeStability:   78,
		RepaymentHistory:  85,
		SectorCoefficient: 1.1,
		LiquidityBuffer:   62,
	})
	require.NoError(t, err)

	assert.Equal(t, 74, profile.RiskScore)
	assert.Equal(t, riskmath.TierA, profile.Tier)
	assert.Equal(t, "Upper Medium", profile.TierLabel())
	assert.InDelta(t, 0.0384, profile.ProbabilityOfDefault, 0.0001)
	assert.Equal(t, [2]int{70, 78}, profile.ConfidenceBand)
	assert.Len(t, profile.History, 1)
	assert.NotEmpty(t, profile.ID)
}

func TestReassessAppendsHistory(t *testing.T) {
	service, _ := setupService(t)

	first, err := service.Assess("user-2", riskmath.Inputs{
		IncomeStability:   50,
		RepaymentHistory:  50,
		SectorCoefficient: 1.0,
		LiquidityBuffer:   50,
	})
	require.NoError(t, err)

	second, err := service.Assess("user-2", riskmath.Inputs{
		IncomeStability:   90,
		RepaymentHistory:  95,
		SectorCoefficient: 1.2,
		LiquidityBuffer:   80,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-assessment keeps the profile identity")
	assert.Greater(t, second.RiskScore, first.RiskScore)

	stored, err := service.GetProfile("user-2")
	require.NoError(t, err)
	require.Len(t, stored.History, 2)
	assert.Equal(t, first.RiskScore, stored.History[0].Score)
	assert.Equal(t, second.RiskScore, stored.History[1].Score)
	assert.Equal(t, second.RiskScore, stored.RiskScore)
}

func TestAssessEmitsEvent(t *testing.T) {
	service, bus := setupService(t)

	var received []*events.Event
	bus.Subscribe(events.RiskAssessed, func(event *events.Event) {
		received = append(received, event)
	})

	_, err := service.Assess("user-3", riskmath.Inputs{
		IncomeStability:   78,
		RepaymentHistory:  85,
		SectorCoefficient: 1.1,
		LiquidityBuffer:   62,
	})
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, "user-3", received[0].Data["user_id"])
	assert.Equal(t, float64(74), received[0].Data["score"])
	assert.Equal(t, "A", received[0].Data["tier"])
}

func TestGetProfileUnknownUser(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.GetProfile("nobody")
	assert.Error(t, err)
}

func TestEligible(t *testing.T) {
	service, _ := setupService(t)

	eligible, err := service.Eligible("never-assessed")
	require.NoError(t, err)
	assert.False(t, eligible)

	_, err = service.Assess("user-4", riskmath.Inputs{
		IncomeStability:   10,
		RepaymentHistory:  10,
		SectorCoefficient: 0.5,
		LiquidityBuffer:   10,
	})
	require.NoError(t, err)

	eligible, err = service.Eligible("user-4")
	require.NoError(t, err)
	assert.False(t, eligible, "score below the floor is not eligible")

	_, err = service.Assess("user-5", riskmath.Inputs{
		IncomeStability:   80,
		RepaymentHistory:  80,
		SectorCoefficient: 1.0,
		LiquidityBuffer:   80,
	})
	require.NoError(t, err)

	eligible, err = service.Eligible("user-5")
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestListProfiles(t *testing.T) {
	service, _ := setupService(t)

	for _, userID := range []string{"a", "b", "c"} {
		_, err := service.Assess(userID, riskmath.Inputs{
			IncomeStability:   60,
			RepaymentHistory:  60,
			SectorCoefficient: 1.0,
			LiquidityBuffer:   60,
		})
		require.NoError(t, err)
	}

	profiles, err := service.ListProfiles()
	require.NoError(t, err)
	assert.Len(t, profiles, 3)
}

func TestEngineMetadata(t *testing.T) {
	service, _ := setupService(t)

	meta := service.EngineMetadata()
	assert.Equal(t, EngineName, meta["engine"])

	weights := meta["weights"].(map[string]float64)
	sum := weights["incomeStability"] + weights["repaymentHistory"] +
		weights["sectorCoefficient"] + weights["liquidityBuffer"]
	assert.InDelta(t, 1.0, sum, 1e-9)
}
