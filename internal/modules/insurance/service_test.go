package insurance

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/internal/events"
)

func setupService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()

	dir := t.TempDir()
	protocol, err := database.New(database.Config{
		Path:    filepath.Join(dir, "protocol.db"),
		Profile: database.ProfileStandard,
		Name:    "protocol",
	})
	require.NoError(t, err)
	require.NoError(t, protocol.Migrate())
	t.Cleanup(func() { _ = protocol.Close() })

	ledger, err := database.New(database.Config{
		Path:    filepath.Join(dir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	require.NoError(t, ledger.Migrate())
	t.Cleanup(func() { _ = ledger.Close() })

	log := zerolog.Nop()
	bus := events.NewBus(log)
	manager := events.NewManager(bus, log)
	repo := NewRepository(protocol.Conn(), ledger.Conn(), log)
	return NewService(repo, manager, log), bus
}

func TestCreateVault(t *testing.T) {
	service, _ := setupService(t)

	vault, err := service.CreateVault("", "POOL-1", 50000, 0.15)
	require.NoError(t, err)
	assert.Equal(t, VaultActive, vault.Status)
	assert.Equal(t, 0.0, vault.ClaimsPaid)
	assert.Regexp(t, `^INS-`, vault.ID)
}

func TestProcessClaimWithinReserve(t *testing.T) {
	service, _ := setupService(t)

	vault, err := service.CreateVault("INS-T1", "POOL-1", 1000, 0.15)
	require.NoError(t, err)

	updated, result, err := service.ProcessClaim(vault.ID, 400)
	require.NoError(t, err)

	assert.Equal(t, 600.0, updated.TotalReserve)
	assert.Equal(t, 400.0, updated.ClaimsPaid)
	assert.Equal(t, VaultActive, updated.Status)
	assert.Equal(t, 400.0, result.Covered)
	assert.Equal(t, 0.0, result.Shortfall)
	assert.False(t, result.Depleted)
}

func TestProcessClaimOverflowDepletesVault(t *testing.T) {
	service, bus := setupService(t)

	var processed []*events.Event
	bus.Subscribe(events.InsuranceClaimProcessed, func(event *events.Event) {
		processed = append(processed, event)
	})

	vault, err := service.CreateVault("INS-T2", "POOL-1", 1000, 0.15)
	require.NoError(t, err)

	// Claim of reserve+1 pays out only the prior reserve.
	updated, result, err := service.ProcessClaim(vault.ID, 1001)
	require.NoError(t, err)

	assert.Equal(t, 0.0, updated.TotalReserve)
	assert.Equal(t, 1000.0, updated.ClaimsPaid, "claims paid grows by the prior reserve, not the claim")
	assert.Equal(t, VaultDepleted, updated.Status)

	assert.Equal(t, 1000.0, result.Covered)
	assert.Equal(t, 1.0, result.Shortfall)
	assert.True(t, result.Depleted)

	require.Len(t, processed, 1)
	assert.Equal(t, float64(1), processed[0].Data["shortfall"])
	assert.Equal(t, true, processed[0].Data["depleted"])
}

func TestProcessClaimSpecExample(t *testing.T) {
	service, _ := setupService(t)

	vault, err := service.CreateVault("INS-T3", "POOL-1", 1000, 0.2)
	require.NoError(t, err)

	_, _, err = service.ProcessClaim(vault.ID, 300)
	require.NoError(t, err)

	updated, result, err := service.ProcessClaim(vault.ID, 1500)
	require.NoError(t, err)

	// Prior reserve was 700; claims paid accumulates 300 + 700.
	assert.Equal(t, 0.0, updated.TotalReserve)
	assert.Equal(t, 1000.0, updated.ClaimsPaid)
	assert.Equal(t, VaultDepleted, updated.Status)
	assert.Equal(t, 700.0, result.Covered)
	assert.Equal(t, 800.0, result.Shortfall)
}

func TestClaimHistoryPersisted(t *testing.T) {
	service, _ := setupService(t)

	vault, err := service.CreateVault("INS-T4", "POOL-1", 1000, 0.2)
	require.NoError(t, err)

	_, _, err = service.ProcessClaim(vault.ID, 250)
	require.NoError(t, err)
	_, _, err = service.ProcessClaim(vault.ID, 100)
	require.NoError(t, err)

	claims, err := service.ListClaims(vault.ID)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, 250.0, claims[0].Amount)
	assert.Equal(t, 100.0, claims[1].Amount)
}

func TestVaultHealth(t *testing.T) {
	service, _ := setupService(t)

	vault, err := service.CreateVault("INS-T5", "POOL-1", 1000, 0.15)
	require.NoError(t, err)

	_, healthy, err := service.VaultHealth(vault.ID, DefaultRequiredCoverageRatio)
	require.NoError(t, err)
	assert.True(t, healthy)

	// Below the required ratio.
	low, err := service.CreateVault("INS-T6", "POOL-1", 1000, 0.05)
	require.NoError(t, err)
	_, healthy, err = service.VaultHealth(low.ID, DefaultRequiredCoverageRatio)
	require.NoError(t, err)
	assert.False(t, healthy)

	// Depleted vaults are never healthy, whatever the ratio.
	_, _, err = service.ProcessClaim(vault.ID, 5000)
	require.NoError(t, err)
	_, healthy, err = service.VaultHealth(vault.ID, DefaultRequiredCoverageRatio)
	require.NoError(t, err)
	assert.False(t, healthy)
}
