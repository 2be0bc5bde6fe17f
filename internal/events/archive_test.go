package events

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupCacheDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE event_log (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			module TEXT NOT NULL,
			payload BLOB,
			created_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func TestArchive_StoreAndRecent(t *testing.T) {
	db := setupCacheDB(t)
	archive := NewArchive(db, zerolog.Nop())
	bus := NewBus(zerolog.Nop())
	archive.Attach(bus)

	bus.Emit(ContractCreated, "contracts", map[string]interface{}{"contract_id": "CTR-1"})
	bus.Emit(CapitalAllocated, "capital", map[string]interface{}{"pool_id": "pool-1"})

	all, err := archive.Recent("", 100)
	require.NoError(t, err)
	require.Len(t, all, 2)

	onlyCapital, err := archive.Recent(CapitalAllocated, 100)
	require.NoError(t, err)
	require.Len(t, onlyCapital, 1)
	assert.Equal(t, CapitalAllocated, onlyCapital[0].Type)
	assert.Equal(t, "pool-1", onlyCapital[0].Data["pool_id"])
}

func TestArchive_PayloadRoundTrip(t *testing.T) {
	db := setupCacheDB(t)
	archive := NewArchive(db, zerolog.Nop())

	event := &Event{
		ID:        "EVT-TEST1",
		Type:      InsuranceClaimProcessed,
		Module:    "insurance",
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"vault_id":  "INS-1",
			"shortfall": 500.0,
			"depleted":  true,
		},
	}
	require.NoError(t, archive.Store(event))

	got, err := archive.Recent(InsuranceClaimProcessed, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "INS-1", got[0].Data["vault_id"])
	assert.Equal(t, 500.0, got[0].Data["shortfall"])
	assert.Equal(t, true, got[0].Data["depleted"])
}

func TestArchive_RecentLimitAndOrder(t *testing.T) {
	db := setupCacheDB(t)
	archive := NewArchive(db, zerolog.Nop())

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, archive.Store(&Event{
			ID:        "EVT-" + string(rune('A'+i)),
			Type:      RiskAssessed,
			Module:    "risk",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := archive.Recent("", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Newest first
	assert.Equal(t, "EVT-E", got[0].ID)
	assert.Equal(t, "EVT-D", got[1].ID)
}

func TestArchive_Prune(t *testing.T) {
	db := setupCacheDB(t)
	archive := NewArchive(db, zerolog.Nop())

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, archive.Store(&Event{ID: "EVT-OLD", Type: RiskAssessed, Module: "risk", Timestamp: old}))
	require.NoError(t, archive.Store(&Event{ID: "EVT-NEW", Type: RiskAssessed, Module: "risk", Timestamp: time.Now().UTC()}))

	pruned, err := archive.Prune(time.Now().UTC().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	remaining, err := archive.Recent("", 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "EVT-NEW", remaining[0].ID)
}
