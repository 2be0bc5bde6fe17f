package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSeed_MissingFileIsEmptySeed(t *testing.T) {
	seed, err := LoadSeed("")
	require.NoError(t, err)
	assert.Empty(t, seed.Pools)

	seed, err = LoadSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, seed.Pools)
}

func TestLoadSeed_ParsesPoolsAndVaults(t *testing.T) {
	path := writeSeedFile(t, `
pools:
  - id: pool-001
    name: "Yield Gen A - Prime"
    capital: 2100000000
    target_yield: 12.4
    tier_filter: [AAA, AA]
  - id: pool-002
    name: "Yield Gen B - Growth"
    capital: 800000000
    target_yield: 4.1
    tier_filter: [A, BBB]
vaults:
  - id: vault-001
    pool_id: pool-001
    reserve: 50000000
    coverage_ratio: 0.12
`)

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Pools, 2)
	require.Len(t, seed.Vaults, 1)

	assert.Equal(t, "pool-001", seed.Pools[0].ID)
	assert.Equal(t, 2100000000.0, seed.Pools[0].Capital)
	assert.Equal(t, []string{"AAA", "AA"}, seed.Pools[0].TierFilter)
	assert.Equal(t, "pool-001", seed.Vaults[0].PoolID)
	assert.Equal(t, 0.12, seed.Vaults[0].CoverageRatio)
}

func TestLoadSeed_VaultMustReferenceDeclaredPool(t *testing.T) {
	path := writeSeedFile(t, `
pools:
  - id: pool-001
    name: Prime
    capital: 1000
vaults:
  - id: vault-001
    pool_id: pool-999
    reserve: 100
    coverage_ratio: 0.1
`)

	_, err := LoadSeed(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pool")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QUANTARA_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "")
	t.Setenv("BACKUP_BUCKET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Nil(t, cfg.Backup)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, filepath.Join(cfg.DataDir, "ledger.db"), cfg.DatabasePath("ledger"))
}

func TestLoad_BackupEnabledWhenBucketSet(t *testing.T) {
	t.Setenv("QUANTARA_DATA_DIR", t.TempDir())
	t.Setenv("BACKUP_BUCKET", "quantara-backups")
	t.Setenv("BACKUP_RETENTION_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Backup)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, "quantara-backups", cfg.Backup.Bucket)
	assert.Equal(t, 7, cfg.Backup.RetentionDays)
}
