package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedPool describes one capital pool to create at startup.
type SeedPool struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Capital     float64  `yaml:"capital"`
	TargetYield float64  `yaml:"target_yield"`
	TierFilter  []string `yaml:"tier_filter"`
}

// SeedVault describes one insurance vault to create at startup.
type SeedVault struct {
	ID            string  `yaml:"id"`
	PoolID        string  `yaml:"pool_id"`
	Reserve       float64 `yaml:"reserve"`
	CoverageRatio float64 `yaml:"coverage_ratio"`
}

// Seed is the startup seed: pools and their insurance vaults.
// Seeding is idempotent - entries that already exist are left alone.
type Seed struct {
	Pools  []SeedPool  `yaml:"pools"`
	Vaults []SeedVault `yaml:"vaults"`
}

// LoadSeed reads the pool/vault seed from a YAML file.
// A missing path (or a path pointing at no file) yields an empty seed,
// not an error: seeding is optional.
func LoadSeed(path string) (*Seed, error) {
	seed := &Seed{}
	if path == "" {
		return seed, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return seed, nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	// Basic shape validation: a vault must reference a declared pool
	poolIDs := make(map[string]bool, len(seed.Pools))
	for _, p := range seed.Pools {
		if p.ID == "" {
			return nil, fmt.Errorf("seed pool missing id")
		}
		if p.Capital < 0 {
			return nil, fmt.Errorf("seed pool %s has negative capital", p.ID)
		}
		poolIDs[p.ID] = true
	}
	for _, v := range seed.Vaults {
		if !poolIDs[v.PoolID] {
			return nil, fmt.Errorf("seed vault %s references unknown pool %s", v.ID, v.PoolID)
		}
	}

	return seed, nil
}
