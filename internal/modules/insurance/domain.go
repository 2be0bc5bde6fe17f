// Package insurance implements default-coverage vaults and claims.
package insurance

import "time"

// VaultStatus is the state of an insurance vault.
type VaultStatus string

// Vault states.
const (
	VaultActive    VaultStatus = "active"
	VaultDepleted  VaultStatus = "depleted"
	VaultSuspended VaultStatus = "suspended"
)

// DefaultRequiredCoverageRatio is the coverage floor a vault must hold
// to be considered healthy.
const DefaultRequiredCoverageRatio = 0.1

// Vault backs one capital pool with a claims reserve. The reserve only
// ever decreases as claims are paid; status flips to depleted exactly
// when a claim would drive it negative.
type Vault struct {
	ID            string      `json:"id"`
	PoolID        string      `json:"poolId"`
	TotalReserve  float64     `json:"totalReserve"`
	CoverageRatio float64     `json:"coverageRatio"`
	ClaimsPaid    float64     `json:"claimsPaid"`
	Status        VaultStatus `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// ClaimResult records the outcome of one processed claim. The vault
// itself never carries the uncovered portion of an over-large claim;
// the result is where callers can see what was dropped.
type ClaimResult struct {
	ClaimID   string  `json:"claimId"`
	VaultID   string  `json:"vaultId"`
	Amount    float64 `json:"amount"`
	Covered   float64 `json:"covered"`
	Shortfall float64 `json:"shortfall"`
	Depleted  bool    `json:"depleted"`
}

// ApplyClaim reduces the vault's reserve by the claim amount. A claim
// larger than the reserve pays out only the prior reserve, floors the
// reserve at zero and flips the vault to depleted.
func ApplyClaim(vault *Vault, claimAmount float64) (covered, shortfall float64) {
	if claimAmount > vault.TotalReserve {
		covered = vault.TotalReserve
		shortfall = claimAmount - vault.TotalReserve
		vault.TotalReserve = 0
		vault.ClaimsPaid += covered
		vault.Status = VaultDepleted
		return covered, shortfall
	}

	vault.TotalReserve -= claimAmount
	vault.ClaimsPaid += claimAmount
	return claimAmount, 0
}

// Healthy reports whether the vault holds at least the required
// coverage ratio and is still active.
func Healthy(vault *Vault, requiredRatio float64) bool {
	return vault.CoverageRatio >= requiredRatio && vault.Status == VaultActive
}
