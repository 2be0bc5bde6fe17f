// Package compliance implements regulatory flags and automated checks.
package compliance

import "time"

// FlagType classifies what a flag is about.
type FlagType string

// Flag types.
const (
	TypeFraudAlert     FlagType = "fraud_alert"
	TypeKYCIssue       FlagType = "kyc_issue"
	TypeVolatilityFlag FlagType = "volatility_flag"
	TypeRateLimit      FlagType = "rate_limit"
	TypeBlacklist      FlagType = "blacklist"
)

// Severity grades how urgent a flag is.
type Severity string

// Flag severities.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FlagStatus is the review state of a flag.
type FlagStatus string

// Flag states.
const (
	FlagOpen          FlagStatus = "open"
	FlagInvestigating FlagStatus = "investigating"
	FlagResolved      FlagStatus = "resolved"
	FlagDismissed     FlagStatus = "dismissed"
)

var validTypes = map[FlagType]bool{
	TypeFraudAlert: true, TypeKYCIssue: true, TypeVolatilityFlag: true,
	TypeRateLimit: true, TypeBlacklist: true,
}

var validSeverities = map[Severity]bool{
	SeverityLow: true, SeverityMedium: true, SeverityHigh: true, SeverityCritical: true,
}

// ValidType reports whether t is a known flag type.
func ValidType(t FlagType) bool { return validTypes[t] }

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s Severity) bool { return validSeverities[s] }

// Automated check thresholds. Fixed, not configurable per call.
const (
	VelocityThresholdPerMin   = 100
	LargeTransactionThreshold = 1_000_000
)

// Flag is a compliance finding. Immutable once created except for the
// status and the resolution timestamp.
type Flag struct {
	ID          string     `json:"id"`
	ContractID  string     `json:"contractId,omitempty"`
	UserID      string     `json:"userId,omitempty"`
	Type        FlagType   `json:"type"`
	Severity    Severity   `json:"severity"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      FlagStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}
