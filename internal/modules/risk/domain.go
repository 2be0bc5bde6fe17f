// Package risk implements risk profile assessment and persistence.
package risk

import (
	"time"

	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// EngineName and EngineVersion identify the scoring model exposed by
// the metadata endpoint.
const (
	EngineName    = "QNT-RISK-V2"
	EngineVersion = "2.0.4"
)

// ScoreEntry is one point in a profile's append-only score history.
type ScoreEntry struct {
	RecordedAt           time.Time `json:"date"`
	Score                int       `json:"score"`
	ProbabilityOfDefault float64   `json:"probabilityOfDefault"`
}

// Profile is the current risk assessment of a subject plus the history
// of every past assessment. History is append-only: re-assessment adds
// an entry and never rewrites previous ones.
type Profile struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"userId"`
	RiskScore            int             `json:"riskScore"`
	ProbabilityOfDefault float64         `json:"probabilityOfDefault"`
	ConfidenceBand       [2]int          `json:"confidenceBand"`
	Tier                 riskmath.Tier   `json:"tier"`
	Inputs               riskmath.Inputs `json:"inputs"`
	LastCalculated       time.Time       `json:"lastCalculated"`
	History              []ScoreEntry    `json:"history"`
}

// TierLabel returns the human-readable label of the profile's tier.
func (p *Profile) TierLabel() string {
	return p.Tier.Label()
}
