// Package income implements revenue stream tracking and analytics.
package income

import "time"

// SourceType classifies where a revenue stream comes from.
type SourceType string

// Income source types.
const (
	TypeSalary     SourceType = "salary"
	TypeFreelance  SourceType = "freelance"
	TypeBusiness   SourceType = "business"
	TypeInvestment SourceType = "investment"
	TypeRental     SourceType = "rental"
	TypeOther      SourceType = "other"
)

// Frequency is the declared deposit cadence of a source.
type Frequency string

// Deposit frequencies.
const (
	FreqWeekly    Frequency = "weekly"
	FreqBiWeekly  Frequency = "bi-weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqAnnually  Frequency = "annually"
)

var validTypes = map[SourceType]bool{
	TypeSalary: true, TypeFreelance: true, TypeBusiness: true,
	TypeInvestment: true, TypeRental: true, TypeOther: true,
}

var validFrequencies = map[Frequency]bool{
	FreqWeekly: true, FreqBiWeekly: true, FreqMonthly: true,
	FreqQuarterly: true, FreqAnnually: true,
}

// ValidType reports whether t is a known source type.
func ValidType(t SourceType) bool { return validTypes[t] }

// ValidFrequency reports whether f is a known frequency.
func ValidFrequency(f Frequency) bool { return validFrequencies[f] }

// MonthlyEarning is one entry in a source's ordered earnings series.
type MonthlyEarning struct {
	Month    string  `json:"month"`
	Amount   float64 `json:"amount"`
	Verified bool    `json:"verified"`
}

// Source is a revenue stream with its append-only earnings history.
// Volatility and StabilityIndex are derived from the earnings series
// and recomputed whenever an earning is appended.
type Source struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"userId"`
	Type               SourceType       `json:"type"`
	Name               string           `json:"name"`
	Amount             float64          `json:"amount"`
	Frequency          Frequency        `json:"frequency"`
	Volatility         float64          `json:"volatility"`
	StabilityIndex     int              `json:"stabilityIndex"`
	HistoricalEarnings []MonthlyEarning `json:"historicalEarnings"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// Analytics summarizes a user's income picture across all sources.
type Analytics struct {
	TotalVerifiedIncome float64 `json:"totalVerifiedIncome"`
	AverageMonthly      float64 `json:"averageMonthly"`
	Variance            float64 `json:"variance"`
	StabilityIndex      int     `json:"stabilityIndex"`
	DepositFrequency    string  `json:"depositFrequency"`
	SourceVariation     float64 `json:"sourceVariation"`
	YTDTotal            float64 `json:"ytdTotal"`
}
