// Package riskmath implements the deterministic Quantara scoring model.
//
// All functions are pure and total over their documented domains:
// out-of-range inputs are clamped, never rejected. Request-boundary
// validation is the responsibility of the HTTP handlers, not this package.
package riskmath

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Tier is a discrete risk-grade bucket derived from a numeric score.
type Tier string

// Risk tiers, best to worst.
const (
	TierAAA Tier = "AAA"
	TierAA  Tier = "AA"
	TierA   Tier = "A"
	TierBBB Tier = "BBB"
	TierBB  Tier = "BB"
	TierB   Tier = "B"
	TierCCC Tier = "CCC"
	TierD   Tier = "D"
)

// AllTiers lists every tier, best to worst.
var AllTiers = []Tier{TierAAA, TierAA, TierA, TierBBB, TierBB, TierB, TierCCC, TierD}

// tierLabels maps each tier to its human-readable label. Total lookup:
// every Tier constant has an entry.
var tierLabels = map[Tier]string{
	TierAAA: "Prime",
	TierAA:  "High Grade",
	TierA:   "Upper Medium",
	TierBBB: "Lower Medium",
	TierBB:  "Speculative",
	TierB:   "Highly Speculative",
	TierCCC: "Substantial Risk",
	TierD:   "Default",
}

// Label returns the human-readable label for the tier.
// Unknown tiers fall through to the D label.
func (t Tier) Label() string {
	if label, ok := tierLabels[t]; ok {
		return label
	}
	return tierLabels[TierD]
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	_, ok := tierLabels[t]
	return ok
}

// Inputs are the four weighted factors of the scoring model.
// Stability, history and buffer live on a 0-100 scale; the sector
// coefficient lives on 0.5-1.5 and is normalized internally.
type Inputs struct {
	IncomeStability   float64 `json:"incomeStability"`
	RepaymentHistory  float64 `json:"repaymentHistory"`
	SectorCoefficient float64 `json:"sectorCoefficient"`
	LiquidityBuffer   float64 `json:"liquidityBuffer"`
}

// Model weights. This is the canonical set; an alternate set
// (0.30/0.25/0.20/0.15) circulated in older product documentation and
// is treated as a documentation error.
const (
	WeightIncomeStability   = 0.35
	WeightRepaymentHistory  = 0.30
	WeightSectorCoefficient = 0.15
	WeightLiquidityBuffer   = 0.20
)

// Logistic transform parameters for probability of default.
const (
	podSteepness = 0.08
	podMidpoint  = 50.0
	podCeiling   = 0.3
)

// DefaultBandVolatility is the confidence band volatility factor used
// when the caller does not supply one.
const DefaultBandVolatility = 0.05

// DefaultMinEligibleScore is the score floor for credit eligibility.
const DefaultMinEligibleScore = 40

// Score computes the weighted risk score on a 0-100 integer scale.
// The sector coefficient is first normalized from [0.5, 1.5] to [0, 100].
func Score(in Inputs) int {
	normalizedSector := ((in.SectorCoefficient - 0.5) / 1.0) * 100

	weighted := in.IncomeStability*WeightIncomeStability +
		in.RepaymentHistory*WeightRepaymentHistory +
		normalizedSector*WeightSectorCoefficient +
		in.LiquidityBuffer*WeightLiquidityBuffer

	return int(math.Round(clamp(weighted, 0, 100)))
}

// ProbabilityOfDefault maps a score to a modeled default likelihood in
// [0, 0.3] via a logistic transform, rounded to 4 decimal places.
// Monotonically non-increasing in score.
func ProbabilityOfDefault(score int) float64 {
	pod := 1 / (1 + math.Exp(podSteepness*(float64(score)-podMidpoint))) * podCeiling
	return math.Round(pod*10000) / 10000
}

// ConfidenceBand returns a linear envelope around the score. The half
// width is score*volatility, so the band scales with the score itself;
// this is not a statistical confidence interval. Both bounds are
// clamped to [0, 100].
func ConfidenceBand(score int, volatility float64) (lower, upper int) {
	halfWidth := float64(score) * volatility
	lower = int(math.Max(0, math.Round(float64(score)-halfWidth)))
	upper = int(math.Min(100, math.Round(float64(score)+halfWidth)))
	return lower, upper
}

// TierForScore buckets a score into a tier via fixed thresholds.
func TierForScore(score int) Tier {
	switch {
	case score >= 90:
		return TierAAA
	case score >= 80:
		return TierAA
	case score >= 70:
		return TierA
	case score >= 60:
		return TierBBB
	case score >= 50:
		return TierBB
	case score >= 40:
		return TierB
	case score >= 25:
		return TierCCC
	default:
		return TierD
	}
}

// StabilityIndex expresses the inverse coefficient of variation of an
// earnings series on a 0-100 scale.
//
// Edge-case policy: fewer than two data points is insufficient data and
// assumed stable (100); a zero mean is treated as maximally unstable (0)
// rather than a division error.
func StabilityIndex(earnings []float64) int {
	if len(earnings) < 2 {
		return 100
	}

	mean := stat.Mean(earnings, nil)
	if mean == 0 {
		return 0
	}

	cv := stat.PopStdDev(earnings, nil) / mean
	return int(math.Round(clamp((1-cv)*100, 0, 100)))
}

// Volatility is the sample standard deviation (n-1 denominator) of the
// series. Returns 0 for fewer than two points.
func Volatility(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// CoverageRatio is income over obligations, rounded to 2 decimals.
// Zero obligations is a defined edge case returning 0.
func CoverageRatio(income, obligations float64) float64 {
	if obligations == 0 {
		return 0
	}
	return round2(income / obligations)
}

// DTI is the debt-to-income ratio as a percentage, rounded to 2
// decimals. Zero income means fully encumbered and returns 100.
func DTI(totalDebt, totalIncome float64) float64 {
	if totalIncome == 0 {
		return 100
	}
	return round2(totalDebt / totalIncome * 100)
}

// Eligible reports whether a score clears the given floor.
func Eligible(score, minScore int) bool {
	return score >= minScore
}

// RecommendedLimit derives a credit limit from score and income.
// The multiplier runs linearly from 0.1 (score 0) to 0.6 (score 100).
func RecommendedLimit(score int, income float64) float64 {
	multiplier := float64(score)/100*0.5 + 0.1
	return math.Round(income * multiplier)
}

func clamp(value, min, max float64) float64 {
	return math.Min(math.Max(value, min), max)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
