// Package contracts implements the structured contract lifecycle.
package contracts

import (
	"fmt"
	"math"
	"time"

	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Status is a contract lifecycle state.
type Status string

// Lifecycle states. COMPLETED and DEFAULTED are terminal.
const (
	StatusCreated   Status = "CREATED"
	StatusFunded    Status = "FUNDED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusDefaulted Status = "DEFAULTED"
)

// validTransitions is the full transition table. States absent from a
// state's edge list are rejected; terminal states have no edges.
var validTransitions = map[Status][]Status{
	StatusCreated:   {StatusFunded},
	StatusFunded:    {StatusActive},
	StatusActive:    {StatusCompleted, StatusDefaulted},
	StatusCompleted: {},
	StatusDefaulted: {},
}

// ValidStatus reports whether s is a defined lifecycle state.
func ValidStatus(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransition reports whether the edge current→target exists.
func CanTransition(current, target Status) bool {
	for _, allowed := range validTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ErrInvalidTransition reports a rejected lifecycle edge, naming the
// attempted source and target states.
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// RepaymentStatus is the state of one schedule entry.
type RepaymentStatus string

// Repayment entry states.
const (
	RepaymentPending RepaymentStatus = "pending"
	RepaymentPaid    RepaymentStatus = "paid"
	RepaymentLate    RepaymentStatus = "late"
	RepaymentMissed  RepaymentStatus = "missed"
)

// RepaymentEntry is one month of the eagerly generated schedule.
type RepaymentEntry struct {
	Seq     int             `json:"seq"`
	DueDate time.Time       `json:"dueDate"`
	Amount  float64         `json:"amount"`
	Status  RepaymentStatus `json:"status"`
	PaidAt  *time.Time      `json:"paidAt,omitempty"`
}

// Contract is a structured credit instrument. The risk tier and score
// are snapshots taken at creation; funded amount only grows until the
// contract leaves CREATED.
type Contract struct {
	ID                string           `json:"id"`
	BorrowerID        string           `json:"borrowerId"`
	NFTID             string           `json:"nftId"`
	Principal         float64          `json:"principal"`
	InterestRate      float64          `json:"interestRate"`
	Term              int              `json:"term"`
	MonthlyPayment    float64          `json:"monthlyPayment"`
	Status            Status           `json:"status"`
	RiskTier          riskmath.Tier    `json:"riskTier"`
	RiskScore         int              `json:"riskScore"`
	FundedAmount      float64          `json:"fundedAmount"`
	RepaymentSchedule []RepaymentEntry `json:"repaymentSchedule"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// MonthlyPayment computes the amortized payment via the annuity
// formula, rounded to 2 decimals. The formula divides by (1+r)^n - 1,
// so the zero-rate case is guarded and degrades to principal/term.
func MonthlyPayment(principal, annualRate float64, termMonths int) float64 {
	if termMonths <= 0 {
		return 0
	}

	monthlyRate := annualRate / 100 / 12
	if monthlyRate == 0 {
		return math.Round(principal/float64(termMonths)*100) / 100
	}

	factor := math.Pow(1+monthlyRate, float64(termMonths))
	payment := principal * monthlyRate * factor / (factor - 1)
	return math.Round(payment*100) / 100
}

// GenerateSchedule builds the flat repayment schedule: one entry per
// month starting one month after the creation date, all pending.
func GenerateSchedule(createdAt time.Time, monthlyPayment float64, termMonths int) []RepaymentEntry {
	schedule := make([]RepaymentEntry, 0, termMonths)
	for i := 1; i <= termMonths; i++ {
		schedule = append(schedule, RepaymentEntry{
			Seq:     i,
			DueDate: createdAt.AddDate(0, i, 0),
			Amount:  monthlyPayment,
			Status:  RepaymentPending,
		})
	}
	return schedule
}
