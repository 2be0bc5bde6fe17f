package contracts

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/utils"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Service manages the contract lifecycle.
type Service struct {
	repo         RepositoryInterface
	eventManager *events.Manager
	log          zerolog.Logger

	// Serializes funding and transitions: the funded-amount check and
	// the CREATED->FUNDED auto-transition must not interleave.
	mu sync.Mutex
}

// NewService creates a new contracts service.
func NewService(repo RepositoryInterface, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "contracts").Logger(),
	}
}

// CreateParams are the inputs to contract origination.
type CreateParams struct {
	BorrowerID   string
	Principal    float64
	InterestRate float64
	Term         int
	RiskTier     riskmath.Tier
	RiskScore    int
}

// Create originates a contract in CREATED state with an amortized
// payment and an eagerly generated repayment schedule.
func (s *Service) Create(params CreateParams) (*Contract, error) {
	now := time.Now().UTC().Truncate(time.Second)
	payment := MonthlyPayment(params.Principal, params.InterestRate, params.Term)

	contract := &Contract{
		ID:                utils.GenerateID("CTR"),
		BorrowerID:        params.BorrowerID,
		NFTID:             utils.GenerateNFTID(),
		Principal:         params.Principal,
		InterestRate:      params.InterestRate,
		Term:              params.Term,
		MonthlyPayment:    payment,
		Status:            StatusCreated,
		RiskTier:          params.RiskTier,
		RiskScore:         params.RiskScore,
		FundedAmount:      0,
		RepaymentSchedule: GenerateSchedule(now, payment, params.Term),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(contract); err != nil {
		return nil, err
	}

	s.eventManager.EmitTyped(events.ContractCreated, "contracts", &events.ContractCreatedData{
		ContractID: contract.ID,
		BorrowerID: contract.BorrowerID,
		Principal:  contract.Principal,
		RiskTier:   string(contract.RiskTier),
	})

	s.log.Info().
		Str("contract_id", contract.ID).
		Str("borrower_id", contract.BorrowerID).
		Float64("principal", contract.Principal).
		Int("term", contract.Term).
		Msg("Contract created")

	return contract, nil
}

// Get returns a contract with its schedule.
func (s *Service) Get(id string) (*Contract, error) {
	contract, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("no contract %s", id)
	}
	return contract, nil
}

// List returns contracts, optionally filtered by status.
func (s *Service) List(status Status) ([]*Contract, error) {
	return s.repo.List(status)
}

// Fund adds to a contract's funded amount. Funding is additive across
// calls; when the total reaches the principal the contract
// auto-transitions CREATED->FUNDED as part of the same operation.
func (s *Service) Fund(id string, amount float64) (*Contract, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("funding amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contract, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("no contract %s", id)
	}
	if contract.Status != StatusCreated {
		return nil, &ErrInvalidTransition{From: contract.Status, To: StatusFunded}
	}

	contract.FundedAmount += amount
	contract.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	previous := contract.Status
	if contract.FundedAmount >= contract.Principal {
		contract.Status = StatusFunded
	}

	if err := s.repo.UpdateFunding(id, contract.FundedAmount, contract.Status, contract.UpdatedAt); err != nil {
		return nil, err
	}

	if contract.Status != previous {
		s.eventManager.EmitTyped(events.ContractFunded, "contracts", &events.ContractFundedData{
			ContractID:   contract.ID,
			FundedAmount: contract.FundedAmount,
			Principal:    contract.Principal,
		})
		s.eventManager.EmitTyped(events.ContractStatusChanged, "contracts", &events.ContractStatusChangedData{
			ContractID: contract.ID,
			From:       string(previous),
			To:         string(contract.Status),
		})
	}

	s.log.Info().
		Str("contract_id", id).
		Float64("amount", amount).
		Float64("funded_amount", contract.FundedAmount).
		Str("status", string(contract.Status)).
		Msg("Contract funded")

	return contract, nil
}

// Transition moves a contract along the lifecycle graph. Edges outside
// the transition table are rejected with ErrInvalidTransition.
func (s *Service) Transition(id string, target Status) (*Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contract, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("no contract %s", id)
	}

	if !CanTransition(contract.Status, target) {
		return nil, &ErrInvalidTransition{From: contract.Status, To: target}
	}

	previous := contract.Status
	contract.Status = target
	contract.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	if err := s.repo.UpdateStatus(id, target, contract.UpdatedAt); err != nil {
		return nil, err
	}

	s.eventManager.EmitTyped(events.ContractStatusChanged, "contracts", &events.ContractStatusChangedData{
		ContractID: contract.ID,
		From:       string(previous),
		To:         string(target),
	})
	if target == StatusDefaulted {
		s.eventManager.EmitTyped(events.DefaultTriggered, "contracts", &events.DefaultTriggeredData{
			ContractID: contract.ID,
			BorrowerID: contract.BorrowerID,
		})
	}

	s.log.Info().
		Str("contract_id", id).
		Str("from", string(previous)).
		Str("to", string(target)).
		Msg("Contract transitioned")

	return contract, nil
}

// RecordRepayment marks one schedule entry as paid and emits a
// RepaymentReceived event.
func (s *Service) RecordRepayment(contractID string, seq int) (*Contract, error) {
	contract, err := s.repo.Get(contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("no contract %s", contractID)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.repo.MarkRepayment(contractID, seq, RepaymentPaid, &now); err != nil {
		return nil, err
	}

	var amount float64
	for _, entry := range contract.RepaymentSchedule {
		if entry.Seq == seq {
			amount = entry.Amount
			break
		}
	}

	s.eventManager.EmitTyped(events.RepaymentReceived, "contracts", &events.RepaymentReceivedData{
		ContractID: contractID,
		Seq:        seq,
		Amount:     amount,
	})

	return s.repo.Get(contractID)
}

// SweepOverdue marks every pending schedule entry past its due date as
// late and emits a RepaymentOverdue event per entry. Returns the number
// of entries swept. Run by the scheduler.
func (s *Service) SweepOverdue(asOf time.Time) (int, error) {
	entries, err := s.repo.OverduePending(asOf)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if err := s.repo.MarkLate(entry.ContractID, entry.Seq); err != nil {
			return 0, err
		}
		s.eventManager.EmitTyped(events.RepaymentOverdue, "contracts", &events.RepaymentOverdueData{
			ContractID: entry.ContractID,
			Seq:        entry.Seq,
			DueDate:    entry.DueDate.Format(time.RFC3339),
		})
	}

	if len(entries) > 0 {
		s.log.Info().Int("count", len(entries)).Msg("Overdue repayments swept")
	}
	return len(entries), nil
}

// StatusCounts returns the number of contracts in each lifecycle state.
func (s *Service) StatusCounts() (map[Status]int, error) {
	return s.repo.CountByStatus()
}
