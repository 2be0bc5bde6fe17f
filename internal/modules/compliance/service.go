package compliance

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/utils"
)

// Service manages compliance flags and automated threshold checks.
type Service struct {
	repo         RepositoryInterface
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new compliance service.
func NewService(repo RepositoryInterface, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "compliance").Logger(),
	}
}

// CreateFlagParams are the inputs to flag creation.
type CreateFlagParams struct {
	Type        FlagType
	Severity    Severity
	Title       string
	Description string
	ContractID  string
	UserID      string
}

// CreateFlag opens a new flag and emits a ComplianceFlagged event.
func (s *Service) CreateFlag(params CreateFlagParams) (*Flag, error) {
	flag := &Flag{
		ID:          utils.GenerateID("FLG"),
		ContractID:  params.ContractID,
		UserID:      params.UserID,
		Type:        params.Type,
		Severity:    params.Severity,
		Title:       params.Title,
		Description: params.Description,
		Status:      FlagOpen,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := s.repo.Create(flag); err != nil {
		return nil, err
	}

	s.eventManager.EmitTyped(events.ComplianceFlagged, "compliance", &events.ComplianceFlaggedData{
		FlagID:   flag.ID,
		FlagType: string(flag.Type),
		Severity: string(flag.Severity),
	})

	s.log.Info().
		Str("flag_id", flag.ID).
		Str("type", string(flag.Type)).
		Str("severity", string(flag.Severity)).
		Msg("Compliance flag created")

	return flag, nil
}

// GetFlag returns a flag by id.
func (s *Service) GetFlag(id string) (*Flag, error) {
	flag, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, fmt.Errorf("no flag %s", id)
	}
	return flag, nil
}

// ListFlags returns flags, optionally filtered by status.
func (s *Service) ListFlags(status FlagStatus) ([]*Flag, error) {
	return s.repo.List(status)
}

// ResolveFlag marks a flag resolved and stamps the resolution time.
// Resolving an already resolved flag keeps the original timestamp.
func (s *Service) ResolveFlag(id string) (*Flag, error) {
	flag, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, fmt.Errorf("no flag %s", id)
	}
	if flag.Status == FlagResolved {
		return flag, nil
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.repo.UpdateStatus(id, FlagResolved, &now); err != nil {
		return nil, err
	}
	flag.Status = FlagResolved
	flag.ResolvedAt = &now

	s.log.Info().Str("flag_id", id).Msg("Compliance flag resolved")
	return flag, nil
}

// RunAutomatedChecks applies the two fixed threshold rules to a
// transaction: velocity over 100/min and amount over 1,000,000. Both
// can fire for the same event, so the result carries 0, 1 or 2 flags.
func (s *Service) RunAutomatedChecks(amount float64, frequency int) ([]*Flag, error) {
	var flags []*Flag

	if frequency > VelocityThresholdPerMin {
		flag, err := s.CreateFlag(CreateFlagParams{
			Type:     TypeFraudAlert,
			Severity: SeverityCritical,
			Title:    "High-velocity transaction pattern detected",
			Description: fmt.Sprintf("Transaction frequency of %d/min exceeds threshold of %d/min",
				frequency, VelocityThresholdPerMin),
		})
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}

	if amount > LargeTransactionThreshold {
		flag, err := s.CreateFlag(CreateFlagParams{
			Type:     TypeFraudAlert,
			Severity: SeverityHigh,
			Title:    "Large transaction flagged for review",
			Description: fmt.Sprintf("Transaction of $%s requires manual approval",
				humanize.Commaf(amount)),
		})
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}

	return flags, nil
}
