package risk

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/utils"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Service computes risk assessments and maintains per-user profiles.
type Service struct {
	repo         RepositoryInterface
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new risk service.
func NewService(repo RepositoryInterface, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "risk").Logger(),
	}
}

// Assess scores the given inputs and stores the result. First
// assessment creates the profile; subsequent assessments update the
// current state and append to history.
func (s *Service) Assess(userID string, inputs riskmath.Inputs) (*Profile, error) {
	existing, err := s.repo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	score := riskmath.Score(inputs)
	pod := riskmath.ProbabilityOfDefault(score)
	lower, upper := riskmath.ConfidenceBand(score, riskmath.DefaultBandVolatility)
	now := time.Now().UTC().Truncate(time.Second)

	profile := &Profile{
		UserID:               userID,
		RiskScore:            score,
		ProbabilityOfDefault: pod,
		ConfidenceBand:       [2]int{lower, upper},
		Tier:                 riskmath.TierForScore(score),
		Inputs:               inputs,
		LastCalculated:       now,
	}
	if existing != nil {
		profile.ID = existing.ID
	} else {
		profile.ID = utils.GenerateID("RISK")
	}

	entry := ScoreEntry{RecordedAt: now, Score: score, ProbabilityOfDefault: pod}
	if err := s.repo.SaveAssessment(profile, entry); err != nil {
		return nil, err
	}
	if existing != nil {
		profile.History = append(existing.History, entry)
	} else {
		profile.History = []ScoreEntry{entry}
	}

	s.eventManager.EmitTyped(events.RiskAssessed, "risk", &events.RiskAssessedData{
		UserID:               userID,
		Score:                score,
		Tier:                 string(profile.Tier),
		ProbabilityOfDefault: pod,
	})

	s.log.Info().
		Str("user_id", userID).
		Int("score", score).
		Str("tier", string(profile.Tier)).
		Msg("Risk assessment stored")

	return profile, nil
}

// GetProfile returns a user's profile with history, or an error when
// the user has never been assessed.
func (s *Service) GetProfile(userID string) (*Profile, error) {
	profile, err := s.repo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("no risk profile for user %s", userID)
	}
	return profile, nil
}

// ListProfiles returns the current state of every assessed user.
func (s *Service) ListProfiles() ([]*Profile, error) {
	return s.repo.List()
}

// Eligible reports whether a user's current score clears the
// origination floor. Never-assessed users are not eligible.
func (s *Service) Eligible(userID string) (bool, error) {
	profile, err := s.repo.GetByUserID(userID)
	if err != nil {
		return false, err
	}
	if profile == nil {
		return false, nil
	}
	return riskmath.Eligible(profile.RiskScore, riskmath.DefaultMinEligibleScore), nil
}

// EngineMetadata describes the scoring model: weights, tier cutoffs
// and eligibility floor. Served by the module's index endpoint.
func (s *Service) EngineMetadata() map[string]interface{} {
	tiers := make([]map[string]interface{}, 0, len(riskmath.AllTiers))
	for _, t := range riskmath.AllTiers {
		tiers = append(tiers, map[string]interface{}{
			"tier":  t,
			"label": t.Label(),
		})
	}
	return map[string]interface{}{
		"engine":  EngineName,
		"version": EngineVersion,
		"weights": map[string]float64{
			"incomeStability":   riskmath.WeightIncomeStability,
			"repaymentHistory":  riskmath.WeightRepaymentHistory,
			"sectorCoefficient": riskmath.WeightSectorCoefficient,
			"liquidityBuffer":   riskmath.WeightLiquidityBuffer,
		},
		"tiers":            tiers,
		"minEligibleScore": riskmath.DefaultMinEligibleScore,
	}
}
