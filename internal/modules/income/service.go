package income

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/utils"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Service manages income sources and derives income analytics.
type Service struct {
	repo RepositoryInterface
	log  zerolog.Logger
}

// NewService creates a new income service.
func NewService(repo RepositoryInterface, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "income").Logger(),
	}
}

// AddSource registers a new revenue stream. A fresh source has no
// earnings yet, zero volatility and a full stability index.
func (s *Service) AddSource(userID string, sourceType SourceType, name string, amount float64, frequency Frequency) (*Source, error) {
	source := &Source{
		ID:             utils.GenerateID("INC"),
		UserID:         userID,
		Type:           sourceType,
		Name:           name,
		Amount:         amount,
		Frequency:      frequency,
		Volatility:     0,
		StabilityIndex: 100,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	if err := s.repo.CreateSource(source); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("source_id", source.ID).
		Str("user_id", userID).
		Str("type", string(sourceType)).
		Msg("Income source added")

	return source, nil
}

// AddEarning appends one earning to a source's series and recomputes
// the source's volatility and stability index over the whole series.
func (s *Service) AddEarning(sourceID, month string, amount float64, verified bool) (*Source, error) {
	source, err := s.repo.GetSource(sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("no income source %s", sourceID)
	}

	earning := MonthlyEarning{Month: month, Amount: amount, Verified: verified}
	source.HistoricalEarnings = append(source.HistoricalEarnings, earning)

	amounts := make([]float64, len(source.HistoricalEarnings))
	for i, e := range source.HistoricalEarnings {
		amounts[i] = e.Amount
	}
	source.Volatility = riskmath.Volatility(amounts)
	source.StabilityIndex = riskmath.StabilityIndex(amounts)

	if err := s.repo.AppendEarning(source, earning); err != nil {
		return nil, err
	}
	return source, nil
}

// GetSource returns a source by id.
func (s *Service) GetSource(id string) (*Source, error) {
	source, err := s.repo.GetSource(id)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("no income source %s", id)
	}
	return source, nil
}

// ListSources returns all of a user's sources.
func (s *Service) ListSources(userID string) ([]*Source, error) {
	return s.repo.ListByUser(userID)
}

// ComputeAnalytics summarizes a user's income picture across all
// sources: verified totals, averages, dispersion and the inferred
// deposit cadence.
func (s *Service) ComputeAnalytics(userID string) (*Analytics, error) {
	sources, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	var amounts []float64
	var total, verified float64
	for _, source := range sources {
		for _, e := range source.HistoricalEarnings {
			amounts = append(amounts, e.Amount)
			total += e.Amount
			if e.Verified {
				verified += e.Amount
			}
		}
	}

	avg := 0.0
	if len(amounts) > 0 {
		avg = total / float64(len(amounts))
	}

	variation := 0.0
	if len(sources) > 1 {
		variation = sourceVariation(sources)
	}

	return &Analytics{
		TotalVerifiedIncome: verified,
		AverageMonthly:      math.Round(avg*100) / 100,
		Variance:            riskmath.Volatility(amounts),
		StabilityIndex:      riskmath.StabilityIndex(amounts),
		DepositFrequency:    inferFrequency(sources),
		SourceVariation:     variation,
		YTDTotal:            total,
	}, nil
}

// inferFrequency reduces the declared cadences to a single label with
// fixed precedence: bi-weekly, then monthly, then weekly, else mixed.
func inferFrequency(sources []*Source) string {
	has := map[Frequency]bool{}
	for _, source := range sources {
		has[source.Frequency] = true
	}
	switch {
	case has[FreqBiWeekly]:
		return "Bi-Weekly"
	case has[FreqMonthly]:
		return "Monthly"
	case has[FreqWeekly]:
		return "Weekly"
	default:
		return "Mixed"
	}
}

// sourceVariation is the maximum absolute deviation of declared source
// amounts from their mean, as a percentage of the mean, 2 decimals.
func sourceVariation(sources []*Source) float64 {
	mean := 0.0
	for _, source := range sources {
		mean += source.Amount
	}
	mean /= float64(len(sources))
	if mean == 0 {
		return 0
	}

	maxDev := 0.0
	for _, source := range sources {
		if dev := math.Abs(source.Amount - mean); dev > maxDev {
			maxDev = dev
		}
	}
	return math.Round(maxDev/mean*10000) / 100
}
