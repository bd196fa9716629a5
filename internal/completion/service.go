package completion

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/i18n"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/metrics"
)

// DivisionFinder returns every order that may be a division of ref. Results
// can over-match; the service filters them with anchored matching.
type DivisionFinder interface {
	FindDivisionCandidates(ctx context.Context, ref string) ([]models.Order, error)
}

// Service computes completion verdicts. It never writes and never caches.
type Service struct {
	finder  DivisionFinder
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// NewService wires the aggregator. metrics may be nil.
func NewService(finder DivisionFinder, logg *logger.Logger, m *metrics.OrderMetrics) (*Service, error) {
	if finder == nil {
		return nil, fmt.Errorf("division finder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{finder: finder, logg: logg, metrics: m}, nil
}

// ComputeCompletion returns the verdict for the original order identified by
// ref. Fetch failures degrade to a zero verdict labelled as an error.
func (s *Service) ComputeCompletion(ctx context.Context, ref string) Verdict {
	return s.GetDivisionsWithCompletion(ctx, ref).Completion
}

// GetDivisionsWithCompletion returns the division summaries and the verdict
// computed over that same fetched set.
func (s *Service) GetDivisionsWithCompletion(ctx context.Context, ref string) DivisionsWithCompletion {
	rows, err := s.fetch(ctx, ref)
	if err != nil {
		s.metrics.IncVerdictError()
		logCtx := s.logg.WithOriginalRef(ctx, ref)
		s.logg.Error(logCtx, "failed to fetch divisions for completion", err)
		return DivisionsWithCompletion{
			Divisions:  []DivisionInfo{},
			Completion: zeroVerdict(ctx, i18n.KeyStatusError),
		}
	}

	verdict := Evaluate(ctx, rows)
	s.metrics.IncVerdict(string(verdict.Status))
	return DivisionsWithCompletion{
		Divisions:  summarise(rows),
		Completion: verdict,
	}
}

func (s *Service) fetch(ctx context.Context, ref string) ([]models.Order, error) {
	candidates, err := s.finder.FindDivisionCandidates(ctx, ref)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Order, 0, len(candidates))
	for i := range candidates {
		if divisions.Matches(&candidates[i], ref) {
			matched = append(matched, candidates[i])
		}
	}
	return matched, nil
}
