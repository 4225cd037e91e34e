package service

import (
	"context"

	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

const EvidenceThresholdScoreCheck = "ThresholdScoreCheck"

// WeightedScorerProvider builds a weighted scorer from community settings.
type WeightedScorerProvider struct {
	stamps usecase.StampRepository
}

func NewWeightedScorerProvider(stamps usecase.StampRepository) *WeightedScorerProvider {
	return &WeightedScorerProvider{stamps: stamps}
}

func (p *WeightedScorerProvider) ScorerFor(community domain.Community) (usecase.Scorer, error) {
	return &WeightedScorer{
		stamps:    p.stamps,
		weights:   community.Weights,
		threshold: community.Threshold,
	}, nil
}

// WeightedScorer sums the weight of each distinct provider among a passport's stamps.
type WeightedScorer struct {
	stamps    usecase.StampRepository
	weights   map[string]float64
	threshold *float64
}

func (s *WeightedScorer) ComputeScores(ctx context.Context, passportIDs []uint) ([]domain.ScoreResult, error) {
	ctx, span := tracer.Start(ctx, "Service.WeightedScorer.ComputeScores")
	defer span.End()

	results := make([]domain.ScoreResult, 0, len(passportIDs))
	for _, id := range passportIDs {
		stamps, err := s.stamps.ListByPassport(ctx, id)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		seen := map[string]bool{}
		total := 0.0
		for _, stamp := range stamps {
			if seen[stamp.Provider] {
				continue
			}
			seen[stamp.Provider] = true
			total += s.weights[stamp.Provider]
		}

		result := domain.ScoreResult{PassportID: id, Score: total}
		if s.threshold != nil {
			result.Evidence = []domain.Evidence{{
				Type:      EvidenceThresholdScoreCheck,
				Success:   total >= *s.threshold,
				RawScore:  total,
				Threshold: *s.threshold,
			}}
		}
		results = append(results, result)
	}
	return results, nil
}

var _ usecase.ScorerProvider = (*WeightedScorerProvider)(nil)
