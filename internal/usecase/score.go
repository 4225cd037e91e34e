package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/totegamma/passport-scorer/internal/domain"
)

// ScoreOrchestrator runs the community scorer and stores its outcome.
type ScoreOrchestrator struct {
	communities CommunityRepository
	scorers     ScorerProvider
	scores      ScoreRepository
	now         func() time.Time
	logger      *slog.Logger
}

func NewScoreOrchestrator(
	communities CommunityRepository,
	scorers ScorerProvider,
	scores ScoreRepository,
	now func() time.Time,
	logger *slog.Logger,
) *ScoreOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ScoreOrchestrator{
		communities: communities,
		scorers:     scorers,
		scores:      scores,
		now:         now,
		logger:      logger,
	}
}

func (o *ScoreOrchestrator) Score(ctx context.Context, passport domain.Passport, communityID uint) error {
	community, err := o.communities.Get(ctx, communityID)
	if err != nil {
		return errors.Wrap(err, "load community")
	}

	sc, err := o.scorers.ScorerFor(community)
	if err != nil {
		return errors.Wrap(err, "load scorer")
	}

	results, err := sc.ComputeScores(ctx, []uint{passport.ID})
	if err != nil {
		return errors.Wrap(err, "compute score")
	}

	var result *domain.ScoreResult
	for i := range results {
		if results[i].PassportID == passport.ID {
			result = &results[i]
			break
		}
	}
	if result == nil {
		return errors.Errorf("scorer returned no score for passport %d", passport.ID)
	}

	o.logger.InfoContext(ctx, "computed score", "address", passport.Address, "score", result.Score)

	var evidence json.RawMessage
	if len(result.Evidence) > 0 {
		evidence, err = json.Marshal(result.Evidence[0])
		if err != nil {
			return errors.Wrap(err, "marshal evidence")
		}
	}

	return o.scores.Save(ctx, domain.DoneScore(passport.ID, result.Score, o.now(), evidence))
}
