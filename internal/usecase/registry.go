package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
)

// ScoreView is the externally visible state of a passport score.
type ScoreView struct {
	Address            string             `json:"address"`
	Score              *float64           `json:"score"`
	Status             domain.ScoreStatus `json:"status"`
	LastScoreTimestamp *time.Time         `json:"last_score_timestamp"`
	Evidence           json.RawMessage    `json:"evidence"`
	Error              *string            `json:"error"`
}

func newScoreView(address string, score domain.Score) ScoreView {
	return ScoreView{
		Address:            address,
		Score:              score.Score,
		Status:             score.Status,
		LastScoreTimestamp: score.LastScoreTimestamp,
		Evidence:           score.Evidence,
		Error:              score.Error,
	}
}

// RegistryUsecase accepts scoring requests and serves stored scores.
type RegistryUsecase struct {
	passports   PassportRepository
	scores      ScoreRepository
	communities CommunityRepository
	tasks       TaskPublisher
}

func NewRegistryUsecase(
	passports PassportRepository,
	scores ScoreRepository,
	communities CommunityRepository,
	tasks TaskPublisher,
) *RegistryUsecase {
	return &RegistryUsecase{
		passports:   passports,
		scores:      scores,
		communities: communities,
		tasks:       tasks,
	}
}

// Submit flags the passport for a fresh score and queues the work.
func (uc *RegistryUsecase) Submit(ctx context.Context, communityID uint, address string) (ScoreView, error) {
	ctx, span := tracer.Start(ctx, "RegistryUsecase.Submit")
	defer span.End()

	address = scorer.NormalizeAddress(address)
	if !scorer.IsAddress(address) {
		return ScoreView{}, &domain.ValidationError{Detail: "invalid address"}
	}

	if _, err := uc.communities.Get(ctx, communityID); err != nil {
		return ScoreView{}, err
	}

	passport, err := uc.passports.Ensure(ctx, communityID, address)
	if err != nil {
		return ScoreView{}, errors.Wrap(err, "ensure passport")
	}

	if err := uc.passports.RequestCalculation(ctx, passport.ID); err != nil {
		return ScoreView{}, errors.Wrap(err, "request calculation")
	}

	pending := domain.ProcessingScore(passport.ID)
	if err := uc.scores.Save(ctx, pending); err != nil {
		return ScoreView{}, errors.Wrap(err, "mark processing")
	}

	if err := uc.tasks.Publish(ctx, TaskScoreRegistryPassport, communityID, address); err != nil {
		span.RecordError(err)
		return ScoreView{}, errors.Wrap(err, "enqueue scoring task")
	}

	return newScoreView(address, pending), nil
}

// GetScore returns the live score of the passport.
func (uc *RegistryUsecase) GetScore(ctx context.Context, communityID uint, address string) (ScoreView, error) {
	ctx, span := tracer.Start(ctx, "RegistryUsecase.GetScore")
	defer span.End()

	address = scorer.NormalizeAddress(address)

	passport, err := uc.passports.Get(ctx, communityID, address)
	if err != nil {
		return ScoreView{}, err
	}

	score, err := uc.scores.Get(ctx, passport.ID)
	if err != nil {
		return ScoreView{}, err
	}

	return newScoreView(address, score), nil
}
