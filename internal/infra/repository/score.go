package repository

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/infra/database/models"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Save replaces the score row of the passport.
func (r *ScoreRepository) Save(ctx context.Context, score domain.Score) error {
	record := models.Score{
		PassportID:         score.PassportID,
		Score:              score.Score,
		Status:             string(score.Status),
		LastScoreTimestamp: score.LastScoreTimestamp,
		Evidence:           datatypes.JSON(score.Evidence),
		Error:              score.Error,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "passport_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "status", "last_score_timestamp", "evidence", "error"}),
	}).Create(&record).Error
	return errors.Wrap(err, "save score")
}

func (r *ScoreRepository) Get(ctx context.Context, passportID uint) (domain.Score, error) {
	var record models.Score
	err := r.db.WithContext(ctx).
		Where("passport_id = ?", passportID).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Score{}, domain.NotFoundError{Resource: "score"}
		}
		return domain.Score{}, errors.Wrap(err, "get score")
	}

	var evidence json.RawMessage
	if len(record.Evidence) > 0 {
		evidence = json.RawMessage(record.Evidence)
	}

	return domain.Score{
		PassportID:         record.PassportID,
		Score:              record.Score,
		Status:             domain.ScoreStatus(record.Status),
		LastScoreTimestamp: record.LastScoreTimestamp,
		Evidence:           evidence,
		Error:              record.Error,
	}, nil
}

var _ usecase.ScoreRepository = (*ScoreRepository)(nil)
