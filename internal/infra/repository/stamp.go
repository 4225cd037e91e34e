package repository

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/infra/database/models"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

type StampRepository struct {
	db *gorm.DB
}

func NewStampRepository(db *gorm.DB) *StampRepository {
	return &StampRepository{db: db}
}

func (r *StampRepository) DeleteByPassport(ctx context.Context, passportID uint) error {
	err := r.db.WithContext(ctx).
		Where("passport_id = ?", passportID).
		Delete(&models.Stamp{}).Error
	return errors.Wrap(err, "delete passport stamps")
}

func (r *StampRepository) Upsert(ctx context.Context, stamp domain.Stamp) error {
	record := models.Stamp{
		Hash:       stamp.Hash,
		PassportID: stamp.PassportID,
		Provider:   stamp.Provider,
		Credential: datatypes.JSON(stamp.Credential),
		ExpiresAt:  stamp.ExpiresAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}, {Name: "passport_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider", "credential", "expires_at"}),
	}).Create(&record).Error
	return errors.Wrap(err, "upsert stamp")
}

func (r *StampRepository) ListByPassport(ctx context.Context, passportID uint) ([]domain.Stamp, error) {
	var records []models.Stamp
	err := r.db.WithContext(ctx).
		Where("passport_id = ?", passportID).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "list stamps")
	}

	stamps := make([]domain.Stamp, 0, len(records))
	for _, record := range records {
		stamps = append(stamps, domain.Stamp{
			ID:         record.ID,
			Hash:       record.Hash,
			PassportID: record.PassportID,
			Provider:   record.Provider,
			Credential: json.RawMessage(record.Credential),
			ExpiresAt:  record.ExpiresAt,
		})
	}
	return stamps, nil
}

// FindHolders returns the stamps of other passports in the community that carry
// one of the hashes, oldest first.
func (r *StampRepository) FindHolders(ctx context.Context, communityID uint, hashes []string, excludeAddress string) ([]domain.StampHolder, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	passports := r.db.
		Model(&models.Passport{}).
		Select("id").
		Where("community_id = ? AND address <> ?", communityID, scorer.NormalizeAddress(excludeAddress))

	var records []models.Stamp
	err := r.db.WithContext(ctx).
		Preload("Passport").
		Where("hash IN ?", hashes).
		Where("passport_id IN (?)", passports).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "find stamp holders")
	}

	holders := make([]domain.StampHolder, 0, len(records))
	for _, record := range records {
		holders = append(holders, domain.StampHolder{
			StampID:   record.ID,
			Hash:      record.Hash,
			ExpiresAt: record.ExpiresAt,
			Passport:  toDomainPassport(record.Passport),
		})
	}
	return holders, nil
}

func (r *StampRepository) DeleteByIDs(ctx context.Context, stampIDs []uint) error {
	if len(stampIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", stampIDs).
		Delete(&models.Stamp{}).Error
	return errors.Wrap(err, "delete stamps")
}

var _ usecase.StampRepository = (*StampRepository)(nil)
