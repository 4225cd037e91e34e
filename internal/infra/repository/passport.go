package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/infra/database/models"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

type PassportRepository struct {
	db *gorm.DB
}

func NewPassportRepository(db *gorm.DB) *PassportRepository {
	return &PassportRepository{db: db}
}

// Claim flips requires_calculation to false with one conditional UPDATE and uses
// the affected row count to decide ownership. Concurrent callers racing on the
// same row are serialized by the database; only one of them sees a changed row.
func (r *PassportRepository) Claim(ctx context.Context, communityID uint, address string) (*domain.Passport, error) {
	address = scorer.NormalizeAddress(address)

	result := r.db.WithContext(ctx).
		Model(&models.Passport{}).
		Where("community_id = ? AND address = ?", communityID, address).
		Where("requires_calculation IS NULL OR requires_calculation = ?", true).
		Update("requires_calculation", false)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "claim passport")
	}

	if result.RowsAffected == 1 {
		passport, err := r.Get(ctx, communityID, address)
		if err != nil {
			return nil, err
		}
		return &passport, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Passport{}).
		Where("community_id = ? AND address = ?", communityID, address).
		Count(&count).Error
	if err != nil {
		return nil, errors.Wrap(err, "check passport existence")
	}

	if count == 0 {
		// created in the "needs work" state; the next invocation claims it
		if _, err := r.Ensure(ctx, communityID, address); err != nil {
			return nil, err
		}
	}

	return nil, nil
}

func (r *PassportRepository) Ensure(ctx context.Context, communityID uint, address string) (domain.Passport, error) {
	address = scorer.NormalizeAddress(address)

	passport := models.Passport{
		CommunityID: communityID,
		Address:     address,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "address"}},
		DoNothing: true,
	}).Create(&passport).Error
	if err != nil {
		return domain.Passport{}, errors.Wrap(err, "create passport")
	}

	return r.Get(ctx, communityID, address)
}

func (r *PassportRepository) Get(ctx context.Context, communityID uint, address string) (domain.Passport, error) {
	var passport models.Passport
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND address = ?", communityID, scorer.NormalizeAddress(address)).
		Take(&passport).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Passport{}, domain.NotFoundError{Resource: "passport"}
		}
		return domain.Passport{}, errors.Wrap(err, "get passport")
	}
	return toDomainPassport(passport), nil
}

func (r *PassportRepository) RequestCalculation(ctx context.Context, passportIDs ...uint) error {
	if len(passportIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Passport{}).
		Where("id IN ?", passportIDs).
		Update("requires_calculation", true).Error
	return errors.Wrap(err, "request calculation")
}

func toDomainPassport(p models.Passport) domain.Passport {
	return domain.Passport{
		ID:                  p.ID,
		CommunityID:         p.CommunityID,
		Address:             p.Address,
		RequiresCalculation: p.RequiresCalculation,
		CreatedAt:           p.CreatedAt,
	}
}

var _ usecase.PassportRepository = (*PassportRepository)(nil)
