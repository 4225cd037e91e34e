package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/infra/database/models"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

// CommunityRepository reads communities. Community settings do not change during
// a scoring run, so lookups are cached briefly in process.
type CommunityRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{
		db:    db,
		cache: cache.New(1*time.Minute, 5*time.Minute),
	}
}

func (r *CommunityRepository) Get(ctx context.Context, communityID uint) (domain.Community, error) {
	key := strconv.FormatUint(uint64(communityID), 10)
	if cached, found := r.cache.Get(key); found {
		return cached.(domain.Community), nil
	}

	var record models.Community
	err := r.db.WithContext(ctx).First(&record, "id = ?", communityID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Community{}, domain.NotFoundError{Resource: "community"}
		}
		return domain.Community{}, errors.Wrap(err, "get community")
	}

	community, err := toDomainCommunity(record)
	if err != nil {
		return domain.Community{}, err
	}

	r.cache.Set(key, community, cache.DefaultExpiration)
	return community, nil
}

func (r *CommunityRepository) Create(ctx context.Context, community domain.Community) (domain.Community, error) {
	weights, err := json.Marshal(community.Weights)
	if err != nil {
		return domain.Community{}, errors.Wrap(err, "marshal weights")
	}

	record := models.Community{
		Name:      community.Name,
		Rule:      community.Rule,
		Weights:   datatypes.JSON(weights),
		Threshold: community.Threshold,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.Community{}, errors.Wrap(err, "create community")
	}

	return toDomainCommunity(record)
}

func toDomainCommunity(record models.Community) (domain.Community, error) {
	weights := map[string]float64{}
	if len(record.Weights) > 0 {
		if err := json.Unmarshal(record.Weights, &weights); err != nil {
			return domain.Community{}, errors.Wrap(err, "unmarshal community weights")
		}
	}

	return domain.Community{
		ID:        record.ID,
		Name:      record.Name,
		Rule:      record.Rule,
		Weights:   weights,
		Threshold: record.Threshold,
	}, nil
}

var _ usecase.CommunityRepository = (*CommunityRepository)(nil)
