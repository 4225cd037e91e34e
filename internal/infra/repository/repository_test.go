package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/infra/database"
)

const (
	addrA = "0x00000000000000000000000000000000000000aa"
	addrB = "0x00000000000000000000000000000000000000bb"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newCommunity(t *testing.T, db *gorm.DB, rule string) domain.Community {
	t.Helper()
	c, err := NewCommunityRepository(db).Create(context.Background(), domain.Community{
		Name:    "community",
		Rule:    rule,
		Weights: map[string]float64{"Google": 1.5},
	})
	require.NoError(t, err)
	return c
}

func TestClaimLifecycle(t *testing.T) {
	db := newTestDB(t)
	c := newCommunity(t, db, "LIFO")
	repo := NewPassportRepository(db)
	ctx := context.Background()

	// unknown passport: created, not claimed
	p, err := repo.Claim(ctx, c.ID, "0x00000000000000000000000000000000000000AA")
	require.NoError(t, err)
	assert.Nil(t, p)

	created, err := repo.Get(ctx, c.ID, addrA)
	require.NoError(t, err)
	assert.Nil(t, created.RequiresCalculation)
	assert.Equal(t, addrA, created.Address)

	p, err = repo.Claim(ctx, c.ID, addrA)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, created.ID, p.ID)
	require.NotNil(t, p.RequiresCalculation)
	assert.False(t, *p.RequiresCalculation)

	p, err = repo.Claim(ctx, c.ID, addrA)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, repo.RequestCalculation(ctx, created.ID))
	p, err = repo.Claim(ctx, c.ID, addrA)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestClaimIsExclusive(t *testing.T) {
	db := newTestDB(t)
	c := newCommunity(t, db, "LIFO")
	repo := NewPassportRepository(db)
	ctx := context.Background()

	_, err := repo.Ensure(ctx, c.ID, addrA)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := repo.Claim(ctx, c.ID, addrA)
			assert.NoError(t, err)
			if p != nil {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claimed)
}

func TestEnsureIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	c := newCommunity(t, db, "LIFO")
	repo := NewPassportRepository(db)
	ctx := context.Background()

	first, err := repo.Ensure(ctx, c.ID, addrA)
	require.NoError(t, err)
	second, err := repo.Ensure(ctx, c.ID, addrA)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = repo.Get(ctx, c.ID, addrB)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStampRepository(t *testing.T) {
	db := newTestDB(t)
	c := newCommunity(t, db, "FIFO")
	other := newCommunity(t, db, "FIFO")
	passports := NewPassportRepository(db)
	stamps := NewStampRepository(db)
	ctx := context.Background()

	a, err := passports.Ensure(ctx, c.ID, addrA)
	require.NoError(t, err)
	b, err := passports.Ensure(ctx, c.ID, addrB)
	require.NoError(t, err)
	elsewhere, err := passports.Ensure(ctx, other.ID, addrB)
	require.NoError(t, err)

	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []domain.Stamp{
		{Hash: "h1", PassportID: a.ID, Provider: "Google", Credential: []byte(`{"v":1}`), ExpiresAt: expires},
		{Hash: "h2", PassportID: a.ID, Provider: "Twitter", Credential: []byte(`{"v":2}`), ExpiresAt: expires},
		{Hash: "h1", PassportID: elsewhere.ID, Provider: "Google", Credential: []byte(`{}`), ExpiresAt: expires},
	} {
		require.NoError(t, stamps.Upsert(ctx, s))
	}

	// upsert replaces in place
	require.NoError(t, stamps.Upsert(ctx, domain.Stamp{Hash: "h1", PassportID: a.ID, Provider: "Google", Credential: []byte(`{"v":3}`), ExpiresAt: expires}))

	list, err := stamps.ListByPassport(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.JSONEq(t, `{"v":3}`, string(list[0].Credential))
	assert.True(t, expires.Equal(list[0].ExpiresAt))

	holders, err := stamps.FindHolders(ctx, c.ID, []string{"h1", "h9"}, addrB)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, a.ID, holders[0].Passport.ID)
	assert.Equal(t, addrA, holders[0].Passport.Address)
	assert.Equal(t, "h1", holders[0].Hash)

	holders, err = stamps.FindHolders(ctx, c.ID, []string{"h1"}, addrA)
	require.NoError(t, err)
	assert.Empty(t, holders)

	require.NoError(t, stamps.DeleteByIDs(ctx, []uint{list[1].ID}))
	list, err = stamps.ListByPassport(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, stamps.DeleteByPassport(ctx, a.ID))
	list, err = stamps.ListByPassport(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = stamps.ListByPassport(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScoreRepositoryKeepsOneRow(t *testing.T) {
	db := newTestDB(t)
	c := newCommunity(t, db, "LIFO")
	p, err := NewPassportRepository(db).Ensure(context.Background(), c.ID, addrA)
	require.NoError(t, err)
	scores := NewScoreRepository(db)
	ctx := context.Background()

	_, err = scores.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, scores.Save(ctx, domain.ProcessingScore(p.ID)))
	s, err := scores.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreStatusProcessing, s.Status)

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scores.Save(ctx, domain.DoneScore(p.ID, 7.5, at, []byte(`{"type":"ThresholdScoreCheck"}`))))
	s, err = scores.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreStatusDone, s.Status)
	require.NotNil(t, s.Score)
	assert.Equal(t, 7.5, *s.Score)
	assert.Nil(t, s.Error)

	require.NoError(t, scores.Save(ctx, domain.ErrorScore(p.ID, "broken")))
	s, err = scores.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreStatusError, s.Status)
	assert.Nil(t, s.Score)
	assert.Nil(t, s.LastScoreTimestamp)
	assert.Nil(t, s.Evidence)
	require.NotNil(t, s.Error)
	assert.Equal(t, "broken", *s.Error)

	var count int64
	require.NoError(t, db.Table("scores").Where("passport_id = ?", p.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCommunityRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommunityRepository(db)
	ctx := context.Background()

	threshold := 20.0
	created, err := repo.Create(ctx, domain.Community{
		Name:      "gitcoin",
		Rule:      "FIFO",
		Weights:   map[string]float64{"Google": 1.5, "Github": 3},
		Threshold: &threshold,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "FIFO", got.Rule)
	assert.Equal(t, map[string]float64{"Google": 1.5, "Github": 3}, got.Weights)
	require.NotNil(t, got.Threshold)
	assert.Equal(t, 20.0, *got.Threshold)

	_, err = repo.Get(ctx, created.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
