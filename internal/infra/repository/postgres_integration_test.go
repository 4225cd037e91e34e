//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/infra/database"
)

type PostgresSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *gorm.DB
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("scorer"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := database.NewPostgres(dsn)
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))
	s.db = db
}

func (s *PostgresSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.db.Exec("TRUNCATE scores, stamps, passports, communities RESTART IDENTITY CASCADE").Error)
}

func (s *PostgresSuite) community(rule string) domain.Community {
	c, err := NewCommunityRepository(s.db).Create(context.Background(), domain.Community{
		Name:    "integration",
		Rule:    rule,
		Weights: map[string]float64{"Google": 1},
	})
	s.Require().NoError(err)
	return c
}

func (s *PostgresSuite) TestClaimRace() {
	ctx := context.Background()
	c := s.community("LIFO")
	repo := NewPassportRepository(s.db)

	_, err := repo.Ensure(ctx, c.ID, addrA)
	s.Require().NoError(err)

	for generation := 0; generation < 3; generation++ {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			claimed int
		)
		start := make(chan struct{})
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				p, err := repo.Claim(ctx, c.ID, addrA)
				s.NoError(err)
				if p != nil {
					mu.Lock()
					claimed++
					mu.Unlock()
				}
			}()
		}
		close(start)
		wg.Wait()

		s.Equal(1, claimed, "generation %d", generation)

		p, err := repo.Get(ctx, c.ID, addrA)
		s.Require().NoError(err)
		s.Require().NoError(repo.RequestCalculation(ctx, p.ID))
	}
}

func (s *PostgresSuite) TestConcurrentFirstReferenceCreatesOnce() {
	ctx := context.Background()
	c := s.community("LIFO")
	repo := NewPassportRepository(s.db)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := repo.Claim(ctx, c.ID, addrB)
			s.NoError(err)
			s.Nil(p)
		}()
	}
	wg.Wait()

	var count int64
	s.Require().NoError(s.db.Table("passports").Where("address = ?", addrB).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *PostgresSuite) TestFindHoldersAcrossPassports() {
	ctx := context.Background()
	c := s.community("FIFO")
	passports := NewPassportRepository(s.db)
	stamps := NewStampRepository(s.db)

	a, err := passports.Ensure(ctx, c.ID, addrA)
	s.Require().NoError(err)
	_, err = passports.Ensure(ctx, c.ID, addrB)
	s.Require().NoError(err)

	s.Require().NoError(stamps.Upsert(ctx, domain.Stamp{
		Hash:       "shared",
		PassportID: a.ID,
		Provider:   "Google",
		Credential: []byte(`{"issuer":"did:key:x"}`),
		ExpiresAt:  time.Now().Add(time.Hour),
	}))

	holders, err := stamps.FindHolders(ctx, c.ID, []string{"shared"}, addrB)
	s.Require().NoError(err)
	s.Require().Len(holders, 1)
	s.Equal(a.ID, holders[0].Passport.ID)
}
