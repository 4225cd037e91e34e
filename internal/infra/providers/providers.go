package providers

import (
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/totegamma/passport-scorer/client"
	"github.com/totegamma/passport-scorer/internal/config"
	"github.com/totegamma/passport-scorer/internal/infra/database"
	"github.com/totegamma/passport-scorer/internal/infra/gateway"
	"github.com/totegamma/passport-scorer/internal/infra/queue"
	"github.com/totegamma/passport-scorer/internal/infra/repository"
	"github.com/totegamma/passport-scorer/internal/service"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

// NewDatabase opens Postgres when a DSN is configured and SQLite otherwise.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	if conf.PostgresDsn != "" {
		return database.NewPostgres(conf.PostgresDsn)
	}
	return database.NewSQLite(conf.SQLitePath)
}

// MigrateDatabase applies migrations for the application models.
func MigrateDatabase(db *gorm.DB) error {
	return database.Migrate(db)
}

func NewRedis(conf config.Server) *redis.Client {
	return database.NewRedis(conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
}

// NewMemcache returns nil when no memcached address is configured.
func NewMemcache(conf config.Server) *memcache.Client {
	return database.NewMemcached(conf.MemcachedAddr)
}

// NewClient constructs the HTTP client used to fetch passport data.
func NewClient(conf config.Reader) *client.Client {
	return client.New(conf.Endpoint)
}

func NewPassportReader(conf config.Reader, mc *memcache.Client, logger *slog.Logger) *gateway.PassportReader {
	return gateway.NewPassportReaderWithMemcache(NewClient(conf), mc, conf.CacheTTL, logger)
}

func NewQueue(conf config.Worker, rdb *redis.Client) *queue.RedisQueue {
	return queue.NewRedisQueue(rdb, conf.Queue)
}

// PipelineOptions carries the optional collaborators of the pipeline.
type PipelineOptions struct {
	Reader   usecase.PassportReader
	Events   usecase.EventPublisher
	Recorder usecase.Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewPipeline wires the scoring pipeline against the gorm repositories.
func NewPipeline(conf config.Config, db *gorm.DB, opts PipelineOptions) *usecase.Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	passports := repository.NewPassportRepository(db)
	stamps := repository.NewStampRepository(db)
	scores := repository.NewScoreRepository(db)
	communities := repository.NewCommunityRepository(db)

	validator := usecase.NewStampValidator(
		stamps,
		service.NewPKHResolver(),
		service.NewCredentialVerifier(),
		service.NewTrustedIssuers(conf.Issuers.Trusted),
		now,
		logger.With("component", "validator"),
		opts.Recorder,
	)
	orchestrator := usecase.NewScoreOrchestrator(
		communities,
		service.NewWeightedScorerProvider(stamps),
		scores,
		now,
		logger.With("component", "scorer"),
	)

	return usecase.NewPipeline(usecase.PipelineDeps{
		Passports:   passports,
		Stamps:      stamps,
		Scores:      scores,
		Communities: communities,
		Reader:      opts.Reader,
		Validator:   validator,
		Scorer:      orchestrator,
		Events:      opts.Events,
		Recorder:    opts.Recorder,
		Logger:      logger.With("component", "pipeline"),
		Now:         now,
		MaxCascade:  conf.Worker.MaxCascade,
	})
}

// NewRegistry wires the submit and query usecase.
func NewRegistry(db *gorm.DB, tasks usecase.TaskPublisher) *usecase.RegistryUsecase {
	return usecase.NewRegistryUsecase(
		repository.NewPassportRepository(db),
		repository.NewScoreRepository(db),
		repository.NewCommunityRepository(db),
		tasks,
	)
}
