package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
)

var tracer = otel.Tracer("pipeline")

// Task names accepted from the task transport. Both run the same pipeline.
const (
	TaskScorePassportPassport = "score_passport_passport"
	TaskScoreRegistryPassport = "score_registry_passport"
)

const DefaultMaxCascade = 64

type PipelineDeps struct {
	Passports   PassportRepository
	Stamps      StampRepository
	Scores      ScoreRepository
	Communities CommunityRepository
	Reader      PassportReader
	Validator   *StampValidator
	Scorer      *ScoreOrchestrator
	Events      EventPublisher
	Recorder    Recorder
	Logger      *slog.Logger
	Now         func() time.Time
	MaxCascade  int
}

// Pipeline claims a passport, refreshes its stamps and stores its score.
type Pipeline struct {
	passports   PassportRepository
	stamps      StampRepository
	scores      ScoreRepository
	communities CommunityRepository
	reader      PassportReader
	validator   *StampValidator
	scorer      *ScoreOrchestrator
	events      EventPublisher
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
	maxCascade  int
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		passports:   deps.Passports,
		stamps:      deps.Stamps,
		scores:      deps.Scores,
		communities: deps.Communities,
		reader:      deps.Reader,
		validator:   deps.Validator,
		scorer:      deps.Scorer,
		events:      deps.Events,
		recorder:    deps.Recorder,
		logger:      deps.Logger,
		now:         deps.Now,
		maxCascade:  deps.MaxCascade,
	}
	if p.recorder == nil {
		p.recorder = NopRecorder{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	if p.maxCascade <= 0 {
		p.maxCascade = DefaultMaxCascade
	}
	return p
}

// Handlers maps every task name to the pipeline entry point.
func (p *Pipeline) Handlers() map[string]func(ctx context.Context, communityID uint, address string) {
	return map[string]func(ctx context.Context, communityID uint, address string){
		TaskScorePassportPassport: p.Run,
		TaskScoreRegistryPassport: p.Run,
	}
}

type passportKey struct {
	communityID uint
	address     string
}

// Run scores the passport of address in the community. Outcomes are observed by
// reading the score row afterwards; nothing is returned to the caller.
//
// Passports that lose credentials under a FIFO community are re-scored here too,
// from a worklist bounded by maxCascade.
func (p *Pipeline) Run(ctx context.Context, communityID uint, address string) {
	ctx, span := tracer.Start(ctx, "Pipeline.Run", trace.WithAttributes(
		attribute.Int64("community_id", int64(communityID)),
		attribute.String("address", address),
	))
	defer span.End()

	p.logger.InfoContext(ctx, "score_passport request", "community_id", communityID, "address", address)

	root := passportKey{communityID: communityID, address: scorer.NormalizeAddress(address)}
	worklist := []passportKey{root}
	visited := map[passportKey]bool{root: true}
	cascaded := 0

	for len(worklist) > 0 {
		current := worklist[0]
		worklist = worklist[1:]

		affected := p.scorePassport(ctx, current.communityID, current.address)
		for _, passport := range affected {
			key := passportKey{communityID: passport.CommunityID, address: passport.Address}
			if visited[key] {
				p.logger.WarnContext(ctx, "passport already rescored in this run, leaving it for the next trigger",
					"community_id", key.communityID, "address", key.address)
				continue
			}
			if cascaded >= p.maxCascade {
				p.logger.WarnContext(ctx, "cascade limit reached, leaving passport for the next trigger",
					"community_id", key.communityID, "address", key.address, "limit", p.maxCascade)
				continue
			}
			visited[key] = true
			cascaded++

			if err := p.scores.Save(context.WithoutCancel(ctx), domain.ProcessingScore(passport.ID)); err != nil {
				p.logger.ErrorContext(ctx, "failed to mark affected passport as processing",
					"address", key.address, "error", err)
			}
			p.recorder.CascadeQueued()
			worklist = append(worklist, key)
		}
	}
}

func (p *Pipeline) scorePassport(ctx context.Context, communityID uint, address string) []domain.Passport {
	passport, err := p.passports.Claim(ctx, communityID, address)
	if err != nil {
		p.logger.ErrorContext(ctx, "error when claiming passport",
			"community_id", communityID, "address", address, "error", err)
		return nil
	}
	if passport == nil {
		p.logger.InfoContext(ctx, "no passport found that requires calculation",
			"community_id", communityID, "address", address)
		p.recorder.ClaimObserved(false)
		return nil
	}
	p.recorder.ClaimObserved(true)

	affected, err := p.process(ctx, *passport, communityID)
	if err != nil {
		p.logger.ErrorContext(ctx, "error when handling passport submission",
			"community_id", communityID, "address", address, "error", err)

		// the passport is owned by this run, so its failure is recorded even
		// when the run itself was cancelled.
		saveCtx := context.WithoutCancel(ctx)
		if saveErr := p.scores.Save(saveCtx, domain.ErrorScore(passport.ID, errorMessage(err))); saveErr != nil {
			p.logger.ErrorContext(ctx, "failed to record error score",
				"address", address, "error", saveErr)
		}
		p.recorder.RunFinished(domain.ScoreStatusError)
		p.announce(saveCtx, *passport, domain.ScoreStatusError)
		return affected
	}

	p.recorder.RunFinished(domain.ScoreStatusDone)
	p.announce(ctx, *passport, domain.ScoreStatusDone)
	return affected
}

// announce publishes the outcome of a run; failures are logged and dropped.
func (p *Pipeline) announce(ctx context.Context, passport domain.Passport, status domain.ScoreStatus) {
	if p.events == nil {
		return
	}
	err := p.events.PublishScore(ctx, domain.ScoreEvent{
		CommunityID: passport.CommunityID,
		Address:     passport.Address,
		Status:      status,
		At:          p.now(),
	})
	if err != nil {
		p.logger.WarnContext(ctx, "failed to publish score event", "address", passport.Address, "error", err)
	}
}

// process runs every stage after a successful claim. It returns the passports
// that must be re-scored, even when a later stage fails.
func (p *Pipeline) process(ctx context.Context, passport domain.Passport, communityID uint) (cascade []domain.Passport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := p.stamps.DeleteByPassport(ctx, passport.ID); err != nil {
		return nil, err
	}

	data, err := p.loadPassportData(ctx, passport.Address)
	if err != nil {
		return nil, err
	}

	community, err := p.communities.Get(ctx, communityID)
	if err != nil {
		return nil, errors.Wrap(err, "load community")
	}

	rule, err := domain.ParseRule(community.Rule)
	if err != nil {
		return nil, err
	}

	dedup, err := NewDeduplicator(rule, p.stamps, p.passports, p.now)
	if err != nil {
		return nil, err
	}

	deduped, affected, err := dedup.Deduplicate(ctx, community, *data, passport)
	if err != nil {
		return nil, err
	}

	if dedup.Rule() == domain.RuleFIFO {
		cascade = affected
	} else if len(affected) > 0 {
		p.logger.InfoContext(ctx, "LIFO deduplication evicted stamps from other passports",
			"address", passport.Address, "affected", len(affected))
	}

	if _, err := p.validator.ValidateAndPersist(ctx, passport, deduped); err != nil {
		return cascade, err
	}

	if err := p.scorer.Score(ctx, passport, communityID); err != nil {
		return cascade, err
	}

	return cascade, nil
}

func (p *Pipeline) loadPassportData(ctx context.Context, address string) (*scorer.PassportData, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.LoadPassportData")
	defer span.End()

	data, err := p.reader.GetPassport(ctx, address)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "load passport data")
	}
	if data == nil {
		return nil, domain.NoPassportError{Address: address}
	}
	return data, nil
}

// errorMessage renders a run failure for the score row: validation details are
// kept verbatim, anything else uses its string form.
func errorMessage(err error) string {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return validation.Detail
	}
	return err.Error()
}
