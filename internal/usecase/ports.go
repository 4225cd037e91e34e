package usecase

import (
	"context"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
)

// PassportRepository owns passport records and the claim primitive.
type PassportRepository interface {
	// Claim atomically takes ownership of a passport that needs work. It returns
	// nil when the passport is already owned, not due, or was just created.
	Claim(ctx context.Context, communityID uint, address string) (*domain.Passport, error)
	Ensure(ctx context.Context, communityID uint, address string) (domain.Passport, error)
	Get(ctx context.Context, communityID uint, address string) (domain.Passport, error)
	RequestCalculation(ctx context.Context, passportIDs ...uint) error
}

// StampRepository persists the validated stamps of passports.
type StampRepository interface {
	DeleteByPassport(ctx context.Context, passportID uint) error
	Upsert(ctx context.Context, stamp domain.Stamp) error
	ListByPassport(ctx context.Context, passportID uint) ([]domain.Stamp, error)
	// FindHolders returns stamps with the given hashes held by other passports of the community.
	FindHolders(ctx context.Context, communityID uint, hashes []string, excludeAddress string) ([]domain.StampHolder, error)
	DeleteByIDs(ctx context.Context, stampIDs []uint) error
}

// ScoreRepository stores the single live score row of each passport.
type ScoreRepository interface {
	Save(ctx context.Context, score domain.Score) error
	Get(ctx context.Context, passportID uint) (domain.Score, error)
}

type CommunityRepository interface {
	Get(ctx context.Context, communityID uint) (domain.Community, error)
}

// PassportReader fetches the raw credential set of an address. A nil result
// without error means the source has nothing for the address.
type PassportReader interface {
	GetPassport(ctx context.Context, address string) (*scorer.PassportData, error)
}

type IdentityResolver interface {
	DID(ctx context.Context, address string) (string, error)
}

// CredentialVerifier returns the validation errors of a credential; none means valid.
type CredentialVerifier interface {
	Verify(ctx context.Context, did string, credential scorer.Credential) []string
}

type IssuerVerifier interface {
	VerifyIssuer(credential scorer.Credential) bool
}

type Scorer interface {
	ComputeScores(ctx context.Context, passportIDs []uint) ([]domain.ScoreResult, error)
}

// ScorerProvider yields the scorer configured for a community.
type ScorerProvider interface {
	ScorerFor(community domain.Community) (Scorer, error)
}

// TaskPublisher hands scoring work to the task transport.
type TaskPublisher interface {
	Publish(ctx context.Context, name string, communityID uint, address string) error
}

// Recorder receives pipeline measurements.
type Recorder interface {
	ClaimObserved(claimed bool)
	StampObserved(accepted bool)
	RunFinished(status domain.ScoreStatus)
	CascadeQueued()
}

type NopRecorder struct{}

func (NopRecorder) ClaimObserved(bool)             {}
func (NopRecorder) StampObserved(bool)             {}
func (NopRecorder) RunFinished(domain.ScoreStatus) {}
func (NopRecorder) CascadeQueued()                 {}

// EventPublisher announces finished scoring attempts. Delivery is best effort.
type EventPublisher interface {
	PublishScore(ctx context.Context, event domain.ScoreEvent) error
}
