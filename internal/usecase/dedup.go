package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
)

// Deduplicator removes credentials already claimed elsewhere in the community and
// reports the other passports whose credential set changed as a side effect.
type Deduplicator interface {
	Rule() domain.Rule
	Deduplicate(ctx context.Context, community domain.Community, data scorer.PassportData, passport domain.Passport) (scorer.PassportData, []domain.Passport, error)
}

func NewDeduplicator(rule domain.Rule, stamps StampRepository, passports PassportRepository, now func() time.Time) (Deduplicator, error) {
	switch rule {
	case domain.RuleFIFO:
		return &fifo{stamps: stamps, passports: passports, now: now}, nil
	case domain.RuleLIFO:
		return &lifo{stamps: stamps, passports: passports}, nil
	default:
		return nil, domain.InvalidRuleError{Rule: rule.String()}
	}
}

// fifo keeps each fingerprint with its earliest live holder.
type fifo struct {
	stamps    StampRepository
	passports PassportRepository
	now       func() time.Time
}

func (d *fifo) Rule() domain.Rule { return domain.RuleFIFO }

func (d *fifo) Deduplicate(ctx context.Context, community domain.Community, data scorer.PassportData, passport domain.Passport) (scorer.PassportData, []domain.Passport, error) {
	holders, err := d.stamps.FindHolders(ctx, community.ID, data.Hashes(), passport.Address)
	if err != nil {
		return scorer.PassportData{}, nil, err
	}
	if len(holders) == 0 {
		return data, nil, nil
	}

	now := d.now()
	live := map[string]bool{}
	for _, holder := range holders {
		if holder.ExpiresAt.After(now) {
			live[holder.Hash] = true
		}
	}

	deduped := scorer.PassportData{Stamps: make([]scorer.StampData, 0, len(data.Stamps))}
	for _, stamp := range data.Stamps {
		if !live[stamp.Credential.CredentialSubject.Hash] {
			deduped.Stamps = append(deduped.Stamps, stamp)
		}
	}

	// holders whose claim already lapsed lose the fingerprint to this passport
	var stale []domain.StampHolder
	for _, holder := range holders {
		if !live[holder.Hash] {
			stale = append(stale, holder)
		}
	}

	affected, err := evict(ctx, d.stamps, d.passports, stale, passport)
	if err != nil {
		return scorer.PassportData{}, nil, err
	}
	return deduped, affected, nil
}

// lifo hands every fingerprint to the most recent claimant.
type lifo struct {
	stamps    StampRepository
	passports PassportRepository
}

func (d *lifo) Rule() domain.Rule { return domain.RuleLIFO }

func (d *lifo) Deduplicate(ctx context.Context, community domain.Community, data scorer.PassportData, passport domain.Passport) (scorer.PassportData, []domain.Passport, error) {
	holders, err := d.stamps.FindHolders(ctx, community.ID, data.Hashes(), passport.Address)
	if err != nil {
		return scorer.PassportData{}, nil, err
	}

	affected, err := evict(ctx, d.stamps, d.passports, holders, passport)
	if err != nil {
		return scorer.PassportData{}, nil, err
	}
	return data, affected, nil
}

// evict deletes the given stamps from their holders and flags each holder for
// recalculation. Holders are returned once each, never including self.
func evict(ctx context.Context, stamps StampRepository, passports PassportRepository, holders []domain.StampHolder, self domain.Passport) ([]domain.Passport, error) {
	if len(holders) == 0 {
		return nil, nil
	}

	stampIDs := make([]uint, 0, len(holders))
	seen := map[uint]bool{self.ID: true}
	var affected []domain.Passport
	var affectedIDs []uint
	for _, holder := range holders {
		if holder.Passport.ID == self.ID {
			continue
		}
		stampIDs = append(stampIDs, holder.StampID)
		if seen[holder.Passport.ID] {
			continue
		}
		seen[holder.Passport.ID] = true
		affected = append(affected, holder.Passport)
		affectedIDs = append(affectedIDs, holder.Passport.ID)
	}

	if err := stamps.DeleteByIDs(ctx, stampIDs); err != nil {
		return nil, errors.Wrap(err, "evict duplicated stamps")
	}
	if err := passports.RequestCalculation(ctx, affectedIDs...); err != nil {
		return nil, errors.Wrap(err, "flag affected passports")
	}
	return affected, nil
}
