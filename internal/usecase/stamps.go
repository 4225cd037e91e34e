package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
)

// StampValidator checks each credential and persists the valid ones.
type StampValidator struct {
	stamps   StampRepository
	identity IdentityResolver
	verifier CredentialVerifier
	issuers  IssuerVerifier
	now      func() time.Time
	logger   *slog.Logger
	recorder Recorder
}

func NewStampValidator(
	stamps StampRepository,
	identity IdentityResolver,
	verifier CredentialVerifier,
	issuers IssuerVerifier,
	now func() time.Time,
	logger *slog.Logger,
	recorder Recorder,
) *StampValidator {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &StampValidator{
		stamps:   stamps,
		identity: identity,
		verifier: verifier,
		issuers:  issuers,
		now:      now,
		logger:   logger,
		recorder: recorder,
	}
}

// ValidateAndPersist upserts every acceptable credential of data for the passport
// and returns how many were kept. A rejected credential never fails the call.
func (v *StampValidator) ValidateAndPersist(ctx context.Context, passport domain.Passport, data scorer.PassportData) (int, error) {
	did, err := v.identity.DID(ctx, passport.Address)
	if err != nil {
		return 0, errors.Wrap(err, "resolve did")
	}

	accepted := 0
	for _, stamp := range data.Stamps {
		expiresAt, reasons := v.check(ctx, did, stamp.Credential)
		if len(reasons) > 0 {
			v.logger.InfoContext(ctx, "stamp not created",
				"address", passport.Address,
				"provider", stamp.Provider,
				"hash", stamp.Credential.CredentialSubject.Hash,
				"reasons", reasons,
			)
			v.recorder.StampObserved(false)
			continue
		}

		payload, err := stamp.CredentialPayload()
		if err != nil {
			return accepted, errors.Wrap(err, "encode credential")
		}

		err = v.stamps.Upsert(ctx, domain.Stamp{
			Hash:       stamp.Credential.CredentialSubject.Hash,
			PassportID: passport.ID,
			Provider:   stamp.Provider,
			Credential: payload,
			ExpiresAt:  expiresAt,
		})
		if err != nil {
			return accepted, err
		}
		accepted++
		v.recorder.StampObserved(true)
	}

	return accepted, nil
}

func (v *StampValidator) check(ctx context.Context, did string, credential scorer.Credential) (time.Time, []string) {
	reasons := v.verifier.Verify(ctx, did, credential)

	if credential.CredentialSubject.Hash == "" {
		reasons = append(reasons, "credential subject hash is missing")
	}

	expiresAt, err := scorer.ParseExpiration(credential.ExpirationDate)
	if err != nil {
		reasons = append(reasons, err.Error())
	} else if !expiresAt.After(v.now()) {
		reasons = append(reasons, "credential is expired")
	}

	if !v.issuers.VerifyIssuer(credential) {
		reasons = append(reasons, "issuer is not trusted")
	}

	return expiresAt, reasons
}
