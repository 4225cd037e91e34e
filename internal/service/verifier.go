package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

var tracer = otel.Tracer("service")

// CredentialVerifier checks credential structure and EthereumPersonalSignature proofs.
//
// It is a placeholder for a full verifiable credential verifier. Only
// EthereumPersonalSignature proofs are accepted, and the signed bytes are the
// Go encoding of the typed credential (see scorer.Credential.SigningPayload),
// so credentials signed over another canonical form are rejected. Deployments
// that need other proof suites plug in their own usecase.CredentialVerifier.
type CredentialVerifier struct{}

func NewCredentialVerifier() *CredentialVerifier {
	return &CredentialVerifier{}
}

func (v *CredentialVerifier) Verify(ctx context.Context, did string, credential scorer.Credential) []string {
	_, span := tracer.Start(ctx, "Service.CredentialVerifier.Verify")
	defer span.End()

	var problems []string

	if !slices.Contains(credential.Type, scorer.TypeVerifiableCredential) {
		problems = append(problems, "credential type must include VerifiableCredential")
	}
	if !strings.EqualFold(credential.CredentialSubject.ID, did) {
		problems = append(problems, fmt.Sprintf("credential subject %q does not match %q", credential.CredentialSubject.ID, did))
	}
	if credential.Issuer == "" {
		problems = append(problems, "credential issuer is missing")
	}

	if credential.Proof == nil {
		return append(problems, "credential proof is missing")
	}
	if credential.Proof.Type != scorer.ProofTypePersonalSignature {
		return append(problems, fmt.Sprintf("unsupported proof type %q", credential.Proof.Type))
	}

	if err := verifyPersonalSignature(credential); err != nil {
		span.RecordError(err)
		problems = append(problems, err.Error())
	}

	return problems
}

func verifyPersonalSignature(credential scorer.Credential) error {
	issuer, err := scorer.AddressFromDID(credential.Issuer)
	if err != nil {
		return err
	}

	payload, err := credential.SigningPayload()
	if err != nil {
		return errors.Wrap(err, "encode signing payload")
	}

	sig, err := hexutil.Decode(credential.Proof.ProofValue)
	if err != nil {
		return errors.Wrap(err, "decode proof value")
	}
	if len(sig) != crypto.SignatureLength {
		return errors.Errorf("invalid signature length %d", len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(payload), sig)
	if err != nil {
		return errors.Wrap(err, "recover signer")
	}

	if crypto.PubkeyToAddress(*pub) != issuer {
		return errors.New("proof signature does not match issuer")
	}
	return nil
}

var _ usecase.CredentialVerifier = (*CredentialVerifier)(nil)
