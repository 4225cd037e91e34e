package service

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scorer "github.com/totegamma/passport-scorer"
)

const holderDID = "did:pkh:eip155:1:0x00000000000000000000000000000000000000a1"

func signedCredential(t *testing.T) scorer.Credential {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	credential := scorer.Credential{
		Context:        []string{"https://www.w3.org/2018/credentials/v1"},
		Type:           []string{scorer.TypeVerifiableCredential},
		Issuer:         "did:ethr:" + crypto.PubkeyToAddress(key.PublicKey).Hex(),
		IssuanceDate:   "2024-01-01T00:00:00.000Z",
		ExpirationDate: "2099-01-01T00:00:00.000Z",
		CredentialSubject: scorer.CredentialSubject{
			ID:       holderDID,
			Hash:     "v0.0.0:google",
			Provider: "Google",
		},
	}

	payload, err := credential.SigningPayload()
	require.NoError(t, err)
	sig, err := crypto.Sign(accounts.TextHash(payload), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	credential.Proof = &scorer.Proof{
		Type:               scorer.ProofTypePersonalSignature,
		ProofPurpose:       "assertionMethod",
		VerificationMethod: credential.Issuer + "#controller",
		ProofValue:         hexutil.Encode(sig),
	}
	return credential
}

func TestVerifyAcceptsSignedCredential(t *testing.T) {
	v := NewCredentialVerifier()
	assert.Empty(t, v.Verify(context.Background(), holderDID, signedCredential(t)))
}

func TestVerifySubjectMatchIgnoresCase(t *testing.T) {
	v := NewCredentialVerifier()
	did := "did:pkh:eip155:1:0x00000000000000000000000000000000000000A1"
	assert.Empty(t, v.Verify(context.Background(), did, signedCredential(t)))
}

func TestVerifyRejectsTamperedCredential(t *testing.T) {
	credential := signedCredential(t)
	credential.CredentialSubject.Hash = "v0.0.0:forged"

	problems := NewCredentialVerifier().Verify(context.Background(), holderDID, credential)
	assert.Contains(t, problems, "proof signature does not match issuer")
}

func TestVerifyRejectsOtherSubject(t *testing.T) {
	problems := NewCredentialVerifier().Verify(context.Background(), "did:pkh:eip155:1:0x00000000000000000000000000000000000000b0", signedCredential(t))
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "does not match")
}

func TestVerifyStructuralProblems(t *testing.T) {
	v := NewCredentialVerifier()

	missing := signedCredential(t)
	missing.Proof = nil
	assert.Contains(t, v.Verify(context.Background(), holderDID, missing), "credential proof is missing")

	jws := signedCredential(t)
	jws.Proof.Type = "Ed25519Signature2018"
	assert.Contains(t, v.Verify(context.Background(), holderDID, jws), `unsupported proof type "Ed25519Signature2018"`)

	untyped := signedCredential(t)
	untyped.Type = []string{"Something"}
	assert.Contains(t, v.Verify(context.Background(), holderDID, untyped), "credential type must include VerifiableCredential")

	garbled := signedCredential(t)
	garbled.Proof.ProofValue = "0x1234"
	problems := v.Verify(context.Background(), holderDID, garbled)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "invalid signature length")

	keyIssuer := signedCredential(t)
	keyIssuer.Issuer = "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"
	assert.NotEmpty(t, v.Verify(context.Background(), holderDID, keyIssuer))
}
