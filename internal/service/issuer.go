package service

import (
	"strings"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

// TrustedIssuers accepts credentials issued by a fixed set of DIDs.
type TrustedIssuers struct {
	issuers map[string]struct{}
}

func NewTrustedIssuers(issuers []string) *TrustedIssuers {
	set := make(map[string]struct{}, len(issuers))
	for _, issuer := range issuers {
		set[strings.ToLower(strings.TrimSpace(issuer))] = struct{}{}
	}
	return &TrustedIssuers{issuers: set}
}

func (t *TrustedIssuers) VerifyIssuer(credential scorer.Credential) bool {
	_, ok := t.issuers[strings.ToLower(credential.Issuer)]
	return ok
}

var _ usecase.IssuerVerifier = (*TrustedIssuers)(nil)
