package service

import (
	"context"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

// PKHResolver derives did:pkh identifiers from Ethereum addresses.
type PKHResolver struct{}

func NewPKHResolver() *PKHResolver {
	return &PKHResolver{}
}

func (r *PKHResolver) DID(_ context.Context, address string) (string, error) {
	return scorer.DIDFromAddress(address)
}

var _ usecase.IdentityResolver = (*PKHResolver)(nil)
