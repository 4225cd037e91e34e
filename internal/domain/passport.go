package domain

import (
	"encoding/json"
	"time"
)

// Passport is the scored identity record for one (community, address) pair.
type Passport struct {
	ID                  uint      `json:"id"`
	CommunityID         uint      `json:"communityID"`
	Address             string    `json:"address"`
	RequiresCalculation *bool     `json:"requiresCalculation,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// NeedsWork reports whether the passport is eligible for a claim.
func (p Passport) NeedsWork() bool {
	return p.RequiresCalculation == nil || *p.RequiresCalculation
}

// Stamp is one validated credential attached to a passport.
type Stamp struct {
	ID         uint            `json:"id"`
	Hash       string          `json:"hash"`
	PassportID uint            `json:"passportID"`
	Provider   string          `json:"provider"`
	Credential json.RawMessage `json:"credential"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// StampHolder pairs a persisted stamp with the passport that currently holds it.
type StampHolder struct {
	StampID   uint
	Hash      string
	ExpiresAt time.Time
	Passport  Passport
}
