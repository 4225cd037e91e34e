package scorer

import (
	"encoding/json"
)

const (
	TypeVerifiableCredential = "VerifiableCredential"

	ProofTypePersonalSignature = "EthereumPersonalSignature"
)

// PassportData is the raw credential set returned by the passport data source.
type PassportData struct {
	Stamps []StampData `json:"stamps"`
}

// StampData is one stamp as served by the data source. Credential is the typed
// view used for validation; RawCredential keeps the bytes as received.
type StampData struct {
	Provider      string          `json:"provider"`
	Credential    Credential      `json:"credential"`
	RawCredential json.RawMessage `json:"-"`
}

type stampWire struct {
	Provider   string          `json:"provider"`
	Credential json.RawMessage `json:"credential"`
}

func (s *StampData) UnmarshalJSON(b []byte) error {
	var wire stampWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	s.Provider = wire.Provider
	s.Credential = Credential{}
	s.RawCredential = nil
	if len(wire.Credential) == 0 || string(wire.Credential) == "null" {
		return nil
	}
	if err := json.Unmarshal(wire.Credential, &s.Credential); err != nil {
		return err
	}
	s.RawCredential = append(json.RawMessage(nil), wire.Credential...)
	return nil
}

func (s StampData) MarshalJSON() ([]byte, error) {
	raw, err := s.CredentialPayload()
	if err != nil {
		return nil, err
	}
	return json.Marshal(stampWire{Provider: s.Provider, Credential: raw})
}

// CredentialPayload returns the credential bytes as received, or the encoded
// typed view when the stamp was built in memory.
func (s StampData) CredentialPayload() (json.RawMessage, error) {
	if len(s.RawCredential) > 0 {
		return s.RawCredential, nil
	}
	return json.Marshal(s.Credential)
}

type CredentialSubject struct {
	ID       string `json:"id"`
	Hash     string `json:"hash"`
	Provider string `json:"provider,omitempty"`
}

type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created,omitempty"`
	VerificationMethod string `json:"verificationMethod,omitempty"`
	ProofPurpose       string `json:"proofPurpose,omitempty"`
	ProofValue         string `json:"proofValue"`
}

type Credential struct {
	Context           []string          `json:"@context,omitempty"`
	Type              []string          `json:"type"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      string            `json:"issuanceDate"`
	ExpirationDate    string            `json:"expirationDate"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Proof             *Proof            `json:"proof,omitempty"`
}

// SigningPayload returns the bytes covered by the credential proof: the JSON
// of the typed credential without its proof, in struct field order. Fields
// outside Credential are not covered. This is a placeholder canonical form, not
// a JSON-LD or JCS canonicalization.
func (c Credential) SigningPayload() ([]byte, error) {
	unsigned := c
	unsigned.Proof = nil
	return json.Marshal(unsigned)
}

// Hashes returns the content hashes of every stamp, in order.
func (p PassportData) Hashes() []string {
	hashes := make([]string, 0, len(p.Stamps))
	for _, stamp := range p.Stamps {
		hashes = append(hashes, stamp.Credential.CredentialSubject.Hash)
	}
	return hashes
}
