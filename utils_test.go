package scorer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDIDFromAddress(t *testing.T) {
	did, err := DIDFromAddress(" 0xAbCdEf0000000000000000000000000000000001 ")
	require.NoError(t, err)
	assert.Equal(t, "did:pkh:eip155:1:0xabcdef0000000000000000000000000000000001", did)

	_, err = DIDFromAddress("0x1234")
	assert.Error(t, err)
}

func TestAddressFromDID(t *testing.T) {
	addr, err := AddressFromDID("did:pkh:eip155:1:0xabcdef0000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", strings.ToLower(addr.Hex()))

	addr, err = AddressFromDID("did:ethr:0xabcdef0000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", strings.ToLower(addr.Hex()))

	_, err = AddressFromDID("did:key:z6Mkabc")
	assert.Error(t, err)
	_, err = AddressFromDID("0xabcdef0000000000000000000000000000000001")
	assert.Error(t, err)
}

func TestParseExpiration(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, value := range []string{
		"2025-03-04T05:06:07.000Z",
		"2025-03-04T05:06:07Z",
		"2025-03-04T07:06:07+02:00",
	} {
		got, err := ParseExpiration(value)
		require.NoError(t, err, value)
		assert.True(t, want.Equal(got), value)
	}

	_, err := ParseExpiration("04/03/2025")
	assert.Error(t, err)
}

func TestSigningPayloadOmitsProof(t *testing.T) {
	c := Credential{
		Type:   []string{TypeVerifiableCredential},
		Issuer: "did:ethr:0x1",
		Proof:  &Proof{Type: ProofTypePersonalSignature, ProofValue: "0xdead"},
	}
	payload, err := c.SigningPayload()
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "proof")
	assert.NotNil(t, c.Proof)
}

func TestPassportDataHashes(t *testing.T) {
	data := PassportData{Stamps: []StampData{
		{Credential: Credential{CredentialSubject: CredentialSubject{Hash: "a"}}},
		{Credential: Credential{CredentialSubject: CredentialSubject{Hash: "b"}}},
	}}
	assert.Equal(t, []string{"a", "b"}, data.Hashes())
}

func TestStampDataKeepsRawCredential(t *testing.T) {
	credential := `{"type":["VerifiableCredential"],"issuer":"did:key:x","credentialSubject":{"id":"did:pkh:eip155:1:0x01","hash":"h1","extra":true},"proof":{"type":"x","jws":"sig","proofValue":""},"unknown":[1,2]}`

	var stamp StampData
	require.NoError(t, json.Unmarshal([]byte(`{"provider":"Google","credential":`+credential+`}`), &stamp))
	assert.Equal(t, "Google", stamp.Provider)
	assert.Equal(t, "h1", stamp.Credential.CredentialSubject.Hash)
	assert.Equal(t, credential, string(stamp.RawCredential))

	encoded, err := json.Marshal(PassportData{Stamps: []StampData{stamp}})
	require.NoError(t, err)

	var decoded PassportData
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Len(t, decoded.Stamps, 1)
	assert.Equal(t, credential, string(decoded.Stamps[0].RawCredential))

	payload, err := decoded.Stamps[0].CredentialPayload()
	require.NoError(t, err)
	assert.Equal(t, credential, string(payload))
}

func TestCredentialPayloadWithoutRaw(t *testing.T) {
	stamp := StampData{Provider: "Google", Credential: Credential{Issuer: "did:key:x"}}

	payload, err := stamp.CredentialPayload()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"issuer":"did:key:x"`)
}
