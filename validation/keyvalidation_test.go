package validation

import (
	"encoding/base64"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/openalloc/allocapi"
)

const testPEM = "-----BEGIN PUBLIC KEY-----\nMIIB\n-----END PUBLIC KEY-----\n"

func TestValidateKeyAttestation(t *testing.T) {
	auth := newTestAuthority(t)
	v := &Verifier{Roots: auth.roots}

	attestation := auth.sign(t, allocapi.KeyAttestationUserData{
		KeyAlgorithm: "RSA-2048",
		PublicKey:    testPEM,
		SolveToken:   "token-1",
	}).EncodeBase64()

	result, err := v.ValidateKeyAttestation(attestation, "  "+testPEM+"\n")
	assert.NoError(t, err)
	check.True(t, result.PublicKeyMatch)
	check.True(t, result.IsValid())

	result, err = v.ValidateKeyAttestation(attestation, "-----BEGIN PUBLIC KEY-----\nOTHER\n-----END PUBLIC KEY-----")
	assert.NoError(t, err)
	check.False(t, result.PublicKeyMatch)
	check.False(t, result.IsValid())
}

func TestValidateKeyAttestation_MissingKey(t *testing.T) {
	auth := newTestAuthority(t)

	result, err := (&Verifier{Roots: auth.roots}).ValidateKeyAttestation(auth.sign(t, nil).EncodeBase64(), testPEM)
	assert.NoError(t, err)
	check.False(t, result.PublicKeyMatch)
	check.True(t, hasDetail(result.ValidationDetails, "missing"))
}

func TestValidateKeyAttestation_BadBase64(t *testing.T) {
	_, err := ValidateKeyAttestation("%%%", testPEM)
	check.Error(t, err)
}

func TestVerifyCOSESignature_Errors(t *testing.T) {
	auth := newTestAuthority(t)
	attestation := auth.sign(t, nil)

	check.NoError(t, VerifyCOSESignature(attestation, base64.StdEncoding.EncodeToString(auth.leafDER)))

	// signed by the leaf, not the root
	check.Error(t, VerifyCOSESignature(attestation, base64.StdEncoding.EncodeToString(auth.rootDER)))
	check.Error(t, VerifyCOSESignature(attestation, "not base64!"))
	check.Error(t, VerifyCOSESignature(attestation, base64.StdEncoding.EncodeToString([]byte("not a cert"))))
	check.Error(t, VerifyCOSESignature([]byte{0x80}, base64.StdEncoding.EncodeToString(auth.leafDER)))
}
