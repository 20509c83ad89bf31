package main

import (
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/openalloc/allocapi"
)

func TestKeyManager_PublicKeyPEM(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)
	check.Equal(t, 2048, km.PublicKey.N.BitLen())

	pemStr, err := km.PublicKeyPEM()
	assert.NoError(t, err)
	check.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	assert.NotNil(t, block)
	_, err = x509.ParsePKIXPublicKey(block.Bytes)
	check.NoError(t, err)
}

func TestHandleKeyRequest(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)
	tm := NewTokenManager()

	resp, err := HandleKeyRequest(CreateMockEnclave(t), km, tm)
	assert.NoError(t, err)

	check.Equal(t, allocapi.TypeKeyResponse, resp.Type)
	check.NotEqual(t, "", resp.SolveToken)
	check.Equal(t, 1, tm.Outstanding())

	coseBytes, err := resp.AttestationCOSEBase64.Decode()
	assert.NoError(t, err)
	_, userDataBytes, err := coseBytes.ParseAttestationDoc()
	assert.NoError(t, err)

	var userData allocapi.KeyAttestationUserData
	assert.NoError(t, json.Unmarshal(userDataBytes, &userData))
	check.Equal(t, "RSA-2048", userData.KeyAlgorithm)
	check.Equal(t, resp.PublicKey, userData.PublicKey)
	check.Equal(t, resp.SolveToken, userData.SolveToken)
}

func TestHandleKeyRequest_AttesterFailure(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)

	_, err = HandleKeyRequest(failingAttester(), km, NewTokenManager())
	check.Error(t, err)

	_, err = GenerateKeyAttestation(nil, "pem", "token")
	check.Error(t, err)
}
