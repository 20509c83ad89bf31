package main

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/core"
)

// MockEnclaveHandle implements the Attest method for testing
type MockEnclaveHandle struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
}

func (m *MockEnclaveHandle) Attest(options enclave.AttestationOptions) ([]byte, error) {
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

// CreateMockEnclave returns an attester producing Nitro-shaped COSE
// documents with a dummy signature.
func CreateMockEnclave(t *testing.T) *MockEnclaveHandle {
	t.Helper()
	return &MockEnclaveHandle{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			nestedDoc := map[string]any{
				"module_id": "test-solver-12345",
				"digest":    "SHA384",
				"timestamp": uint64(1234567890),
				"pcrs": map[uint64][]byte{
					0: bytes.Repeat([]byte{0x3b}, 48),
					1: bytes.Repeat([]byte{0x4b}, 48),
					2: bytes.Repeat([]byte{0x2b}, 48),
				},
				"certificate": []byte("test-certificate-data"),
				"cabundle":    [][]byte{[]byte("test-ca-cert")},
				"public_key":  []byte("test-public-key-data"),
				"user_data":   options.UserData,
				"nonce":       options.Nonce,
			}

			nestedBytes, err := cbor.Marshal(nestedDoc)
			if err != nil {
				return nil, err
			}

			return cbor.Marshal([]any{
				[]byte{0x01, 0x02, 0x03},
				map[string]any{},
				nestedBytes,
				[]byte{0x04, 0x05, 0x06},
			})
		},
	}
}

func failingAttester() *MockEnclaveHandle {
	return &MockEnclaveHandle{
		AttestFunc: func(enclave.AttestationOptions) ([]byte, error) {
			return nil, fmt.Errorf("nsm device unavailable")
		},
	}
}

// parseSolveAttestation decodes the base64 attestation of a response.
func parseSolveAttestation(t *testing.T, encoded allocapi.AttestationCOSEBase64) *allocapi.SolveAttestationDoc {
	t.Helper()

	coseBytes, err := encoded.Decode()
	if err != nil {
		t.Fatalf("Failed to decode attestation: %v", err)
	}
	doc, err := coseBytes.ParseSolveAttestation()
	if err != nil {
		t.Fatalf("Failed to parse attestation: %v", err)
	}
	if doc.UserData == nil {
		t.Fatalf("attestation carries no user data")
	}
	return doc
}

// contestedCatalog: greedy start 6, one improving move to 9, goal bound 15.
func contestedCatalog() *core.Catalog {
	return &core.Catalog{
		NumUnits: 5,
		Bidders: []core.Bidder{
			{ID: 1, Bids: []core.Bid{{ID: 1, Value: 4, Units: []int{1, 2}}, {ID: 2, Value: 3, Units: []int{5}}}},
			{ID: 2, Bids: []core.Bid{{ID: 1, Value: 6, Units: []int{2, 3}}}},
			{ID: 3, Bids: []core.Bid{{ID: 1, Value: 2, Units: []int{3, 4}}, {ID: 2, Value: 5, Units: []int{4}}}},
			{ID: 4},
		},
	}
}

// sealPayload encrypts payload the way a client would for the solver.
func sealPayload(t *testing.T, publicKey *rsa.PublicKey, payload any) *allocapi.SealedCatalog {
	t.Helper()

	plaintext, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	aesKey := make([]byte, 32)
	nonce := make([]byte, 12)
	if _, err := rand.Read(aesKey); err != nil {
		t.Fatalf("aes key: %v", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		t.Fatalf("nonce: %v", err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		t.Fatalf("aes cipher: %v", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("gcm: %v", err)
	}
	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, aesKey, nil)
	if err != nil {
		t.Fatalf("wrap key: %v", err)
	}

	return &allocapi.SealedCatalog{
		AESKeyEncrypted:  base64.StdEncoding.EncodeToString(wrappedKey),
		EncryptedPayload: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:            base64.StdEncoding.EncodeToString(nonce),
	}
}
