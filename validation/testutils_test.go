package validation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/core"
)

// testAuthority is a throwaway root CA and enclave signing key.
type testAuthority struct {
	roots   *x509.CertPool
	rootDER []byte
	leafDER []byte
	leafKey *ecdsa.PrivateKey
	issued  time.Time
}

func newTestAuthority(t *testing.T) *testAuthority {
	t.Helper()
	now := time.Now().Truncate(time.Millisecond)

	rootKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("root key: %v", err)
	}
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-root"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("root cert: %v", err)
	}
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("parse root: %v", err)
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("leaf key: %v", err)
	}
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "test-enclave"},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, rootCert, &leafKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("leaf cert: %v", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(rootCert)

	return &testAuthority{roots: roots, rootDER: rootDER, leafDER: leafDER, leafKey: leafKey, issued: now}
}

var testPCRs = map[uint64][]byte{
	0: {0x00, 0x01},
	1: {0x10, 0x11},
	2: {0x20, 0x21},
}

// sign builds a Nitro-shaped COSE_Sign1 attestation over userData.
func (a *testAuthority) sign(t *testing.T, userData any) allocapi.AttestationCOSE {
	t.Helper()

	var userDataBytes []byte
	if userData != nil {
		b, err := json.Marshal(userData)
		if err != nil {
			t.Fatalf("user data: %v", err)
		}
		userDataBytes = b
	}

	payload, err := cbor.Marshal(map[string]any{
		"module_id":   "test-solver",
		"digest":      "SHA384",
		"timestamp":   uint64(a.issued.UnixMilli()),
		"pcrs":        testPCRs,
		"certificate": a.leafDER,
		"cabundle":    [][]byte{a.rootDER},
		"user_data":   userDataBytes,
		"nonce":       []byte("nonce"),
	})
	if err != nil {
		t.Fatalf("payload: %v", err)
	}

	protected, err := cbor.Marshal(map[int]int{1: int(cose.AlgorithmES384)})
	if err != nil {
		t.Fatalf("protected: %v", err)
	}

	sigStructure, err := cbor.Marshal([]any{"Signature1", protected, []byte{}, payload})
	if err != nil {
		t.Fatalf("sig structure: %v", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmES384, a.leafKey)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	signature, err := signer.Sign(rand.Reader, sigStructure)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	coseBytes, err := cbor.Marshal([]any{protected, map[any]any{}, payload, signature})
	if err != nil {
		t.Fatalf("cose: %v", err)
	}
	return allocapi.AttestationCOSE(coseBytes)
}

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

// honestSolve runs the search and builds the user data an honest solver
// would attest.
func honestSolve(c *core.Catalog) ([]core.Choice, allocapi.SolveAttestationUserData) {
	result := core.Search(c, core.SearchOptions{})
	choices := result.Final.Choices()
	const nonce = "allocation-nonce"

	return choices, allocapi.SolveAttestationUserData{
		RunID:           "run-1",
		RequestID:       "req-1",
		CatalogHash:     core.ComputeCatalogHash(c),
		AllocationHash:  core.ComputeAllocationHash(choices, nonce),
		AllocationNonce: nonce,
		Score:           result.Score,
		GoalScore:       result.GoalScore,
		Iterations:      result.Iterations,
		StopReason:      string(result.Stop),
		Baseline:        string(core.BaselineCurrent),
	}
}
