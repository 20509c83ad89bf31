package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/core"
)

// EnclaveAttester interface for dependency injection and testing
type EnclaveAttester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// generateNonce returns 32 random bytes, hex encoded.
func generateNonce() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("entropy generation failed: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// GenerateSolveAttestation binds a search result to the catalog it was run
// on. The final selection is committed to via a nonce-salted hash so the
// attestation alone does not reveal it.
func GenerateSolveAttestation(
	attester EnclaveAttester,
	req allocapi.SolveRequest,
	catalog *core.Catalog,
	runID string,
	baseline core.Baseline,
	sealed bool,
	result *core.SearchResult,
) (allocapi.AttestationCOSE, error) {
	allocationNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate allocation nonce: %w", err)
	}

	userData := &allocapi.SolveAttestationUserData{
		RunID:           runID,
		RequestID:       req.RequestID,
		CatalogHash:     core.ComputeCatalogHash(catalog),
		AllocationHash:  core.ComputeAllocationHash(result.Final.Choices(), allocationNonce),
		AllocationNonce: allocationNonce,
		Score:           result.Score,
		GoalScore:       result.GoalScore,
		Iterations:      result.Iterations,
		StopReason:      string(result.Stop),
		Baseline:        string(baseline),
		Sealed:          sealed,
		Timestamp:       time.Now(),
	}

	return attest(attester, userData, "solve")
}

// GenerateKeyAttestation attests the solver's public key and a solve token.
func GenerateKeyAttestation(attester EnclaveAttester, publicKeyPEM, solveToken string) (allocapi.AttestationCOSE, error) {
	userData := &allocapi.KeyAttestationUserData{
		KeyAlgorithm: "RSA-2048",
		PublicKey:    publicKeyPEM,
		SolveToken:   solveToken,
	}
	return attest(attester, userData, "key")
}

func attest(attester EnclaveAttester, userData any, kind string) (allocapi.AttestationCOSE, error) {
	if attester == nil {
		return nil, fmt.Errorf("enclave attester is nil")
	}

	userDataBytes, err := json.Marshal(userData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user data: %w", err)
	}

	randomNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(randomNonce),
	})
	if err != nil {
		log.Printf("ERROR: NSM %s attestation failed: %v", kind, err)
		return nil, fmt.Errorf("NSM attestation failed: %w", err)
	}

	log.Printf("INFO: NSM %s attestation generated: %d bytes", kind, len(attestationCBOR))
	return allocapi.AttestationCOSE(attestationCBOR), nil
}
