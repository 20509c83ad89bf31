package validation

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/allocapi/parsing"
)

// VerifyCOSESignature verifies the ES384 signature of an untagged COSE_Sign1
// message against the public key of the given base64 DER certificate.
func VerifyCOSESignature(coseBytes allocapi.AttestationCOSE, certB64 string) error {
	cert, err := parseCertificate(certB64)
	if err != nil {
		return err
	}

	// AWS Nitro uses ES384 (ECDSA P-384 with SHA-384)
	ecdsaKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("certificate public key is not ECDSA")
	}

	msg, err := parsing.SplitCOSESign1(coseBytes)
	if err != nil {
		return err
	}

	sigStructure, err := msg.SigStructure()
	if err != nil {
		return err
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES384, ecdsaKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	if err := verifier.Verify(sigStructure, msg.Signature); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}

	return nil
}
