package validation

import (
	"crypto/x509"
	"fmt"

	"github.com/cloudx-io/openalloc/allocapi"
)

// Verifier holds the trust configuration for attestation checks.
type Verifier struct {
	// Roots anchors the certificate chain. Nil means the AWS Nitro root.
	Roots *x509.CertPool
	// KnownPCRs pins the enclave image. When empty, PCRs are reported but
	// not enforced.
	KnownPCRs []PCRSet
}

func (v *Verifier) roots() (*x509.CertPool, error) {
	if v != nil && v.Roots != nil {
		return v.Roots, nil
	}
	return NitroRoots()
}

// validateCommon checks PCRs, the certificate chain and the COSE signature.
// It returns the parsed document and its raw user data for the
// type-specific checks.
func (v *Verifier) validateCommon(coseBytes allocapi.AttestationCOSE) (*BaseValidationResult, allocapi.AttestationDoc, []byte, error) {
	doc, userData, err := coseBytes.ParseAttestationDoc()
	if err != nil {
		return nil, allocapi.AttestationDoc{}, nil, fmt.Errorf("parse attestation document: %w", err)
	}

	result := &BaseValidationResult{ValidationDetails: []string{}}

	switch {
	case len(v.KnownPCRs) == 0:
		result.PCRsValid = true
		result.detail("PCR pinning disabled (PCR0: %s)", doc.PCRs.ImageFileHash)
	default:
		idx, match := v.matchPCRs(doc.PCRs)
		result.PCRsValid = match
		if match {
			result.detail("PCR measurements valid")
			result.detail("Matched PCR set: #%d (commit: %s)", idx, v.KnownPCRs[idx].CommitHash)
		} else {
			result.detail("PCR0: %s (no match)", doc.PCRs.ImageFileHash)
			result.detail("PCR1: %s (no match)", doc.PCRs.KernelHash)
			result.detail("PCR2: %s (no match)", doc.PCRs.ApplicationHash)
		}
	}

	switch {
	case doc.Certificate == "":
		result.detail("Missing certificate")
	case len(doc.CABundle) == 0:
		result.detail("Missing CA bundle")
	default:
		if err := v.verifyChain(doc); err != nil {
			result.detail("Certificate chain validation failed: %v", err)
		} else {
			result.CertificateValid = true
			result.detail("Certificate chain verified")
		}
	}

	if err := VerifyCOSESignature(coseBytes, doc.Certificate); err != nil {
		result.detail("COSE signature verification failed: %v", err)
	} else {
		result.SignatureValid = true
		result.detail("COSE signature verified")
	}

	return result, doc, userData, nil
}
