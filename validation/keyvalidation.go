package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudx-io/openalloc/allocapi"
)

// ValidateKeyAttestation validates a solver key attestation against the
// Nitro root.
//
// Parameters:
//   - attestationCOSEBase64: KeyResponse.AttestationCOSEBase64
//   - expectedPublicKey: PEM public key (KeyResponse.PublicKey)
//
// Returns:
//   - KeyValidationResult (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (malformed input)
func ValidateKeyAttestation(attestationCOSEBase64 allocapi.AttestationCOSEBase64, expectedPublicKey string) (*KeyValidationResult, error) {
	return (&Verifier{}).ValidateKeyAttestation(attestationCOSEBase64, expectedPublicKey)
}

// ValidateKeyAttestation is the package function with this verifier's trust settings.
func (v *Verifier) ValidateKeyAttestation(attestationCOSEBase64 allocapi.AttestationCOSEBase64, expectedPublicKey string) (*KeyValidationResult, error) {
	coseBytes, err := attestationCOSEBase64.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode COSE bytes: %w", err)
	}

	base, _, userDataBytes, err := v.validateCommon(coseBytes)
	if err != nil {
		return nil, err
	}

	var userData allocapi.KeyAttestationUserData
	if len(userDataBytes) > 0 {
		if err := json.Unmarshal(userDataBytes, &userData); err != nil {
			return nil, fmt.Errorf("parse user data: %w", err)
		}
	}

	result := &KeyValidationResult{BaseValidationResult: *base}

	switch {
	case userData.PublicKey == "":
		result.detail("Public key missing from attestation")
	case strings.TrimSpace(expectedPublicKey) == strings.TrimSpace(userData.PublicKey):
		result.PublicKeyMatch = true
		result.detail("Public key matches attestation")
	default:
		result.detail("Public key mismatch: provided key does not match attested key")
	}

	return result, nil
}
