package validation

import (
	"encoding/json"
	"fmt"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/core"
)

// SolveValidationInput is what a client holds after a solve: the attestation,
// the catalog it submitted and the selection the solver reported.
type SolveValidationInput struct {
	Attestation allocapi.AttestationCOSE
	Catalog     *core.Catalog
	Selection   []core.Choice
}

// ValidateSolveAttestation checks an attested solve against the AWS Nitro
// root with no PCR pinning. Use a Verifier for other trust settings.
//
// Checks:
//   - signature, certificate chain and PCRs of the attestation
//   - the attested catalog hash equals the hash of input.Catalog
//   - input.Selection matches the attested allocation hash
//   - input.Selection is conflict-free over input.Catalog
//   - input.Selection scores the attested score
func ValidateSolveAttestation(input *SolveValidationInput) (*SolveValidationResult, error) {
	return (&Verifier{}).ValidateSolveAttestation(input)
}

// ValidateSolveAttestation is the package function with this verifier's trust settings.
func (v *Verifier) ValidateSolveAttestation(input *SolveValidationInput) (*SolveValidationResult, error) {
	if input == nil || input.Catalog == nil {
		return nil, fmt.Errorf("validation input requires a catalog")
	}

	base, _, userDataBytes, err := v.validateCommon(input.Attestation)
	if err != nil {
		return nil, err
	}

	result := &SolveValidationResult{BaseValidationResult: *base}

	if len(userDataBytes) == 0 {
		result.detail("Attestation user data missing")
		return result, nil
	}

	var userData allocapi.SolveAttestationUserData
	if err := json.Unmarshal(userDataBytes, &userData); err != nil {
		return nil, fmt.Errorf("parse user data: %w", err)
	}

	result.CatalogHashValid = validateCatalogHash(input, &userData, result)
	result.AllocationHashValid = validateAllocationHash(input, &userData, result)
	result.FeasibleValid, result.ScoreValid = validateSelection(input, &userData, result)

	return result, nil
}

func validateCatalogHash(input *SolveValidationInput, userData *allocapi.SolveAttestationUserData, result *SolveValidationResult) bool {
	computed := core.ComputeCatalogHash(input.Catalog)
	if computed == userData.CatalogHash {
		result.detail("Catalog hash validation passed: %s", computed)
		return true
	}
	result.detail("Catalog hash mismatch: computed %s, attestation has %s", computed, userData.CatalogHash)
	return false
}

func validateAllocationHash(input *SolveValidationInput, userData *allocapi.SolveAttestationUserData, result *SolveValidationResult) bool {
	if userData.AllocationNonce == "" {
		result.detail("Allocation hash nonce missing from attestation")
		return false
	}

	computed := core.ComputeAllocationHash(input.Selection, userData.AllocationNonce)
	if computed == userData.AllocationHash {
		result.detail("Allocation hash validation passed: %s", computed)
		return true
	}
	result.detail("Allocation hash mismatch: computed %s, attestation has %s", computed, userData.AllocationHash)
	return false
}

// validateSelection rebuilds the allocation to check feasibility, then
// compares its score. An infeasible selection has no meaningful score.
func validateSelection(input *SolveValidationInput, userData *allocapi.SolveAttestationUserData, result *SolveValidationResult) (feasible, scoreOK bool) {
	alloc, err := core.NewAllocation(input.Catalog, input.Selection)
	if err != nil {
		result.detail("Selection is not feasible: %v", err)
		result.detail("Score validation skipped: selection is not feasible")
		return false, false
	}
	result.detail("Selection is conflict-free")

	score := core.Score(alloc, input.Catalog)
	if score == userData.Score {
		result.detail("Score validation passed: %d (goal bound %d)", score, userData.GoalScore)
		return true, true
	}
	result.detail("Score mismatch: selection scores %d, attestation has %d", score, userData.Score)
	return true, false
}
