package validation

import "fmt"

// BaseValidationResult contains the checks shared by every attestation type.
type BaseValidationResult struct {
	PCRsValid         bool
	CertificateValid  bool
	SignatureValid    bool
	ValidationDetails []string
}

func (r *BaseValidationResult) detail(format string, args ...any) {
	r.ValidationDetails = append(r.ValidationDetails, fmt.Sprintf(format, args...))
}

// KeyValidationResult contains validation results specific to key attestations
type KeyValidationResult struct {
	BaseValidationResult
	PublicKeyMatch bool
}

// IsValid returns true if all key validation checks passed
func (r *KeyValidationResult) IsValid() bool {
	return r.PCRsValid && r.CertificateValid && r.SignatureValid && r.PublicKeyMatch
}

// SolveValidationResult contains validation results for an attested solve.
type SolveValidationResult struct {
	BaseValidationResult
	CatalogHashValid    bool // attested catalog hash matches the catalog in hand
	AllocationHashValid bool // claimed selection matches the attested commitment
	FeasibleValid       bool // claimed selection is conflict-free over the catalog
	ScoreValid          bool // claimed selection scores what the attestation says
}

// IsValid returns true if all solve validation checks passed
func (r *SolveValidationResult) IsValid() bool {
	return r.PCRsValid && r.CertificateValid && r.SignatureValid &&
		r.CatalogHashValid && r.AllocationHashValid && r.FeasibleValid && r.ScoreValid
}

// PCRSet pins one solver image build by its hex PCR0..PCR2 values.
type PCRSet struct {
	PCR0       string `json:"pcr0" yaml:"pcr0"`
	PCR1       string `json:"pcr1" yaml:"pcr1"`
	PCR2       string `json:"pcr2" yaml:"pcr2"`
	CommitHash string `json:"commit_hash" yaml:"commit_hash"` // commit the image was built from
}
