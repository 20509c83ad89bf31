package allocapi

import (
	"time"

	"github.com/cloudx-io/openalloc/core"
)

// Request and response type tags on the solver wire.
const (
	TypePing          = "ping"
	TypePong          = "pong"
	TypeKeyRequest    = "key_request"
	TypeKeyResponse   = "key_response"
	TypeSolveRequest  = "solve_request"
	TypeSolveResponse = "solve_response"
	TypeError         = "error"
)

// SealedCatalog is a catalog encrypted to the solver's public key with
// hybrid RSA-OAEP + AES-256-GCM. The plaintext is a SealedCatalogPayload.
type SealedCatalog struct {
	AESKeyEncrypted  string `json:"aes_key_encrypted"`        // base64-encoded RSA-OAEP encrypted AES key
	EncryptedPayload string `json:"encrypted_payload"`        // base64-encoded AES-GCM ciphertext
	Nonce            string `json:"nonce"`                    // base64-encoded GCM nonce (12 bytes)
	HashAlgorithm    string `json:"hash_algorithm,omitempty"` // "SHA-256" (default) or "SHA-1" for RSA-OAEP
}

// SealedCatalogPayload is the decrypted content of a SealedCatalog.
type SealedCatalogPayload struct {
	Catalog    *core.Catalog `json:"catalog"`
	SolveToken string        `json:"solve_token"` // single-use token from a key response
}

// KeyResponse carries the solver's public key, a single-use solve token and
// an attestation binding both to the running image.
type KeyResponse struct {
	Type                  string                `json:"type"`
	PublicKey             string                `json:"public_key"` // PEM format
	SolveToken            string                `json:"solve_token"`
	AttestationCOSEBase64 AttestationCOSEBase64 `json:"attestation_cose_base64"`
}

// KeyAttestationUserData is embedded in key attestations.
type KeyAttestationUserData struct {
	KeyAlgorithm string `json:"key_algorithm"` // e.g. "RSA-2048"
	PublicKey    string `json:"public_key"`
	SolveToken   string `json:"solve_token"`
}

// SolveRequest asks the solver to run the hill climb over a catalog.
type SolveRequest struct {
	Type          string         `json:"type"`
	RequestID     string         `json:"request_id"`
	Catalog       *core.Catalog  `json:"catalog,omitempty"`
	SealedCatalog *SealedCatalog `json:"sealed_catalog,omitempty"` // used when Catalog is nil
	MaxIterations int            `json:"max_iterations,omitempty"`
	Baseline      string         `json:"baseline,omitempty"` // "current" (default) or "zero"
	Timestamp     time.Time      `json:"timestamp"`
}

// SolveResponse carries the search outcome and its attestation.
type SolveResponse struct {
	Type                  string                `json:"type"`
	Success               bool                  `json:"success"`
	Message               string                `json:"message"`
	RunID                 string                `json:"run_id,omitempty"`
	Report                *RunReport            `json:"report,omitempty"`
	Sealed                bool                  `json:"sealed"`
	AttestationCOSEBase64 AttestationCOSEBase64 `json:"attestation_cose_base64,omitempty"`
	ProcessingTime        int64                 `json:"processing_time_ms"`
}

// AllocationView is the wire form of an allocation. A nil selection entry
// means the bidder has no bid selected.
type AllocationView struct {
	Selection []*int `json:"selection" cbor:"selection"`
	Occupied  []int  `json:"occupied" cbor:"occupied"`
	Score     int64  `json:"score" cbor:"score"`
}

// MoveView is the wire form of a single hill-climbing move.
type MoveView struct {
	Bidder int   `json:"bidder" cbor:"bidder"`
	From   *int  `json:"from" cbor:"from"`
	To     *int  `json:"to" cbor:"to"`
	Score  int64 `json:"score" cbor:"score"`
}

// RunReport summarizes one search run.
type RunReport struct {
	CatalogHash string         `json:"catalog_hash" cbor:"catalog_hash"`
	Initial     AllocationView `json:"initial" cbor:"initial"`
	Final       AllocationView `json:"final" cbor:"final"`
	Moves       []MoveView     `json:"moves" cbor:"moves"`
	Scores      []int64        `json:"scores" cbor:"scores"`
	GoalScore   int64          `json:"goal_score" cbor:"goal_score"`
	BoundRatio  string         `json:"bound_ratio" cbor:"bound_ratio"` // decimal, 4 places
	Iterations  int            `json:"iterations" cbor:"iterations"`
	StopReason  string         `json:"stop_reason" cbor:"stop_reason"`
}

// PCRs represents the Platform Configuration Registers from AWS Nitro Enclaves
type PCRs struct {
	// PCR0: Hash of the Enclave Image File (EIF)
	ImageFileHash string `json:"0"`

	// PCR1: Hash of the Linux kernel and initial RAM data (initramfs)
	KernelHash string `json:"1"`

	// PCR2: Hash of user applications, excluding the boot ramfs
	ApplicationHash string `json:"2"`
}

// AttestationDoc represents the structured attestation data produced by the NSM.
type AttestationDoc struct {
	ModuleID        string    `json:"module_id"`
	Timestamp       time.Time `json:"timestamp"`
	DigestAlgorithm string    `json:"digest"`
	PCRs            PCRs      `json:"pcrs"`

	// Certificate is the base64 DER signing certificate.
	Certificate string `json:"certificate"`
	// CABundle is the base64 DER intermediate chain.
	CABundle []string `json:"cabundle"`
	Nonce    string   `json:"nonce"`
}

// SolveAttestationDoc is an attestation over a solve result.
type SolveAttestationDoc struct {
	AttestationDoc
	UserData *SolveAttestationUserData `json:"user_data"`
}

// SolveAttestationUserData is the solve-specific data embedded in the attestation.
type SolveAttestationUserData struct {
	RunID           string    `json:"run_id"`
	RequestID       string    `json:"request_id"`
	CatalogHash     string    `json:"catalog_hash"`
	AllocationHash  string    `json:"allocation_hash"`
	AllocationNonce string    `json:"allocation_nonce"`
	Score           int64     `json:"score"`
	GoalScore       int64     `json:"goal_score"`
	Iterations      int       `json:"iterations"`
	StopReason      string    `json:"stop_reason"`
	Baseline        string    `json:"baseline"`
	Sealed          bool      `json:"sealed"`
	Timestamp       time.Time `json:"timestamp"`
}
