package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/config"
	"github.com/cloudx-io/openalloc/core"
)

const (
	// maxIterationsLimit bounds what a client may request per solve.
	maxIterationsLimit = 10000
	// maxUnitsLimit bounds the unit space of a single catalog.
	maxUnitsLimit = 1 << 20
)

// ProcessSolve runs the hill climb for one request and attests the result.
// Failures are reported in the response, never as a Go error. Fields the
// request leaves unset fall back to defaults.
//
// Processing flow:
//  1. Resolve the catalog (plaintext or sealed + solve token)
//  2. Validate the catalog and search options
//  3. Search
//  4. Attest run id, catalog hash and committed selection
func ProcessSolve(attester EnclaveAttester, req allocapi.SolveRequest, defaults config.Search, keyManager *KeyManager, tokenManager *TokenManager) allocapi.SolveResponse {
	startTime := time.Now()

	fail := func(format string, args ...any) allocapi.SolveResponse {
		msg := fmt.Sprintf(format, args...)
		log.Printf("INFO: Solve %s rejected: %s", req.RequestID, msg)
		return allocapi.SolveResponse{
			Type:           allocapi.TypeSolveResponse,
			Success:        false,
			Message:        msg,
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	catalog, sealed, err := resolveCatalog(req, keyManager, tokenManager)
	if err != nil {
		return fail("%v", err)
	}
	if err := catalog.Validate(); err != nil {
		return fail("invalid catalog: %v", err)
	}
	if catalog.NumUnits > maxUnitsLimit {
		return fail("num_units %d exceeds limit %d", catalog.NumUnits, maxUnitsLimit)
	}

	settings := defaults
	if req.Baseline != "" {
		settings.Baseline = req.Baseline
	}
	if req.MaxIterations != 0 {
		settings.MaxIterations = req.MaxIterations
	}
	if settings.MaxIterations < 0 || settings.MaxIterations > maxIterationsLimit {
		return fail("max_iterations %d out of range [0, %d]", settings.MaxIterations, maxIterationsLimit)
	}
	opts, err := settings.Options()
	if err != nil {
		return fail("%v", err)
	}

	log.Printf("INFO: Processing solve %s: %d bidders, %d bids, %d units",
		req.RequestID, len(catalog.Bidders), catalog.TotalBids(), catalog.NumUnits)

	result := core.Search(catalog, opts)

	runID := uuid.NewString()
	attestation, err := GenerateSolveAttestation(attester, req, catalog, runID, opts.Baseline, sealed, result)
	processingTime := time.Since(startTime).Milliseconds()

	log.Printf("INFO: Solve complete: run=%s score=%d goal=%d iterations=%d stop=%s processing=%dms",
		runID, result.Score, result.GoalScore, result.Iterations, result.Stop, processingTime)

	if err != nil {
		log.Printf("ERROR: Attestation failed for run %s: %v", runID, err)
		return allocapi.SolveResponse{
			Type:           allocapi.TypeSolveResponse,
			Success:        false,
			Message:        fmt.Sprintf("Solve completed but attestation failed: %v", err),
			RunID:          runID,
			ProcessingTime: processingTime,
		}
	}

	return allocapi.SolveResponse{
		Type:                  allocapi.TypeSolveResponse,
		Success:               true,
		Message:               fmt.Sprintf("Search stopped: %s", result.Stop),
		RunID:                 runID,
		Report:                allocapi.NewRunReport(catalog, result),
		Sealed:                sealed,
		AttestationCOSEBase64: attestation.EncodeBase64(),
		ProcessingTime:        processingTime,
	}
}

// resolveCatalog returns the request's catalog and whether it arrived sealed.
func resolveCatalog(req allocapi.SolveRequest, keyManager *KeyManager, tokenManager *TokenManager) (*core.Catalog, bool, error) {
	if req.Catalog != nil {
		if req.SealedCatalog != nil {
			return nil, false, fmt.Errorf("request carries both catalog and sealed_catalog")
		}
		return req.Catalog, false, nil
	}
	if req.SealedCatalog == nil {
		return nil, false, fmt.Errorf("request carries no catalog")
	}
	if keyManager == nil || tokenManager == nil {
		return nil, true, fmt.Errorf("sealed catalogs are not supported: no key manager")
	}

	plaintext, err := OpenSealedCatalog(req.SealedCatalog, keyManager.privateKey)
	if err != nil {
		return nil, true, fmt.Errorf("failed to open sealed catalog: %w", err)
	}

	var payload allocapi.SealedCatalogPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, true, fmt.Errorf("invalid sealed catalog payload: %w", err)
	}
	if payload.Catalog == nil {
		return nil, true, fmt.Errorf("sealed catalog payload has no catalog")
	}
	if !tokenManager.ValidateAndConsumeToken(payload.SolveToken) {
		log.Printf("WARNING: Sealed catalog for %s carried an invalid or consumed solve token", req.RequestID)
		return nil, true, fmt.Errorf("invalid or consumed solve token")
	}

	return payload.Catalog, true, nil
}
