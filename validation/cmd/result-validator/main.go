package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/core"
	"github.com/cloudx-io/openalloc/loader"
	"github.com/cloudx-io/openalloc/validation"
)

// plainTextHandler is a simple slog handler that writes plain text to stdout
// without timestamps or log levels - appropriate for CLI output
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

const (
	modeSolve = "solve"
	modeKey   = "key"
)

func main() {
	var (
		mode         = flag.String("mode", modeSolve, "What to validate: solve (attested result) or key (sealing key)")
		responsePath = flag.String("response", "", "Path to the solve or key response JSON file (required)")
		catalogPath  = flag.String("catalog", "", "Path to the submitted catalog, text or .json (solve mode)")
		publicKey    = flag.String("public-key", "", "Public key PEM to compare (key mode, default: the key in the response)")
		rootsPath    = flag.String("roots", "", "PEM file with trusted root CAs (default: AWS Nitro root)")
		pcrsPath     = flag.String("pcrs", "", "YAML or JSON file with known PCR sets (default: no pinning)")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	missing := *responsePath == "" || (*mode == modeSolve && *catalogPath == "")
	if *help || missing {
		showUsage()
		if missing {
			os.Exit(1)
		}
		os.Exit(0)
	}

	verifier, err := validation.LoadVerifier(*rootsPath, *pcrsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading trust settings: %v\n", err)
		os.Exit(2)
	}

	var sum *summary
	switch *mode {
	case modeSolve:
		sum, err = validateSolve(verifier, *responsePath, *catalogPath)
	case modeKey:
		sum, err = validateKey(verifier, *responsePath, *publicKey)
	default:
		err = fmt.Errorf("unknown mode %q (want %s or %s)", *mode, modeSolve, modeKey)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		if err := sum.writeJSON(); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		sum.writeText()
	}

	if !sum.valid {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	logger.Info("Solver Attestation Validator")
	logger.Info("")
	logger.Info("solve: checks that an attested result belongs to the submitted catalog")
	logger.Info("       and that the reported selection is feasible and scores as attested.")
	logger.Info("key:   checks that the sealing key was generated inside the solver enclave.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  result-validator --response <path> --catalog <path> [options]")
	logger.Info("  result-validator --mode key --response <path> [--public-key <pem>] [options]")
	logger.Info("")
	logger.Info("Flags:")
	logger.Info("  --mode <solve|key>                What to validate (default: solve)")
	logger.Info("  --response <path>                 Solve or key response JSON file (required)")
	logger.Info("  --catalog <path>                  Catalog as submitted, text or .json (required for solve)")
	logger.Info("  --public-key <path>               Expected key PEM (key mode, default: key in the response)")
	logger.Info("  --roots <path>                    Trusted root CAs, PEM (default: AWS Nitro root)")
	logger.Info("  --pcrs <path>                     Known PCR sets, YAML or JSON (default: no pinning)")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Validation passed")
	logger.Info("  1 - Validation failed")
	logger.Info("  2 - Invalid input or runtime error")
}

// checkRow is one named boolean in the summary.
type checkRow struct {
	label string
	key   string
	ok    bool
}

// summary is the mode-independent report both modes print.
type summary struct {
	title   string
	checks  []checkRow
	details []string
	valid   bool
}

func baseChecks(r validation.BaseValidationResult) []checkRow {
	return []checkRow{
		{"PCRs Valid", "pcrs_valid", r.PCRsValid},
		{"Certificate Valid", "certificate_valid", r.CertificateValid},
		{"Signature Valid", "signature_valid", r.SignatureValid},
	}
}

func validateSolve(v *validation.Verifier, responsePath, catalogPath string) (*summary, error) {
	input, err := buildSolveInput(responsePath, catalogPath)
	if err != nil {
		return nil, err
	}

	result, err := v.ValidateSolveAttestation(input)
	if err != nil {
		return nil, err
	}

	return &summary{
		title: "Solve Result Validator",
		checks: append(baseChecks(result.BaseValidationResult),
			checkRow{"Catalog Hash Valid", "catalog_hash_valid", result.CatalogHashValid},
			checkRow{"Allocation Hash Valid", "allocation_hash_valid", result.AllocationHashValid},
			checkRow{"Feasible", "feasible", result.FeasibleValid},
			checkRow{"Score Valid", "score_valid", result.ScoreValid},
		),
		details: result.ValidationDetails,
		valid:   result.IsValid(),
	}, nil
}

func validateKey(v *validation.Verifier, responsePath, publicKeyPath string) (*summary, error) {
	data, err := os.ReadFile(responsePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key response: %w", err)
	}
	var resp allocapi.KeyResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse key response JSON: %w", err)
	}
	if resp.AttestationCOSEBase64 == "" {
		return nil, fmt.Errorf("missing attestation_cose_base64 field in key response")
	}

	expected := resp.PublicKey
	if publicKeyPath != "" {
		pemData, err := os.ReadFile(publicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		expected = string(pemData)
	}

	result, err := v.ValidateKeyAttestation(resp.AttestationCOSEBase64, expected)
	if err != nil {
		return nil, err
	}

	return &summary{
		title: "Solver Key Validator",
		checks: append(baseChecks(result.BaseValidationResult),
			checkRow{"Public Key Match", "public_key_match", result.PublicKeyMatch},
		),
		details: result.ValidationDetails,
		valid:   result.IsValid(),
	}, nil
}

func buildSolveInput(responsePath, catalogPath string) (*validation.SolveValidationInput, error) {
	data, err := os.ReadFile(responsePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp allocapi.SolveResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if resp.AttestationCOSEBase64 == "" {
		return nil, fmt.Errorf("missing attestation_cose_base64 field in solve response")
	}
	if resp.Report == nil {
		return nil, fmt.Errorf("missing report field in solve response")
	}

	attestation, err := resp.AttestationCOSEBase64.Decode()
	if err != nil {
		return nil, err
	}

	selection, err := resp.Report.Final.Choices()
	if err != nil {
		return nil, fmt.Errorf("invalid final selection: %w", err)
	}

	catalog, err := readCatalog(catalogPath)
	if err != nil {
		return nil, err
	}

	return &validation.SolveValidationInput{
		Attestation: attestation,
		Catalog:     catalog,
		Selection:   selection,
	}, nil
}

func readCatalog(path string) (*core.Catalog, error) {
	if filepath.Ext(path) != ".json" {
		return loader.LoadFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var catalog core.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return &catalog, nil
}

func (s *summary) writeText() {
	rule := "=============================="
	logger.Info(s.title)
	logger.Info(rule)
	logger.Info("")

	logger.Info("Details:")
	for _, d := range s.details {
		logger.Info("  " + d)
	}

	logger.Info("")
	logger.Info("Summary:")
	for _, c := range s.checks {
		logger.Info(fmt.Sprintf("  %-22s %v", c.label+":", c.ok))
	}

	logger.Info("")
	logger.Info(rule)
	if s.valid {
		logger.Info("VALIDATION: ✓ PASSED")
	} else {
		logger.Info("VALIDATION: ✗ FAILED")
	}
}

func (s *summary) writeJSON() error {
	output := map[string]any{
		"valid":   s.valid,
		"details": s.details,
	}
	for _, c := range s.checks {
		output[c.key] = c.ok
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
