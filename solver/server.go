package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/config"
)

const (
	defaultPort        = 5000
	readTimeout        = 30 * time.Second
	tokenSweepInterval = 10 * time.Second
	tokenMaxAge        = 5 * time.Minute
)

// SolverServer accepts one JSON request per vsock connection.
type SolverServer struct {
	port         uint32
	keyManager   *KeyManager
	tokenManager *TokenManager
	defaults     config.Search

	// attester is swapped out in tests.
	attester func() (EnclaveAttester, error)
}

func NewSolverServer(port uint32) *SolverServer {
	return &SolverServer{
		port:     port,
		defaults: config.Default(),
		attester: getEnclaveAttester,
	}
}

// loadSearchDefaults reads ALLOC_CONFIG when set, then applies ALLOC_* overrides.
func loadSearchDefaults() (config.Search, error) {
	settings := config.Default()
	if path := os.Getenv("ALLOC_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Search{}, err
		}
		settings = loaded
		log.Printf("INFO: Loaded search config from %s", path)
	}
	return settings.ApplyEnv(os.LookupEnv)
}

// getEnclaveAttester attempts to get the NSM attester, returns error if not available
func getEnclaveAttester() (EnclaveAttester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

func (s *SolverServer) Start(ctx context.Context) error {
	defaults, err := loadSearchDefaults()
	if err != nil {
		return fmt.Errorf("failed to load search config: %w", err)
	}
	s.defaults = defaults
	log.Printf("INFO: Search defaults: max_iterations=%d baseline=%s workers=%d",
		defaults.MaxIterations, defaults.Baseline, defaults.Workers)

	keyManager, err := NewKeyManager()
	if err != nil {
		return fmt.Errorf("failed to initialize key manager: %w", err)
	}
	s.keyManager = keyManager
	log.Printf("INFO: KeyManager initialized")

	s.tokenManager = NewTokenManager()
	s.tokenManager.StartExpirationCleanup(ctx, tokenSweepInterval, tokenMaxAge)
	log.Printf("INFO: Solve token expiration started (interval: %s, max age: %s)", tokenSweepInterval, tokenMaxAge)

	maxWorkers, err := getRequiredEnvInt("ALLOC_MAX_WORKERS")
	if err != nil {
		return fmt.Errorf("failed to get max workers config: %w", err)
	}
	if maxWorkers <= 0 {
		return fmt.Errorf("ALLOC_MAX_WORKERS must be positive, got %d", maxWorkers)
	}

	listener, err := vsock.Listen(s.port, nil)
	if err != nil {
		return fmt.Errorf("failed to create vsock listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	log.Printf("INFO: Solver listening on vsock port %d", s.port)
	return s.serve(ctx, listener, maxWorkers)
}

// serve accepts connections until ctx is done. When all workers are busy a
// connection is closed immediately instead of queued.
func (s *SolverServer) serve(ctx context.Context, listener net.Listener, maxWorkers int) error {
	semaphore := make(chan struct{}, maxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", maxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("ERROR: Failed to accept vsock connection: %v", err)
			continue
		}

		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *SolverServer) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	response := s.dispatch(buf.Bytes())

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}

func errorResponse(format string, args ...any) map[string]any {
	return map[string]any{
		"type":    allocapi.TypeError,
		"message": fmt.Sprintf(format, args...),
	}
}

// dispatch decodes one request and returns the response to encode.
func (s *SolverServer) dispatch(raw []byte) any {
	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &baseReq); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return errorResponse("Failed to decode request: %v", err)
	}

	log.Printf("INFO: Received request type: %s", baseReq.Type)

	switch baseReq.Type {
	case allocapi.TypePing:
		return map[string]any{
			"type":      allocapi.TypePong,
			"message":   "solver is healthy",
			"timestamp": time.Now().Unix(),
		}

	case allocapi.TypeKeyRequest:
		attester, err := s.attester()
		if err != nil {
			log.Printf("ERROR: Key request failed: %v", err)
			return errorResponse("Failed to initialize TEE attester: %v", err)
		}
		keyResp, err := HandleKeyRequest(attester, s.keyManager, s.tokenManager)
		if err != nil {
			log.Printf("ERROR: Key request failed: %v", err)
			return errorResponse("Key request failed: %v", err)
		}
		return keyResp

	case allocapi.TypeSolveRequest:
		var req allocapi.SolveRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			log.Printf("ERROR: Failed to decode solve request: %v", err)
			return errorResponse("Failed to decode solve request: %v", err)
		}
		attester, err := s.attester()
		if err != nil {
			log.Printf("ERROR: Solve failed: %v", err)
			return errorResponse("Failed to initialize TEE attester: %v", err)
		}
		return ProcessSolve(attester, req, s.defaults, s.keyManager, s.tokenManager)

	default:
		return errorResponse("Unknown request type: %s", baseReq.Type)
	}
}

// Helper function for required environment variable parsing
func getRequiredEnvInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("required environment variable %s is not set", key)
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, nil
}

func main() {
	server := NewSolverServer(defaultPort)
	log.Fatal(server.Start(context.Background()))
}
