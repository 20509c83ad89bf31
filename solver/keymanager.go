package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/cloudx-io/openalloc/allocapi"
)

// KeyManager holds the solver's RSA key pair for sealed catalogs.
type KeyManager struct {
	privateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// NewKeyManager generates a fresh key pair. Keys live only in enclave memory
// and are replaced on restart.
func NewKeyManager() (*KeyManager, error) {
	privateKey, err := GenerateRSAKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// PublicKeyPEM returns the public key in PKIX PEM form.
func (km *KeyManager) PublicKeyPEM() (string, error) {
	return publicKeyToPEM(km.PublicKey)
}

func publicKeyToPEM(publicKey *rsa.PublicKey) (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: derBytes})), nil
}

// HandleKeyRequest issues a solve token and returns the public key with an
// attestation covering both.
func HandleKeyRequest(attester EnclaveAttester, keyManager *KeyManager, tokenManager *TokenManager) (*allocapi.KeyResponse, error) {
	publicKeyPEM, err := keyManager.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}

	solveToken := tokenManager.GenerateToken()

	attestation, err := GenerateKeyAttestation(attester, publicKeyPEM, solveToken)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key attestation: %w", err)
	}

	return &allocapi.KeyResponse{
		Type:                  allocapi.TypeKeyResponse,
		PublicKey:             publicKeyPEM,
		SolveToken:            solveToken,
		AttestationCOSEBase64: attestation.EncodeBase64(),
	}, nil
}
