package main

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"

	"github.com/cloudx-io/openalloc/allocapi"
)

// HashAlgorithm selects the RSA-OAEP hash for sealed catalogs.
type HashAlgorithm string

const (
	HashAlgorithmSHA256 HashAlgorithm = "SHA-256"
	// HashAlgorithmSHA1 is accepted for older clients.
	HashAlgorithmSHA1 HashAlgorithm = "SHA-1"
)

const aesKeySize = 32 // AES-256

// GenerateRSAKeyPair generates a new RSA-2048 key pair.
// Inside an enclave crypto/rand draws from the NSM-seeded kernel pool.
func GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}
	return privateKey, nil
}

func newHash(hashAlg HashAlgorithm) (hash.Hash, error) {
	switch hashAlg {
	case "", HashAlgorithmSHA256:
		return sha256.New(), nil
	case HashAlgorithmSHA1:
		return sha1.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", hashAlg)
	}
}

type sealedParts struct {
	wrappedKey []byte
	ciphertext []byte
	nonce      []byte
}

func decodeSealed(sealed *allocapi.SealedCatalog) (*sealedParts, error) {
	wrappedKey, err := base64.StdEncoding.DecodeString(sealed.AESKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted AES key: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(sealed.EncryptedPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted payload: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(sealed.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	return &sealedParts{wrappedKey: wrappedKey, ciphertext: ciphertext, nonce: nonce}, nil
}

// OpenSealedCatalog decrypts a hybrid RSA-OAEP + AES-256-GCM envelope and
// returns the plaintext bytes.
//
// Parameters:
//   - sealed: base64 fields as sent by the client
//   - privateKey: the solver's RSA key from KeyManager
//
// An empty HashAlgorithm means SHA-256.
func OpenSealedCatalog(sealed *allocapi.SealedCatalog, privateKey *rsa.PrivateKey) ([]byte, error) {
	if sealed == nil {
		return nil, fmt.Errorf("sealed catalog is nil")
	}

	parts, err := decodeSealed(sealed)
	if err != nil {
		return nil, err
	}

	hasher, err := newHash(HashAlgorithm(sealed.HashAlgorithm))
	if err != nil {
		return nil, err
	}

	aesKey, err := rsa.DecryptOAEP(hasher, rand.Reader, privateKey, parts.wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt AES key: %w", err)
	}
	if len(aesKey) != aesKeySize {
		return nil, fmt.Errorf("invalid AES key length: expected %d bytes, got %d", aesKeySize, len(aesKey))
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(parts.nonce) != aesgcm.NonceSize() {
		return nil, fmt.Errorf("invalid nonce length: expected %d bytes, got %d", aesgcm.NonceSize(), len(parts.nonce))
	}

	plaintext, err := aesgcm.Open(nil, parts.nonce, parts.ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return plaintext, nil
}
