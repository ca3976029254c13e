// File: backend/services/impersonation-service/internal/infrastructure/security/vault.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
)

// CredentialVault seals and unseals credential strings for at-rest storage.
type CredentialVault interface {
	// Seal encrypts plaintext, returning a self-contained ciphertext string.
	Seal(plainText string) (string, error)
	// Unseal decrypts a ciphertext produced by Seal. Malformed, truncated or
	// tampered input fails with domainErrors.ErrDecryptionFailed.
	Unseal(cipherText string) (string, error)
}

// aesGCMVault implements CredentialVault using AES-256-GCM. The key is
// process-wide configuration parsed once at construction; it is never logged.
type aesGCMVault struct {
	key []byte
}

// NewAESGCMVault creates a vault from a hex-encoded 32-byte key (64 hex
// characters).
func NewAESGCMVault(keyHex string) (CredentialVault, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex vault key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("invalid vault key length: must be 32 bytes for AES-256")
	}
	return &aesGCMVault{key: key}, nil
}

// Seal encrypts plaintext with a fresh random nonce per call. Output is
// base64(nonce || ciphertext || tag), so Unseal needs no external nonce
// bookkeeping.
func (v *aesGCMVault) Seal(plainText string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	cipherText := gcm.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, cipherText...)), nil
}

// Unseal decrypts a Seal output. Every failure mode collapses to
// ErrDecryptionFailed so callers can treat the credentials as unrecoverable
// without branching on cipher internals.
func (v *aesGCMVault) Unseal(cipherTextBase64 string) (string, error) {
	nonceAndCiphertext, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode base64 ciphertext", domainErrors.ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(nonceAndCiphertext) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short to contain nonce", domainErrors.ErrDecryptionFailed)
	}

	nonce, actualCiphertext := nonceAndCiphertext[:nonceSize], nonceAndCiphertext[nonceSize:]

	plainTextBytes, err := gcm.Open(nil, nonce, actualCiphertext, nil)
	if err != nil {
		// Authentication failure covers both tampering and a wrong key; never
		// return wrong plaintext silently.
		return "", fmt.Errorf("%w: integrity verification failed", domainErrors.ErrDecryptionFailed)
	}

	return string(plainTextBytes), nil
}

var _ CredentialVault = (*aesGCMVault)(nil)
