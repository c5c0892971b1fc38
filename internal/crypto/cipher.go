package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
)

// Algorithm tags the AEAD backend used for an EncryptedData blob. The tag
// is persisted, so values must never change.
type Algorithm string

const (
	AlgorithmAES256GCM        Algorithm = "aes-256-gcm"
	AlgorithmChaCha20Poly1305 Algorithm = "chacha20-poly1305"
)

const (
	// CurrentVersion is the only EncryptedData format this build can open.
	CurrentVersion uint8 = 1

	DefaultIterations uint32 = 100_000

	KeyLen  = 32
	SaltLen = 16
	TagLen  = 16
)

// ErrCleared is returned by SecureBytes.Use after Clear.
var ErrCleared = errors.New("secure buffer already cleared")

// ParseAlgorithm accepts the persisted tag and a few common spellings.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "aes-256-gcm", "aes256gcm", "AES256GCM", "aes":
		return AlgorithmAES256GCM, nil
	case "chacha20-poly1305", "chacha20poly1305", "ChaCha20Poly1305", "chacha":
		return AlgorithmChaCha20Poly1305, nil
	}
	return "", apperrors.Newf(apperrors.CodeInvalidArgument, "unknown encryption algorithm %q", s)
}

// NonceSize returns the nonce length the backend expects.
func (a Algorithm) NonceSize() (int, error) {
	switch a {
	case AlgorithmAES256GCM:
		return 12, nil
	case AlgorithmChaCha20Poly1305:
		return chacha20poly1305.NonceSize, nil
	}
	return 0, apperrors.Newf(apperrors.CodeKeyDerivation, "unsupported algorithm %q", a)
}

// newAEAD builds the backend for alg over key.
func newAEAD(alg Algorithm, key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, apperrors.Newf(apperrors.CodeKeyDerivation, "invalid key size: expected %d bytes, got %d", KeyLen, len(key))
	}
	switch alg {
	case AlgorithmAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}
		aesGCM, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		return aesGCM, nil
	case AlgorithmChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create ChaCha20-Poly1305: %w", err)
		}
		return aead, nil
	}
	return nil, apperrors.Newf(apperrors.CodeKeyDerivation, "unsupported algorithm %q", alg)
}

// DeriveKey stretches passphrase with PBKDF2-HMAC-SHA256. The returned
// buffer must be cleared by the caller.
func DeriveKey(passphrase, salt []byte, iterations uint32) (*SecureBytes, error) {
	if iterations == 0 {
		return nil, apperrors.New(apperrors.CodeKeyDerivation, "kdf iterations must be positive")
	}
	if len(salt) != SaltLen {
		return nil, apperrors.Newf(apperrors.CodeKeyDerivation, "invalid salt size: expected %d bytes, got %d", SaltLen, len(salt))
	}
	key := pbkdf2.Key(passphrase, salt, int(iterations), KeyLen, sha256.New)
	return takeSecureBytes(key), nil
}
