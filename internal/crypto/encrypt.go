package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
)

// EncryptedData is the persisted ciphertext envelope. Byte fields are
// base64 in JSON.
type EncryptedData struct {
	Ciphertext    []byte    `json:"ciphertext"`
	Nonce         []byte    `json:"nonce"`
	Salt          []byte    `json:"salt"`
	Algorithm     Algorithm `json:"algorithm"`
	KDFIterations uint32    `json:"kdf_iterations"`
	Version       uint8     `json:"version"`
}

// Service encrypts with one algorithm and iteration count. It holds no
// key material and is safe for concurrent use.
type Service struct {
	Algorithm  Algorithm
	Iterations uint32
}

// NewService returns a Service, applying defaults for zero values.
func NewService(alg Algorithm, iterations uint32) (*Service, error) {
	if alg == "" {
		alg = AlgorithmAES256GCM
	}
	if _, err := alg.NonceSize(); err != nil {
		return nil, err
	}
	if iterations == 0 {
		iterations = DefaultIterations
	}
	return &Service{Algorithm: alg, Iterations: iterations}, nil
}

// DefaultService is AES-256-GCM with 100k PBKDF2 rounds.
func DefaultService() *Service {
	return &Service{Algorithm: AlgorithmAES256GCM, Iterations: DefaultIterations}
}

// Encrypt seals plaintext under a key derived from passphrase.
// passphrase must be []byte for security (caller should zero it after use)
func (s *Service) Encrypt(plaintext, passphrase []byte) (*EncryptedData, error) {
	if len(passphrase) == 0 {
		return nil, apperrors.New(apperrors.CodeKeyDerivation, "passphrase cannot be empty")
	}
	nonceLen, err := s.Algorithm.NonceSize()
	if err != nil {
		return nil, err
	}

	// Generate salt and nonce
	salt := make([]byte, SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := DeriveKey(passphrase, salt, s.Iterations)
	if err != nil {
		return nil, err
	}
	defer key.Clear()

	var ciphertext []byte
	err = key.Use(func(k []byte) error {
		aead, err := newAEAD(s.Algorithm, k)
		if err != nil {
			return err
		}
		ciphertext = aead.Seal(nil, nonce, plaintext, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &EncryptedData{
		Ciphertext:    ciphertext,
		Nonce:         nonce,
		Salt:          salt,
		Algorithm:     s.Algorithm,
		KDFIterations: s.Iterations,
		Version:       CurrentVersion,
	}, nil
}

// Validate checks the envelope's structure without a passphrase.
func (d *EncryptedData) Validate() error {
	if d == nil {
		return apperrors.New(apperrors.CodeInvalidCiphertext, "encrypted data is nil")
	}
	if d.Version != CurrentVersion {
		return apperrors.Newf(apperrors.CodeUnsupportedVersion, "unsupported encrypted data version %d (supported: %d)", d.Version, CurrentVersion)
	}
	nonceLen, err := d.Algorithm.NonceSize()
	if err != nil {
		return err
	}
	if d.KDFIterations == 0 {
		return apperrors.New(apperrors.CodeKeyDerivation, "kdf iterations must be positive")
	}
	if len(d.Nonce) != nonceLen {
		return apperrors.Newf(apperrors.CodeInvalidCiphertext, "invalid nonce size: expected %d bytes, got %d", nonceLen, len(d.Nonce))
	}
	if len(d.Salt) != SaltLen {
		return apperrors.Newf(apperrors.CodeInvalidCiphertext, "invalid salt size: expected %d bytes, got %d", SaltLen, len(d.Salt))
	}
	if len(d.Ciphertext) < TagLen {
		return apperrors.New(apperrors.CodeInvalidCiphertext, "ciphertext is truncated")
	}
	return nil
}

// Clone returns a deep copy.
func (d *EncryptedData) Clone() *EncryptedData {
	if d == nil {
		return nil
	}
	out := *d
	out.Ciphertext = append([]byte(nil), d.Ciphertext...)
	out.Nonce = append([]byte(nil), d.Nonce...)
	out.Salt = append([]byte(nil), d.Salt...)
	return &out
}
