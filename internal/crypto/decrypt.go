package crypto

import (
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
)

// Decrypt opens blob with a key derived from passphrase and the blob's own
// salt and iteration count. The backend is chosen by blob.Algorithm, not by
// the service configuration. The plaintext is returned in a guarded buffer.
// passphrase must be []byte for security (caller should zero it after use)
func Decrypt(blob *EncryptedData, passphrase []byte) (*SecureBytes, error) {
	if err := blob.Validate(); err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, apperrors.New(apperrors.CodeKeyDerivation, "passphrase cannot be empty")
	}

	key, err := DeriveKey(passphrase, blob.Salt, blob.KDFIterations)
	if err != nil {
		return nil, err
	}
	defer key.Clear()

	var plaintext []byte
	err = key.Use(func(k []byte) error {
		aead, err := newAEAD(blob.Algorithm, k)
		if err != nil {
			return err
		}
		if len(blob.Nonce) != aead.NonceSize() {
			return apperrors.New(apperrors.CodeInvalidCiphertext, "nonce does not match algorithm")
		}
		out, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
		if err != nil {
			return apperrors.New(apperrors.CodeAuthentication, "invalid password")
		}
		plaintext = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return takeSecureBytes(plaintext), nil
}

// Decrypt is the package Decrypt; the service's own algorithm is ignored.
func (s *Service) Decrypt(blob *EncryptedData, passphrase []byte) (*SecureBytes, error) {
	return Decrypt(blob, passphrase)
}
