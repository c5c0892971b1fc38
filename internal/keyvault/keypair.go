package keyvault

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/agent-wallet/internal/crypto"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
)

// SeedSize is the length of the persisted secret.
const SeedSize = ed25519.SeedSize

// Keypair is an ed25519 signing identity. The 64-byte private key only
// exists inside a guarded buffer; the public key is cached.
type Keypair struct {
	mu     sync.RWMutex
	secret *crypto.SecureBytes
	public solana.PublicKey
}

// Generate creates a random keypair.
func Generate() (*Keypair, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	defer crypto.Zeroize(priv)
	return fromPrivateKey(priv), nil
}

// Derive builds a deterministic keypair from SHA-256(seed || path || index),
// index encoded as little-endian uint32. This is a plain hash construction,
// not SLIP-0010, so keys will not match other Solana wallets for the same
// mnemonic and path.
func Derive(seed []byte, path string, index uint32) (*Keypair, error) {
	if len(seed) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidKey, "derivation seed cannot be empty")
	}
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)

	h := sha256.New()
	h.Write(seed)
	h.Write([]byte(path))
	h.Write(idx[:])
	digest := h.Sum(nil)
	defer crypto.Zeroize(digest)

	return FromSeed(digest)
}

// FromSeed builds a keypair from a 32-byte ed25519 seed. The caller keeps
// ownership of seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != SeedSize {
		return nil, apperrors.Newf(apperrors.CodeInvalidKey, "invalid seed length: expected %d bytes, got %d", SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	defer crypto.Zeroize(priv)
	return fromPrivateKey(solana.PrivateKey(priv)), nil
}

func fromPrivateKey(priv solana.PrivateKey) *Keypair {
	return &Keypair{
		secret: crypto.NewSecureBytes(priv),
		public: priv.PublicKey(),
	}
}

// PublicKey returns the cached public key.
func (k *Keypair) PublicKey() solana.PublicKey {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.public
}

// Address is the base58 public key.
func (k *Keypair) Address() string {
	return k.PublicKey().String()
}

// Sign signs message with the private key.
func (k *Keypair) Sign(message []byte) (solana.Signature, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var sig solana.Signature
	err := k.use(func(priv solana.PrivateKey) error {
		s, err := priv.Sign(message)
		if err != nil {
			return fmt.Errorf("failed to sign message: %w", err)
		}
		sig = s
		return nil
	})
	return sig, err
}

// Verify checks sig against message and the keypair's public key.
func (k *Keypair) Verify(message []byte, sig solana.Signature) bool {
	return k.PublicKey().Verify(message, sig)
}

// SignTransaction adds this keypair's signature to tx. The private key is
// handed to solana-go only for the duration of the call.
func (k *Keypair) SignTransaction(tx *solana.Transaction) (solana.Signature, error) {
	if tx == nil {
		return solana.Signature{}, apperrors.New(apperrors.CodeInvalidArgument, "transaction is nil")
	}
	k.mu.RLock()
	defer k.mu.RUnlock()

	var sig solana.Signature
	err := k.use(func(priv solana.PrivateKey) error {
		sigs, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(k.public) {
				return &priv
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}
		for i, key := range tx.Message.AccountKeys {
			if key.Equals(k.public) && i < len(sigs) {
				sig = sigs[i]
				break
			}
		}
		return nil
	})
	return sig, err
}

// Encrypt seals the 32-byte seed with svc under passphrase.
func (k *Keypair) Encrypt(svc *crypto.Service, passphrase []byte) (*crypto.EncryptedData, error) {
	if svc == nil {
		svc = crypto.DefaultService()
	}
	k.mu.RLock()
	defer k.mu.RUnlock()

	var blob *crypto.EncryptedData
	err := k.use(func(priv solana.PrivateKey) error {
		var err error
		blob, err = svc.Encrypt(priv[:SeedSize], passphrase)
		return err
	})
	return blob, err
}

// Decrypt opens blob and rebuilds the keypair. A plaintext that is not
// exactly one seed long is rejected.
func Decrypt(blob *crypto.EncryptedData, passphrase []byte) (*Keypair, error) {
	plain, err := crypto.Decrypt(blob, passphrase)
	if err != nil {
		return nil, err
	}
	defer plain.Clear()

	var kp *Keypair
	err = plain.Use(func(seed []byte) error {
		var err error
		kp, err = FromSeed(seed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return kp, nil
}

// Close zeroes the private key. The keypair is unusable afterwards.
func (k *Keypair) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.secret != nil {
		k.secret.Clear()
	}
}

// Closed reports whether Close was called.
func (k *Keypair) Closed() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.secret == nil || k.secret.Len() == 0
}

// use runs fn with the private key; callers hold k.mu.
func (k *Keypair) use(fn func(priv solana.PrivateKey) error) error {
	if k.secret == nil {
		return apperrors.New(apperrors.CodeState, "keypair is closed")
	}
	err := k.secret.Use(func(b []byte) error {
		return fn(solana.PrivateKey(b))
	})
	if errors.Is(err, crypto.ErrCleared) {
		return apperrors.Wrap(apperrors.CodeState, err, "keypair is closed")
	}
	return err
}
