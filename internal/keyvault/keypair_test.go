package keyvault

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/agent-wallet/internal/crypto"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
)

const (
	testSeed = "test seed phrase for deterministic key generation"
	testPath = "m/44'/501'/0'/0'"
)

func TestDeriveIsDeterministic(t *testing.T) {
	a, err := Derive([]byte(testSeed), testPath, 0)
	require.NoError(t, err)
	defer a.Close()
	b, err := Derive([]byte(testSeed), testPath, 0)
	require.NoError(t, err)
	defer b.Close()
	c, err := Derive([]byte(testSeed), testPath, 1)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, a.PublicKey(), b.PublicKey())
	assert.NotEqual(t, a.PublicKey(), c.PublicKey())
}

func TestDeriveRejectsEmptySeed(t *testing.T) {
	_, err := Derive(nil, testPath, 0)
	assert.Equal(t, apperrors.CodeInvalidKey, apperrors.CodeOf(err))
}

func TestSignVerify(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	defer kp.Close()

	msg := []byte("agent says hi")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)
	assert.True(t, kp.Verify(msg, sig))
	assert.False(t, kp.Verify([]byte("tampered"), sig))

	other, err := Generate()
	require.NoError(t, err)
	defer other.Close()
	assert.False(t, other.Verify(msg, sig))
}

func TestEncryptDecryptRestoresIdentity(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	defer kp.Close()

	for _, alg := range []crypto.Algorithm{crypto.AlgorithmAES256GCM, crypto.AlgorithmChaCha20Poly1305} {
		svc, err := crypto.NewService(alg, 1_000)
		require.NoError(t, err)

		blob, err := kp.Encrypt(svc, []byte("passphrase"))
		require.NoError(t, err)

		restored, err := Decrypt(blob, []byte("passphrase"))
		require.NoError(t, err)
		assert.Equal(t, kp.PublicKey(), restored.PublicKey())
		restored.Close()

		_, err = Decrypt(blob, []byte("nope"))
		assert.Equal(t, apperrors.CodeAuthentication, apperrors.CodeOf(err))
	}
}

func TestDecryptRejectsWrongSizePlaintext(t *testing.T) {
	svc, err := crypto.NewService(crypto.AlgorithmAES256GCM, 1_000)
	require.NoError(t, err)
	blob, err := svc.Encrypt(make([]byte, 64), []byte("pw"))
	require.NoError(t, err)

	_, err = Decrypt(blob, []byte("pw"))
	assert.Equal(t, apperrors.CodeInvalidKey, apperrors.CodeOf(err))
}

func TestFromSeedLength(t *testing.T) {
	_, err := FromSeed(make([]byte, 31))
	assert.Equal(t, apperrors.CodeInvalidKey, apperrors.CodeOf(err))

	kp, err := FromSeed(make([]byte, SeedSize))
	require.NoError(t, err)
	kp.Close()
}

func TestSignTransaction(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	defer kp.Close()

	to := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, kp.PublicKey(), to).Build()},
		solana.Hash{},
		solana.TransactionPayer(kp.PublicKey()),
	)
	require.NoError(t, err)

	sig, err := kp.SignTransaction(tx)
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.Equal(t, sig, tx.Signatures[0])

	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, kp.Verify(msg, sig))
}

func TestClosedKeypairRefusesToSign(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	pub := kp.PublicKey()
	kp.Close()

	assert.True(t, kp.Closed())
	assert.Equal(t, pub, kp.PublicKey())
	_, err = kp.Sign([]byte("x"))
	assert.Equal(t, apperrors.CodeState, apperrors.CodeOf(err))
}
