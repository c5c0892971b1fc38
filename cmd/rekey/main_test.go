package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/agent-wallet/internal/crypto"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/keyvault"
	"github.com/AlexZinkM/agent-wallet/internal/storage"
)

func storeWithWallet(t *testing.T, dir string) (*storage.Store, string) {
	t.Helper()
	store, err := storage.New(storage.Settings{
		Path:       filepath.Join(dir, "wallets"),
		BackupPath: filepath.Join(dir, "backups"),
	})
	require.NoError(t, err)

	kp, err := keyvault.Generate()
	require.NoError(t, err)
	defer kp.Close()
	svc, err := crypto.NewService(crypto.AlgorithmAES256GCM, 1_000)
	require.NoError(t, err)
	blob, err := kp.Encrypt(svc, []byte("old"))
	require.NoError(t, err)
	require.NoError(t, store.Save("bot", blob, kp.Address(), "desc"))
	return store, kp.Address()
}

func TestRekeyChangesPassphraseAndAlgorithm(t *testing.T) {
	store, addr := storeWithWallet(t, t.TempDir())

	got, err := rekey(store, "bot", []byte("old"), []byte("new"), crypto.AlgorithmChaCha20Poly1305, 0)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	blob, meta, err := store.Load("bot")
	require.NoError(t, err)
	assert.Equal(t, crypto.AlgorithmChaCha20Poly1305, blob.Algorithm)
	assert.Equal(t, uint32(1_000), blob.KDFIterations)
	assert.Equal(t, "desc", meta.Description)

	_, err = keyvault.Decrypt(blob, []byte("old"))
	assert.Equal(t, apperrors.CodeAuthentication, apperrors.CodeOf(err))
	kp, err := keyvault.Decrypt(blob, []byte("new"))
	require.NoError(t, err)
	defer kp.Close()
	assert.Equal(t, addr, kp.Address())

	backups, err := store.Backups("bot")
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestRekeyWrongPassphrase(t *testing.T) {
	store, _ := storeWithWallet(t, t.TempDir())

	_, err := rekey(store, "bot", []byte("wrong"), []byte("new"), "", 0)
	assert.Equal(t, apperrors.CodeAuthentication, apperrors.CodeOf(err))

	backups, err := store.Backups("bot")
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestRekeyMissingWallet(t *testing.T) {
	store, _ := storeWithWallet(t, t.TempDir())
	_, err := rekey(store, "ghost", []byte("old"), []byte("new"), "", 0)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}
