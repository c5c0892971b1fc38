package client

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedTx(t *testing.T, meta string, keys ...solana.PublicKey) *rpc.GetTransactionResult {
	t.Helper()
	ix := system.NewTransferInstruction(1, keys[0], keys[1]).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(keys[0]))
	require.NoError(t, err)
	encoded, err := tx.ToBase64()
	require.NoError(t, err)

	raw := fmt.Sprintf(`{"slot":77,"blockTime":1700000000,"transaction":[%q,"base64"],"meta":%s}`, encoded, meta)
	var out rpc.GetTransactionResult
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return &out
}

func TestParseTransferOutgoingSOL(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	tx := confirmedTx(t, `{"err":null,"fee":5000,"preBalances":[10000000,0,1],"postBalances":[8995000,1000000,1]}`, owner, dest)

	got, ok := ParseTransfer(tx, solana.Signature{}, owner, solana.PublicKey{})
	require.True(t, ok)
	assert.Equal(t, DirectionOut, got.Direction)
	assert.Equal(t, AssetSOL, got.Asset)
	assert.Equal(t, uint64(1_000_000), got.Amount)
	assert.Equal(t, uint64(5000), got.FeeLamports)
	assert.Equal(t, dest.String(), got.Counterparty)
	assert.Equal(t, uint64(77), got.Slot)
	assert.Equal(t, int64(1700000000), got.BlockTime.Unix())
	assert.False(t, got.Failed)
}

func TestParseTransferIncomingSOL(t *testing.T) {
	sender := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	tx := confirmedTx(t, `{"err":null,"fee":5000,"preBalances":[10000000,0,1],"postBalances":[7995000,2000000,1]}`, sender, owner)

	got, ok := ParseTransfer(tx, solana.Signature{}, owner, solana.PublicKey{})
	require.True(t, ok)
	assert.Equal(t, DirectionIn, got.Direction)
	assert.Equal(t, uint64(2_000_000), got.Amount)
	assert.Zero(t, got.FeeLamports)
	assert.Equal(t, sender.String(), got.Counterparty)
}

func TestParseTransferFeeOnlyIsSkipped(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	tx := confirmedTx(t, `{"err":{"InstructionError":[0,"Custom"]},"fee":5000,"preBalances":[10000000,0,1],"postBalances":[9995000,0,1]}`, owner, other)

	_, ok := ParseTransfer(tx, solana.Signature{}, owner, solana.PublicKey{})
	assert.False(t, ok)
}

func TestParseTransferToken(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	meta := fmt.Sprintf(`{"err":null,"fee":5000,"preBalances":[10000000,0,1],"postBalances":[9995000,0,1],
		"preTokenBalances":[{"accountIndex":1,"owner":%q,"mint":%q,"uiTokenAmount":{"amount":"500","decimals":6}},
			{"accountIndex":2,"owner":%q,"mint":%q,"uiTokenAmount":{"amount":"0","decimals":6}}],
		"postTokenBalances":[{"accountIndex":1,"owner":%q,"mint":%q,"uiTokenAmount":{"amount":"380","decimals":6}},
			{"accountIndex":2,"owner":%q,"mint":%q,"uiTokenAmount":{"amount":"120","decimals":6}}]}`,
		owner, mint, dest, mint, owner, mint, dest, mint)
	tx := confirmedTx(t, meta, owner, dest)

	got, ok := ParseTransfer(tx, solana.Signature{}, owner, mint)
	require.True(t, ok)
	assert.Equal(t, DirectionOut, got.Direction)
	assert.Equal(t, mint.String(), got.Asset)
	assert.Equal(t, uint64(120), got.Amount)
	assert.Equal(t, uint64(5000), got.FeeLamports)
	assert.Equal(t, dest.String(), got.Counterparty)
}

func TestParseTransferMissingMeta(t *testing.T) {
	_, ok := ParseTransfer(&rpc.GetTransactionResult{}, solana.Signature{}, solana.PublicKey{}, solana.PublicKey{})
	assert.False(t, ok)
	_, ok = ParseTransfer(nil, solana.Signature{}, solana.PublicKey{}, solana.PublicKey{})
	assert.False(t, ok)
}
