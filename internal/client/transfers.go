package client

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Direction of a transfer relative to the wallet.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// AssetSOL labels native transfers.
const AssetSOL = "SOL"

// Transfer is one movement of value to or from the owner found in a
// confirmed transaction.
type Transfer struct {
	Signature    string    `json:"signature"`
	Direction    Direction `json:"direction"`
	Counterparty string    `json:"counterparty,omitempty"`
	Asset        string    `json:"asset"`
	Amount       uint64    `json:"amount"`
	FeeLamports  uint64    `json:"fee_lamports"`
	Slot         uint64    `json:"slot"`
	BlockTime    time.Time `json:"block_time"`
	Failed       bool      `json:"failed"`
}

// RecentTransfers scans the latest limit signatures of owner and returns
// the SOL transfers, and token transfers of mint when mint is not zero.
// Newest first.
func (c *LedgerClient) RecentTransfers(ctx context.Context, owner, mint solana.PublicKey, limit int) ([]Transfer, error) {
	addresses := []solana.PublicKey{owner}
	if !mint.IsZero() {
		ata, exists, err := c.TokenAccountExists(ctx, owner, mint)
		if err != nil {
			return nil, err
		}
		if exists {
			addresses = append(addresses, ata)
		}
	}

	seen := make(map[solana.Signature]bool)
	var sigs []solana.Signature
	for _, addr := range addresses {
		list, err := c.GetSignaturesForAddress(ctx, addr, limit)
		if err != nil {
			return nil, err
		}
		for _, s := range list {
			if !seen[s.Signature] {
				seen[s.Signature] = true
				sigs = append(sigs, s.Signature)
			}
		}
	}

	transfers := make([]Transfer, 0, len(sigs))
	for _, sig := range sigs {
		tx, err := c.GetTransaction(ctx, sig)
		if err != nil {
			return nil, err
		}
		if t, ok := ParseTransfer(tx, sig, owner, mint); ok {
			transfers = append(transfers, t)
		}
	}
	sort.SliceStable(transfers, func(i, j int) bool { return transfers[i].Slot > transfers[j].Slot })
	return transfers, nil
}

// ParseTransfer extracts the owner's movement from tx. When a token
// balance of mint changed, any SOL change is the fee; otherwise the SOL
// change net of the fee is the transfer.
func ParseTransfer(tx *rpc.GetTransactionResult, sig solana.Signature, owner, mint solana.PublicKey) (Transfer, bool) {
	if tx == nil || tx.Meta == nil || tx.Transaction == nil {
		return Transfer{}, false
	}
	out := Transfer{
		Signature: sig.String(),
		Slot:      tx.Slot,
		BlockTime: time.Now().UTC(),
		Failed:    tx.Meta.Err != nil,
	}
	if tx.BlockTime != nil {
		out.BlockTime = tx.BlockTime.Time().UTC()
	}

	decoded, err := tx.Transaction.GetTransaction()
	if err != nil || decoded == nil {
		return Transfer{}, false
	}
	keys := decoded.Message.AccountKeys
	ownerIndex := -1
	for i, key := range keys {
		if key.Equals(owner) {
			ownerIndex = i
			break
		}
	}

	var solDelta int64
	if ownerIndex >= 0 && ownerIndex < len(tx.Meta.PreBalances) && ownerIndex < len(tx.Meta.PostBalances) {
		solDelta = int64(tx.Meta.PostBalances[ownerIndex]) - int64(tx.Meta.PreBalances[ownerIndex])
	}
	isFeePayer := ownerIndex == 0

	if !mint.IsZero() {
		deltas := tokenDeltas(tx.Meta, mint)
		if ours := deltas[owner.String()]; ours != 0 {
			out.Asset = mint.String()
			if ours > 0 {
				out.Direction = DirectionIn
				out.Amount = uint64(ours)
				out.Counterparty = firstOwner(deltas, func(d int64) bool { return d < 0 })
			} else {
				out.Direction = DirectionOut
				out.Amount = uint64(-ours)
				out.Counterparty = firstOwner(deltas, func(d int64) bool { return d > 0 })
				if solDelta < 0 {
					out.FeeLamports = uint64(-solDelta)
				}
			}
			return out, true
		}
	}

	// Only show a SOL transfer if something moved besides the fee.
	actual := solDelta
	if isFeePayer {
		actual += int64(tx.Meta.Fee)
	}
	if actual == 0 {
		return Transfer{}, false
	}

	out.Asset = AssetSOL
	if actual > 0 {
		out.Direction = DirectionIn
		out.Amount = uint64(actual)
		for i, key := range keys {
			if i < len(tx.Meta.PreBalances) && i < len(tx.Meta.PostBalances) && tx.Meta.PreBalances[i] > tx.Meta.PostBalances[i] && !key.Equals(owner) {
				out.Counterparty = key.String()
				break
			}
		}
		return out, true
	}

	out.Direction = DirectionOut
	out.Amount = uint64(-actual)
	if isFeePayer {
		out.FeeLamports = tx.Meta.Fee
	}
	for i, key := range keys {
		if i < len(tx.Meta.PreBalances) && i < len(tx.Meta.PostBalances) && tx.Meta.PostBalances[i] > tx.Meta.PreBalances[i] && !key.Equals(owner) {
			out.Counterparty = key.String()
			break
		}
	}
	return out, true
}

func tokenDeltas(meta *rpc.TransactionMeta, mint solana.PublicKey) map[string]int64 {
	deltas := make(map[string]int64)
	for _, pre := range meta.PreTokenBalances {
		if pre.Mint.Equals(mint) && pre.Owner != nil && pre.UiTokenAmount != nil {
			amt, _ := strconv.ParseUint(pre.UiTokenAmount.Amount, 10, 64)
			deltas[pre.Owner.String()] -= int64(amt)
		}
	}
	for _, post := range meta.PostTokenBalances {
		if post.Mint.Equals(mint) && post.Owner != nil && post.UiTokenAmount != nil {
			amt, _ := strconv.ParseUint(post.UiTokenAmount.Amount, 10, 64)
			deltas[post.Owner.String()] += int64(amt)
		}
	}
	return deltas
}

func firstOwner(deltas map[string]int64, match func(int64) bool) string {
	owners := make([]string, 0, len(deltas))
	for owner, d := range deltas {
		if match(d) {
			owners = append(owners, owner)
		}
	}
	if len(owners) == 0 {
		return ""
	}
	sort.Strings(owners)
	return owners[0]
}
