package client

import (
	"context"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
)

// TokenAccountSize is the data length of an SPL token account.
const TokenAccountSize = 165

// Blockhash is a recent anchor and the last block height it is valid for.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// TokenAmount is a raw token balance with its mint decimals.
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
}

// SendOptions controls preflight on submission.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// GetBalance returns the lamport balance of account.
func (c *LedgerClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return Execute(ctx, c, "getBalance", func(ctx context.Context, conn *rpc.Client) (uint64, error) {
		res, err := conn.GetBalance(ctx, account, c.cfg.Commitment)
		if err != nil {
			return 0, err
		}
		return res.Value, nil
	})
}

// GetAccountInfo returns the account or NOT_FOUND.
func (c *LedgerClient) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.Account, error) {
	return Execute(ctx, c, "getAccountInfo", func(ctx context.Context, conn *rpc.Client) (*rpc.Account, error) {
		res, err := conn.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{Commitment: c.cfg.Commitment})
		if err != nil {
			return nil, err
		}
		if res == nil || res.Value == nil {
			return nil, rpc.ErrNotFound
		}
		return res.Value, nil
	})
}

// GetMultipleAccounts returns one entry per key, nil where the account
// does not exist.
func (c *LedgerClient) GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) ([]*rpc.Account, error) {
	return Execute(ctx, c, "getMultipleAccounts", func(ctx context.Context, conn *rpc.Client) ([]*rpc.Account, error) {
		res, err := conn.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{Commitment: c.cfg.Commitment})
		if err != nil {
			return nil, err
		}
		return res.Value, nil
	})
}

// GetLatestBlockhash fetches a fresh anchor at finalized commitment.
func (c *LedgerClient) GetLatestBlockhash(ctx context.Context) (Blockhash, error) {
	return Execute(ctx, c, "getLatestBlockhash", func(ctx context.Context, conn *rpc.Client) (Blockhash, error) {
		res, err := conn.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return Blockhash{}, err
		}
		return Blockhash{
			Hash:                 res.Value.Blockhash,
			LastValidBlockHeight: res.Value.LastValidBlockHeight,
		}, nil
	})
}

// SendTransaction broadcasts a signed transaction.
func (c *LedgerClient) SendTransaction(ctx context.Context, tx *solana.Transaction, opts SendOptions) (solana.Signature, error) {
	if opts.PreflightCommitment == "" {
		opts.PreflightCommitment = rpc.CommitmentFinalized
	}
	return Execute(ctx, c, "sendTransaction", func(ctx context.Context, conn *rpc.Client) (solana.Signature, error) {
		return conn.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: opts.PreflightCommitment,
		})
	})
}

// SimulateTransaction dry-runs tx. Signatures are not verified so a
// transaction can be simulated before it is signed.
func (c *LedgerClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResult, error) {
	return Execute(ctx, c, "simulateTransaction", func(ctx context.Context, conn *rpc.Client) (*rpc.SimulateTransactionResult, error) {
		res, err := conn.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			SigVerify:  false,
			Commitment: c.cfg.Commitment,
		})
		if err != nil {
			return nil, err
		}
		if res == nil || res.Value == nil {
			return nil, apperrors.New(apperrors.CodeRPC, "empty simulation response")
		}
		return res.Value, nil
	})
}

// GetTransaction fetches a confirmed transaction, including v0 ones.
func (c *LedgerClient) GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	// maxVersion is hardcoded: supporting a newer version needs a library update anyway.
	maxVersion := uint64(0)
	return Execute(ctx, c, "getTransaction", func(ctx context.Context, conn *rpc.Client) (*rpc.GetTransactionResult, error) {
		return conn.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
	})
}

// GetSignaturesForAddress returns up to limit recent signatures for account.
func (c *LedgerClient) GetSignaturesForAddress(ctx context.Context, account solana.PublicKey, limit int) ([]*rpc.TransactionSignature, error) {
	return Execute(ctx, c, "getSignaturesForAddress", func(ctx context.Context, conn *rpc.Client) ([]*rpc.TransactionSignature, error) {
		return conn.GetSignaturesForAddressWithOpts(ctx, account, &rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: rpc.CommitmentConfirmed,
		})
	})
}

// GetSlot returns the current slot.
func (c *LedgerClient) GetSlot(ctx context.Context) (uint64, error) {
	return Execute(ctx, c, "getSlot", func(ctx context.Context, conn *rpc.Client) (uint64, error) {
		return conn.GetSlot(ctx, c.cfg.Commitment)
	})
}

// GetEpochInfo returns the current epoch.
func (c *LedgerClient) GetEpochInfo(ctx context.Context) (*rpc.GetEpochInfoResult, error) {
	return Execute(ctx, c, "getEpochInfo", func(ctx context.Context, conn *rpc.Client) (*rpc.GetEpochInfoResult, error) {
		return conn.GetEpochInfo(ctx, c.cfg.Commitment)
	})
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for
// an account holding dataSize bytes.
func (c *LedgerClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	return Execute(ctx, c, "getMinimumBalanceForRentExemption", func(ctx context.Context, conn *rpc.Client) (uint64, error) {
		return conn.GetMinimumBalanceForRentExemption(ctx, dataSize, rpc.CommitmentFinalized)
	})
}

// GetTokenAccountBalance returns the raw balance of a token account.
func (c *LedgerClient) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (TokenAmount, error) {
	return Execute(ctx, c, "getTokenAccountBalance", func(ctx context.Context, conn *rpc.Client) (TokenAmount, error) {
		res, err := conn.GetTokenAccountBalance(ctx, account, c.cfg.Commitment)
		if err != nil {
			if isAccountNotFoundError(err) {
				return TokenAmount{}, apperrors.Wrap(apperrors.CodeNotFound, err, "token account not found", apperrors.WithRetryable(false))
			}
			return TokenAmount{}, err
		}
		if res.Value == nil {
			return TokenAmount{}, nil
		}
		amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
		if err != nil {
			return TokenAmount{}, apperrors.Wrap(apperrors.CodeSerialization, err, "failed to parse token amount", apperrors.WithRetryable(false))
		}
		return TokenAmount{Amount: amount, Decimals: res.Value.Decimals}, nil
	})
}

// GetProgramAccounts lists accounts owned by program.
func (c *LedgerClient) GetProgramAccounts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	if opts == nil {
		opts = &rpc.GetProgramAccountsOpts{Commitment: c.cfg.Commitment}
	}
	return Execute(ctx, c, "getProgramAccounts", func(ctx context.Context, conn *rpc.Client) (rpc.GetProgramAccountsResult, error) {
		return conn.GetProgramAccountsWithOpts(ctx, program, opts)
	})
}

// TokenAccountExists derives the associated token account of owner for
// mint and reports whether it exists on chain.
func (c *LedgerClient) TokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, false, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "failed to find associated token account address")
	}
	_, err = c.GetAccountInfo(ctx, ata)
	switch {
	case err == nil:
		return ata, true, nil
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		return ata, false, nil
	default:
		return ata, false, err
	}
}

// TokenAccountRentExempt is the lamports a new token account must hold.
func (c *LedgerClient) TokenAccountRentExempt(ctx context.Context) (uint64, error) {
	return c.GetMinimumBalanceForRentExemption(ctx, TokenAccountSize)
}

// isAccountNotFoundError checks if error indicates that the account doesn't exist
func isAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "could not find account") ||
		strings.Contains(errStr, "not found")
}
