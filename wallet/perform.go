package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/AlexZinkM/agent-wallet/internal/common"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/model"
	"github.com/AlexZinkM/agent-wallet/internal/txn"
)

// Perform checks action against the wallet's permission and budget, then
// builds, validates, signs and submits it. The spend is deducted only when
// the ledger accepted the transaction. Every outcome is appended to the
// history; failures also land in RecentErrors.
func (w *Wallet) Perform(ctx context.Context, action model.Action) (*model.TransactionRecord, error) {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	w.touch()

	rec := model.TransactionRecord{
		ID:          uuid.NewString(),
		Timestamp:   w.now(),
		Kind:        action.Kind,
		Description: action.Description(),
		Amount:      action.Amount,
		Memo:        action.Memo,
	}
	if !action.To.IsZero() {
		rec.Destination = action.To.String()
	}
	if !action.Mint.IsZero() {
		rec.Mint = action.Mint.String()
	}

	sig, fee, err := w.perform(ctx, action)
	rec.Fee = fee
	if err != nil {
		rec.Status = model.StatusFailed
		rec.Error = err.Error()
		w.recordFailure(&rec, err, "perform "+string(action.Kind))
		return nil, err
	}

	if sig.IsZero() {
		rec.Status = model.StatusCompleted
	} else {
		rec.Status = model.StatusSubmitted
		rec.Signature = sig.String()
	}
	spend := action.SpendValue()

	w.mu.Lock()
	w.state.RecordSuccess(rec, spend)
	remaining := w.state.Spending.Remaining
	w.mu.Unlock()

	w.audit.Info("action performed",
		slog.String("wallet", w.name),
		slog.String("id", rec.ID),
		slog.String("kind", string(action.Kind)),
		slog.String("signature", rec.Signature),
		slog.Uint64("spend", spend),
		slog.Uint64("remaining_budget", remaining))
	return &rec, nil
}

func (w *Wallet) perform(ctx context.Context, action model.Action) (solana.Signature, uint64, error) {
	// Rate limit
	if !w.limiter.Allow() {
		return solana.Signature{}, 0, apperrors.New(apperrors.CodeRateLimited, "transaction rate limit exceeded, try again later")
	}

	state := w.policy()

	// Native transfers must leave enough for the fee
	if action.Kind == model.ActionTransferSOL {
		balance, err := w.ledger.GetBalance(ctx, w.PublicKey())
		if err != nil {
			return solana.Signature{}, 0, fmt.Errorf("failed to check balance: %w", err)
		}
		required := action.Amount + txn.LamportsPerSignature
		if required < action.Amount {
			required = math.MaxUint64
		}
		if balance < required {
			return solana.Signature{}, 0, apperrors.New(apperrors.CodeInsufficientFunds,
				fmt.Sprintf("insufficient SOL balance: have %s SOL, need %s SOL including fee",
					common.LamportsToSOL(balance), common.LamportsToSOL(required)),
				apperrors.WithMetadata("required", common.LamportsToSOL(required)),
				apperrors.WithMetadata("available", common.LamportsToSOL(balance)))
		}
	}

	opts := w.pipeline.Options()
	tx, err := w.pipeline.Build(action, state, opts)
	if err != nil {
		return solana.Signature{}, 0, err
	}
	res := w.pipeline.Validate(tx, state, opts)
	if err := res.Err(); err != nil {
		return solana.Signature{}, res.EstimatedFee, err
	}
	if tx.Empty() {
		return solana.Signature{}, 0, nil
	}

	if err := w.pipeline.Sign(ctx, tx, w.key); err != nil {
		return solana.Signature{}, res.EstimatedFee, err
	}
	w.audit.Info("transaction signed",
		slog.String("wallet", w.name),
		slog.String("kind", string(action.Kind)),
		slog.String("signature", tx.Signature.String()))

	sig, err := w.pipeline.Submit(ctx, tx)
	if err != nil {
		return solana.Signature{}, res.EstimatedFee, err
	}
	return sig, res.EstimatedFee, nil
}

// Simulation is a dry run of an action: the static checks and, for
// non-empty transactions, the ledger's simulation.
type Simulation struct {
	Validation *txn.ValidationResult `json:"validation"`
	Result     *txn.SimulationResult `json:"result"`
}

// Simulate builds, validates and signs action and asks the ledger to run
// it without committing. Nothing is recorded and no budget is spent.
func (w *Wallet) Simulate(ctx context.Context, action model.Action) (*Simulation, error) {
	w.touch()
	state := w.policy()
	opts := w.pipeline.Options()

	tx, err := w.pipeline.Build(action, state, opts)
	if err != nil {
		return nil, err
	}
	out := &Simulation{Validation: w.pipeline.Validate(tx, state, opts)}
	if err := out.Validation.Err(); err != nil {
		return out, err
	}
	if !tx.Empty() {
		if err := w.pipeline.Sign(ctx, tx, w.key); err != nil {
			return out, err
		}
	}
	out.Result, err = w.pipeline.Simulate(ctx, tx)
	if err != nil {
		return out, err
	}
	return out, nil
}

// policy applies the daily reset and copies the permission and budget the
// pipeline checks against.
func (w *Wallet) policy() *model.RuntimeState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Spending.ResetIfNeeded(w.now()) {
		w.log.Info("daily budget reset", slog.Uint64("daily_limit", w.state.Spending.DailyLimit))
	}
	return &model.RuntimeState{
		Permission: w.state.Permission,
		Spending:   w.state.Spending,
	}
}

func (w *Wallet) recordFailure(rec *model.TransactionRecord, err error, op string) {
	f := model.FailureRecord{
		Message:     err.Error(),
		Code:        string(apperrors.CodeOf(err)),
		Category:    string(apperrors.CategoryOf(err)),
		Recoverable: apperrors.Recoverable(err),
		Context:     op,
		Timestamp:   rec.Timestamp,
	}
	w.mu.Lock()
	w.state.RecordFailure(rec, f)
	w.mu.Unlock()

	w.audit.Warn("action failed",
		slog.String("wallet", w.name),
		slog.String("id", rec.ID),
		slog.String("kind", string(rec.Kind)),
		slog.String("code", f.Code),
		slog.String("category", f.Category),
		slog.Bool("recoverable", f.Recoverable),
		slog.String("error", f.Message))
}
