package txn

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/memo"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/AlexZinkM/agent-wallet/internal/client"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/model"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
)

// Ledger is the part of the RPC client the pipeline needs.
type Ledger interface {
	GetLatestBlockhash(ctx context.Context) (client.Blockhash, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts client.SendOptions) (solana.Signature, error)
}

// Signer holds the wallet key.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) (solana.Signature, error)
}

// Transaction is an action on its way through the pipeline.
type Transaction struct {
	Tx        *solana.Transaction
	Action    model.Action
	Stage     Stage
	Options   Options
	Signature solana.Signature

	instructions int
	placeholder  bool
}

// Empty reports whether the action produced no instructions. Empty
// transactions are never signed or sent.
func (t *Transaction) Empty() bool {
	return t.Tx == nil
}

// Instructions is the number of instructions in the transaction.
func (t *Transaction) Instructions() int {
	return t.instructions
}

// SimulationResult is the outcome of a dry run.
type SimulationResult struct {
	Success              bool     `json:"success"`
	Logs                 []string `json:"logs"`
	ComputeUnitsConsumed uint64   `json:"compute_units_consumed"`
	Error                string   `json:"error,omitempty"`
	Fee                  uint64   `json:"fee"`
}

// Pipeline builds, validates, signs, simulates and submits transactions
// for one wallet.
type Pipeline struct {
	ledger Ledger
	owner  solana.PublicKey
	opts   Options

	mu       sync.Mutex
	cached   client.Blockhash
	cachedAt time.Time

	now func() time.Time
	log *slog.Logger
}

// New returns a pipeline that builds transactions paid for by owner unless
// opts names another fee payer.
func New(ledger Ledger, owner solana.PublicKey, opts Options) *Pipeline {
	return &Pipeline{
		ledger: ledger,
		owner:  owner,
		opts:   opts.withDefaults(),
		now:    time.Now,
		log:    logger.Named("pipeline"),
	}
}

// Options returns the pipeline defaults.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Build checks action against state and assembles an unsigned transaction.
// The recent blockhash is the cached one when fresh, else all zeros; Sign
// replaces it.
func (p *Pipeline) Build(action model.Action, state *model.RuntimeState, opts Options) (*Transaction, error) {
	opts = opts.withDefaults()
	if err := action.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "invalid action")
	}

	required := action.RequiredPermission()
	if !state.Permission.CanPerform(required) {
		return nil, apperrors.New(apperrors.CodePermissionDenied,
			fmt.Sprintf("%s requires %s permission", action.Kind, required),
			apperrors.WithMetadata("required", required.String()),
			apperrors.WithMetadata("actual", state.Permission.String()))
	}
	if err := state.Spending.Check(action.SpendValue()); err != nil {
		return nil, err
	}

	payer := p.feePayer(opts)
	instructions, err := p.instructions(action, payer, opts)
	if err != nil {
		return nil, err
	}
	out := &Transaction{Action: action, Stage: StageBuilt, Options: opts, instructions: len(instructions)}
	if len(instructions) == 0 {
		return out, nil
	}
	if opts.AddComputeBudget {
		budget := []solana.Instruction{
			computebudget.NewSetComputeUnitLimitInstruction(opts.ComputeUnitLimit).Build(),
			computebudget.NewSetComputeUnitPriceInstruction(opts.ComputeUnitPrice).Build(),
		}
		instructions = append(budget, instructions...)
		out.instructions = len(instructions)
	}
	if len(instructions) > MaxInstructions {
		return nil, apperrors.Newf(apperrors.CodeValidation,
			"transaction has %d instructions, limit is %d", len(instructions), MaxInstructions)
	}

	anchor, ok := p.cachedBlockhash()
	out.placeholder = !ok
	tx, err := solana.NewTransaction(instructions, anchor, solana.TransactionPayer(payer))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSerialization, err, "failed to create transaction")
	}
	out.Tx = tx

	p.log.Debug("transaction built",
		slog.String("kind", string(action.Kind)),
		slog.Int("instructions", out.instructions),
		slog.Bool("placeholder_blockhash", out.placeholder))
	return out, nil
}

func (p *Pipeline) feePayer(opts Options) solana.PublicKey {
	if opts.FeePayer.IsZero() {
		return p.owner
	}
	return opts.FeePayer
}

func (p *Pipeline) instructions(action model.Action, payer solana.PublicKey, opts Options) ([]solana.Instruction, error) {
	var out []solana.Instruction
	addMemo := func() {
		if opts.IncludeMemo && action.Memo != "" {
			out = append(out, memo.NewMemoInstruction([]byte(action.Memo), p.owner).Build())
		}
	}

	switch action.Kind {
	case model.ActionNoOp:
		return nil, nil

	case model.ActionTransferSOL:
		addMemo()
		out = append(out, system.NewTransferInstruction(action.Amount, p.owner, action.To).Build())
		return out, nil

	case model.ActionTransferToken:
		source, _, err := solana.FindAssociatedTokenAddress(p.owner, action.Mint)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "failed to find source token account address")
		}
		dest, _, err := solana.FindAssociatedTokenAddress(action.To, action.Mint)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "failed to find destination token account address")
		}

		addMemo()
		if action.CreateRecipientAccount {
			out = append(out, associatedtokenaccount.NewCreateInstruction(payer, action.To, action.Mint).Build())
		}
		if action.Decimals != nil {
			out = append(out, token.NewTransferCheckedInstruction(
				action.Amount,
				*action.Decimals,
				source,
				action.Mint,
				dest,
				p.owner,
				[]solana.PublicKey{},
			).Build())
		} else {
			out = append(out, token.NewTransferInstruction(
				action.Amount,
				source,
				dest,
				p.owner,
				[]solana.PublicKey{},
			).Build())
		}
		return out, nil

	default:
		return nil, apperrors.Newf(apperrors.CodeNotSupported, "%s is not supported yet", action.Kind)
	}
}

// Sign swaps in a fresh blockhash and signs with signer. Only validated
// transactions can be signed. A transaction paid for by another account
// fails with NOT_SUPPORTED and stays validated; the payer has to co-sign
// it outside the wallet.
func (p *Pipeline) Sign(ctx context.Context, t *Transaction, signer Signer) error {
	if t.Empty() {
		return apperrors.New(apperrors.CodeState, "empty transaction has nothing to sign")
	}
	if t.Stage != StageValidated {
		return apperrors.Newf(apperrors.CodeState, "cannot sign a %s transaction", t.Stage)
	}
	if payer := t.Tx.Message.AccountKeys[0]; !payer.Equals(signer.PublicKey()) {
		return apperrors.Newf(apperrors.CodeNotSupported,
			"fee payer %s must co-sign; the wallet signs only for %s", payer, signer.PublicKey())
	}

	anchor, err := p.freshBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	t.Tx.Message.RecentBlockhash = anchor
	t.Tx.Signatures = nil
	t.placeholder = false

	sig, err := signer.SignTransaction(t.Tx)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	t.Signature = sig
	t.Stage = StageSigned
	return nil
}

// Simulate dry-runs t. It does not change t's stage.
func (p *Pipeline) Simulate(ctx context.Context, t *Transaction) (*SimulationResult, error) {
	if t.Empty() {
		return &SimulationResult{Success: true, Logs: []string{}}, nil
	}
	if t.Stage < StageValidated || t.Stage == StageSubmitted {
		return nil, apperrors.Newf(apperrors.CodeState, "cannot simulate a %s transaction", t.Stage)
	}

	res, err := p.ledger.SimulateTransaction(ctx, t.Tx)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate transaction: %w", err)
	}
	out := &SimulationResult{
		Success: res.Err == nil,
		Logs:    res.Logs,
		Fee:     EstimateFee(t.Tx, t.Options),
	}
	if out.Logs == nil {
		out.Logs = []string{}
	}
	if res.UnitsConsumed != nil {
		out.ComputeUnitsConsumed = *res.UnitsConsumed
	}
	if res.Err != nil {
		out.Error = fmt.Sprintf("%v", res.Err)
	}
	return out, nil
}

// Submit broadcasts a signed transaction. Once sent it cannot be recalled,
// so ctx only bounds the wait for the RPC answer.
func (p *Pipeline) Submit(ctx context.Context, t *Transaction) (solana.Signature, error) {
	if t.Empty() || t.Stage != StageSigned {
		return solana.Signature{}, apperrors.Newf(apperrors.CodeState, "cannot submit a %s transaction", t.Stage)
	}
	sig, err := p.ledger.SendTransaction(ctx, t.Tx, client.SendOptions{
		SkipPreflight:       t.Options.SkipPreflight,
		PreflightCommitment: t.Options.Commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	t.Stage = StageSubmitted
	if sig.IsZero() {
		sig = t.Signature
	}
	t.Signature = sig
	return sig, nil
}

func (p *Pipeline) cachedBlockhash() (solana.Hash, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.cachedAt.IsZero() && p.now().Sub(p.cachedAt) < blockhashTTL {
		return p.cached.Hash, true
	}
	return solana.Hash{}, false
}

func (p *Pipeline) freshBlockhash(ctx context.Context) (solana.Hash, error) {
	if hash, ok := p.cachedBlockhash(); ok {
		return hash, nil
	}
	bh, err := p.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, err
	}
	p.mu.Lock()
	p.cached = bh
	p.cachedAt = p.now()
	p.mu.Unlock()
	return bh.Hash, nil
}

// EstimateFee approximates the ledger fee in lamports:
// 5000 per signature plus the priority fee plus price times limit.
func EstimateFee(tx *solana.Transaction, opts Options) uint64 {
	if tx == nil {
		return 0
	}
	sigs := uint64(tx.Message.Header.NumRequiredSignatures)
	return saturatingAdd(saturatingAdd(LamportsPerSignature*sigs, opts.PriorityFee), computeFee(opts))
}

func computeFee(opts Options) uint64 {
	hi, lo := bits.Mul64(opts.ComputeUnitPrice, uint64(opts.ComputeUnitLimit))
	if hi >= 1_000_000 {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, 1_000_000)
	return q
}

func saturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// SerializedSize is the wire size of tx, with zeroed placeholders for
// missing signatures.
func SerializedSize(tx *solana.Transaction) (int, error) {
	if tx == nil {
		return 0, nil
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeSerialization, err, "failed to serialize transaction")
	}
	return len(raw), nil
}
