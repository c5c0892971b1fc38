// Package txn turns wallet actions into signed Solana transactions after
// checking them against the wallet's permission and spending policy.
package txn

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	DefaultComputeUnitLimit   = 200_000
	DefaultMaxTransactionSize = 1232
	DefaultMaxSignatures      = 20

	// MaxInstructions is the safety ceiling on instructions per transaction.
	MaxInstructions = 20

	// LamportsPerSignature is the base fee the ledger charges per signature.
	LamportsPerSignature = 5000

	// computeUnitsPerInstruction is the flat per-instruction compute estimate.
	computeUnitsPerInstruction = 10_000

	blockhashTTL = 30 * time.Second
)

// Options shape how a transaction is built, checked and sent.
type Options struct {
	// PriorityFee is a flat lamport amount added to the fee estimate.
	PriorityFee      uint64
	ComputeUnitLimit uint32
	// ComputeUnitPrice is in micro-lamports per compute unit.
	ComputeUnitPrice   uint64
	SkipPreflight      bool
	Commitment         rpc.CommitmentType
	MaxTransactionSize int
	MaxSignatures      int
	// FeePayer defaults to the wallet. Any other payer needs Administrator.
	FeePayer    solana.PublicKey
	IncludeMemo bool
	// AddComputeBudget prepends compute unit limit and price instructions.
	AddComputeBudget bool
}

// DefaultOptions are the pipeline defaults.
func DefaultOptions() Options {
	return Options{
		ComputeUnitLimit:   DefaultComputeUnitLimit,
		Commitment:         rpc.CommitmentFinalized,
		MaxTransactionSize: DefaultMaxTransactionSize,
		MaxSignatures:      DefaultMaxSignatures,
		IncludeMemo:        true,
	}
}

func (o Options) withDefaults() Options {
	if o.ComputeUnitLimit == 0 {
		o.ComputeUnitLimit = DefaultComputeUnitLimit
	}
	if o.Commitment == "" {
		o.Commitment = rpc.CommitmentFinalized
	}
	if o.MaxTransactionSize <= 0 {
		o.MaxTransactionSize = DefaultMaxTransactionSize
	}
	if o.MaxSignatures <= 0 {
		o.MaxSignatures = DefaultMaxSignatures
	}
	return o
}

// Stage is where a transaction is on its way to the ledger.
type Stage int

const (
	StageBuilt Stage = iota
	StageValidated
	StageSigned
	StageSubmitted
)

func (s Stage) String() string {
	switch s {
	case StageBuilt:
		return "built"
	case StageValidated:
		return "validated"
	case StageSigned:
		return "signed"
	case StageSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}
