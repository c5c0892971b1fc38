package model

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/agent-wallet/internal/common"
)

// ActionKind tags an Action.
type ActionKind string

const (
	ActionTransferSOL         ActionKind = "transfer_sol"
	ActionTransferToken       ActionKind = "transfer_token"
	ActionSwap                ActionKind = "swap"
	ActionProvideLiquidity    ActionKind = "provide_liquidity"
	ActionRemoveLiquidity     ActionKind = "remove_liquidity"
	ActionStake               ActionKind = "stake"
	ActionUnstake             ActionKind = "unstake"
	ActionProtocolInteraction ActionKind = "protocol_interaction"
	ActionNoOp                ActionKind = "noop"
)

// Valid reports whether k is a known kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionTransferSOL, ActionTransferToken, ActionSwap, ActionProvideLiquidity, ActionRemoveLiquidity,
		ActionStake, ActionUnstake, ActionProtocolInteraction, ActionNoOp:
		return true
	}
	return false
}

// DefaultActionSpend is charged against the budget for kinds whose value
// cannot be read from their operands.
const DefaultActionSpend = common.LamportsPerSOL / 10

// Action is one operation an agent wants the wallet to perform. Which
// fields are meaningful depends on Kind.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Recipient of a transfer.
	To solana.PublicKey `json:"to"`
	// Amount in lamports for SOL, base units for tokens.
	Amount uint64 `json:"amount,omitempty"`
	Memo   string `json:"memo,omitempty"`

	// Token transfers.
	Mint solana.PublicKey `json:"mint"`
	// Decimals of Mint. Nil sends an unchecked transfer.
	Decimals *uint8 `json:"decimals,omitempty"`
	// CreateRecipientAccount adds an associated token account creation for To.
	CreateRecipientAccount bool `json:"create_recipient_account,omitempty"`

	// Protocol actions. They are never built, only classified.
	OutputMint solana.PublicKey `json:"output_mint"`
	MinOutput  uint64           `json:"min_output,omitempty"`
	Pool       solana.PublicKey `json:"pool"`
	AmountB    uint64           `json:"amount_b,omitempty"`
	Protocol   string           `json:"protocol,omitempty"`
	Method     string           `json:"method,omitempty"`
	Parameters string           `json:"parameters,omitempty"`
}

// TransferSOL builds a native transfer action.
func TransferSOL(to solana.PublicKey, lamports uint64, memo string) Action {
	return Action{Kind: ActionTransferSOL, To: to, Amount: lamports, Memo: memo}
}

// TransferToken builds a token transfer action. decimals may be nil.
func TransferToken(mint, to solana.PublicKey, amount uint64, decimals *uint8, memo string) Action {
	return Action{Kind: ActionTransferToken, Mint: mint, To: to, Amount: amount, Decimals: decimals, Memo: memo}
}

// NoOp is the action that does nothing.
func NoOp() Action {
	return Action{Kind: ActionNoOp}
}

// RequiredPermission is the lowest level allowed to perform a.
func (a Action) RequiredPermission() PermissionLevel {
	switch a.Kind {
	case ActionNoOp:
		return PermissionReadOnly
	case ActionTransferSOL:
		return PermissionBasic
	case ActionTransferToken, ActionSwap, ActionProvideLiquidity, ActionRemoveLiquidity, ActionStake, ActionUnstake:
		return PermissionAdvanced
	case ActionProtocolInteraction:
		return PermissionFull
	default:
		return PermissionAdministrator
	}
}

// SpendValue is what a charges against the spending budget, in lamports.
// Token amounts are counted one base unit to one lamport until a price
// source is wired into the policy.
func (a Action) SpendValue() uint64 {
	switch a.Kind {
	case ActionNoOp:
		return 0
	case ActionTransferSOL, ActionTransferToken:
		return a.Amount
	default:
		return DefaultActionSpend
	}
}

// Validate checks the operands the pipeline needs for a.Kind.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionNoOp:
		return nil
	case ActionTransferSOL:
		if a.To.IsZero() {
			return fmt.Errorf("recipient is required")
		}
		if a.Amount == 0 {
			return fmt.Errorf("amount must be positive")
		}
	case ActionTransferToken:
		if a.To.IsZero() {
			return fmt.Errorf("recipient is required")
		}
		if a.Mint.IsZero() {
			return fmt.Errorf("mint is required")
		}
		if a.Amount == 0 {
			return fmt.Errorf("amount must be positive")
		}
	default:
		if !a.Kind.Valid() {
			return fmt.Errorf("unknown action kind %q", a.Kind)
		}
	}
	return nil
}

// Description is a short human readable summary.
func (a Action) Description() string {
	switch a.Kind {
	case ActionTransferSOL:
		return fmt.Sprintf("Transfer %s SOL to %s", common.LamportsToSOL(a.Amount), a.To)
	case ActionTransferToken:
		return fmt.Sprintf("Transfer %d of token %s to %s", a.Amount, a.Mint, a.To)
	case ActionSwap:
		return fmt.Sprintf("Swap %d of token %s for token %s", a.Amount, a.Mint, a.OutputMint)
	case ActionProvideLiquidity:
		return fmt.Sprintf("Provide liquidity: %d token A, %d token B", a.Amount, a.AmountB)
	case ActionRemoveLiquidity:
		return fmt.Sprintf("Remove %d LP tokens", a.Amount)
	case ActionStake:
		return fmt.Sprintf("Stake %d tokens", a.Amount)
	case ActionUnstake:
		return fmt.Sprintf("Unstake %d tokens", a.Amount)
	case ActionProtocolInteraction:
		return fmt.Sprintf("Interact with %s: %s", a.Protocol, a.Method)
	case ActionNoOp:
		return "No operation"
	default:
		return string(a.Kind)
	}
}
