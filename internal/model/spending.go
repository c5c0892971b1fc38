package model

import (
	"time"

	"github.com/AlexZinkM/agent-wallet/internal/common"
	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
)

const (
	DefaultDailyLimit        = 10 * common.LamportsPerSOL
	DefaultPerOperationLimit = common.LamportsPerSOL

	budgetPeriod = 24 * time.Hour
)

// SpendingPolicy caps what the wallet may spend per operation and per day.
// All amounts are lamports.
type SpendingPolicy struct {
	DailyLimit        uint64    `json:"daily_limit"`
	PerOperationLimit uint64    `json:"per_operation_limit"`
	Remaining         uint64    `json:"remaining_daily_budget"`
	LastReset         time.Time `json:"last_reset"`
}

// NewSpendingPolicy starts with a full daily budget.
func NewSpendingPolicy(daily, perOperation uint64, now time.Time) SpendingPolicy {
	return SpendingPolicy{
		DailyLimit:        daily,
		PerOperationLimit: perOperation,
		Remaining:         daily,
		LastReset:         now,
	}
}

// DefaultSpendingPolicy allows 1 SOL per operation and 10 SOL per day.
func DefaultSpendingPolicy(now time.Time) SpendingPolicy {
	return NewSpendingPolicy(DefaultDailyLimit, DefaultPerOperationLimit, now)
}

// Check fails with LIMIT_EXCEEDED above the per-operation cap and with
// INSUFFICIENT_FUNDS above the remaining daily budget.
func (p SpendingPolicy) Check(amount uint64) error {
	if amount > p.PerOperationLimit {
		return apperrors.Newf(apperrors.CodeLimitExceeded,
			"amount %s SOL exceeds per-operation limit %s SOL",
			common.LamportsToSOL(amount), common.LamportsToSOL(p.PerOperationLimit))
	}
	if amount > p.Remaining {
		return apperrors.New(apperrors.CodeInsufficientFunds,
			"amount exceeds remaining daily budget",
			apperrors.WithMetadata("required", common.LamportsToSOL(amount)),
			apperrors.WithMetadata("available", common.LamportsToSOL(p.Remaining)))
	}
	return nil
}

// Deduct takes amount from the daily budget, stopping at zero.
func (p *SpendingPolicy) Deduct(amount uint64) {
	if amount >= p.Remaining {
		p.Remaining = 0
		return
	}
	p.Remaining -= amount
}

// ResetIfNeeded refills the budget once a full day has passed since the
// last reset. It reports whether it did.
func (p *SpendingPolicy) ResetIfNeeded(now time.Time) bool {
	if now.Sub(p.LastReset) < budgetPeriod {
		return false
	}
	p.Remaining = p.DailyLimit
	p.LastReset = now
	return true
}

// SetLimits replaces both caps. The remaining budget never exceeds the new
// daily cap.
func (p *SpendingPolicy) SetLimits(daily, perOperation uint64) {
	p.DailyLimit = daily
	p.PerOperationLimit = perOperation
	if p.Remaining > daily {
		p.Remaining = daily
	}
}
