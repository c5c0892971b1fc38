package model

import (
	"fmt"
	"time"
)

// HistoryFilter selects history records for GET /wallet/history.
type HistoryFilter struct {
	Status    *TransactionStatus `form:"status"`
	Kind      *ActionKind        `form:"kind"`
	From      *time.Time         `form:"from"`
	To        *time.Time         `form:"to"`
	MinAmount *uint64            `form:"minAmount"`
	MaxAmount *uint64            `form:"maxAmount"`
	Limit     int                `form:"limit"`
}

// Validate validates HistoryFilter parameters.
func (f *HistoryFilter) Validate() error {
	if f.Status != nil && *f.Status != StatusSubmitted && *f.Status != StatusCompleted && *f.Status != StatusFailed {
		return fmt.Errorf("status must be submitted, completed or failed")
	}
	if f.Kind != nil && !f.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", *f.Kind)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("to date must be after or equal to from date")
	}
	if f.MinAmount != nil && f.MaxAmount != nil && *f.MinAmount > *f.MaxAmount {
		return fmt.Errorf("minAmount must be less than or equal to maxAmount")
	}
	if f.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	return nil
}

// Match reports whether rec passes every set criterion.
func (f *HistoryFilter) Match(rec TransactionRecord) bool {
	if f.Status != nil && rec.Status != *f.Status {
		return false
	}
	if f.Kind != nil && rec.Kind != *f.Kind {
		return false
	}
	if f.From != nil && rec.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && rec.Timestamp.After(*f.To) {
		return false
	}
	if f.MinAmount != nil && rec.Amount < *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && rec.Amount > *f.MaxAmount {
		return false
	}
	return true
}

// Apply returns the matching records, newest first, capped at Limit when
// it is positive.
func (f *HistoryFilter) Apply(records []TransactionRecord) []TransactionRecord {
	out := make([]TransactionRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if f == nil || f.Match(records[i]) {
			out = append(out, records[i])
			if f != nil && f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
	}
	return out
}

// HistoryResponse represents response for GET /wallet/history
type HistoryResponse struct {
	Address      string              `json:"address"`
	TotalSpent   string              `json:"total_spent_sol"`
	Transactions []TransactionRecord `json:"transactions"`
}
