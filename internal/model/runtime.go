package model

import (
	"time"
)

// MaxRecentErrors is how many failures RuntimeState keeps.
const MaxRecentErrors = 10

const successRateDecay = 0.95

// TransactionStatus of a history record.
type TransactionStatus string

const (
	// StatusSubmitted was accepted by the RPC node. Confirmation is not awaited.
	StatusSubmitted TransactionStatus = "submitted"
	// StatusCompleted is an action that needed no transaction.
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// TransactionRecord is one entry of the wallet's local history.
type TransactionRecord struct {
	ID          string            `json:"id"`
	Signature   string            `json:"signature,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Kind        ActionKind        `json:"kind"`
	Description string            `json:"description"`
	Amount      uint64            `json:"amount"`
	Mint        string            `json:"mint,omitempty"`
	Destination string            `json:"destination,omitempty"`
	Status      TransactionStatus `json:"status"`
	Fee         uint64            `json:"fee"`
	Memo        string            `json:"memo,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// FailureRecord describes one failed operation.
type FailureRecord struct {
	Message     string    `json:"message"`
	Code        string    `json:"code"`
	Category    string    `json:"category"`
	Recoverable bool      `json:"recoverable"`
	Context     string    `json:"context"`
	Timestamp   time.Time `json:"timestamp"`
}

// RuntimeState is the mutable authorization and history state of a loaded
// wallet. It is not safe for concurrent use; the wallet guards it.
type RuntimeState struct {
	Permission    PermissionLevel     `json:"permission"`
	Spending      SpendingPolicy      `json:"spending"`
	History       []TransactionRecord `json:"history"`
	RecentErrors  []FailureRecord     `json:"recent_errors"`
	DecisionCount uint64              `json:"decision_count"`
	SuccessRate   float64             `json:"success_rate"`
	LastActionAt  *time.Time          `json:"last_action_at,omitempty"`
}

// NewRuntimeState has empty history and a perfect success rate.
func NewRuntimeState(permission PermissionLevel, spending SpendingPolicy) *RuntimeState {
	return &RuntimeState{
		Permission:  permission,
		Spending:    spending,
		SuccessRate: 1.0,
	}
}

// RecordSuccess deducts the spend and appends rec.
func (s *RuntimeState) RecordSuccess(rec TransactionRecord, spend uint64) {
	s.Spending.Deduct(spend)
	s.History = append(s.History, rec)
	s.DecisionCount++
	s.SuccessRate = s.SuccessRate*successRateDecay + (1 - successRateDecay)
	at := rec.Timestamp
	s.LastActionAt = &at
}

// RecordFailure appends rec, if any, and f. The budget is left alone.
func (s *RuntimeState) RecordFailure(rec *TransactionRecord, f FailureRecord) {
	if rec != nil {
		s.History = append(s.History, *rec)
	}
	s.RecentErrors = append(s.RecentErrors, f)
	if n := len(s.RecentErrors); n > MaxRecentErrors {
		s.RecentErrors = append([]FailureRecord(nil), s.RecentErrors[n-MaxRecentErrors:]...)
	}
	s.DecisionCount++
	s.SuccessRate = s.SuccessRate * successRateDecay
	at := f.Timestamp
	s.LastActionAt = &at
}

// Clone returns a deep copy.
func (s *RuntimeState) Clone() RuntimeState {
	out := *s
	out.History = append([]TransactionRecord(nil), s.History...)
	out.RecentErrors = append([]FailureRecord(nil), s.RecentErrors...)
	if s.LastActionAt != nil {
		at := *s.LastActionAt
		out.LastActionAt = &at
	}
	return out
}
