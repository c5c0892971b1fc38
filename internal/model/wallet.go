package model

import "time"

// WalletInfo represents response for GET /wallet/info
type WalletInfo struct {
	Name             string          `json:"name"`
	Address          string          `json:"address"`
	CreatedAt        time.Time       `json:"created_at"`
	LastAccessed     time.Time       `json:"last_accessed"`
	BalanceLamports  uint64          `json:"balance_lamports"`
	TransactionCount int             `json:"transaction_count"`
	Permission       PermissionLevel `json:"permission_level"`
	Spending         SpendingPolicy  `json:"spending"`
	Active           bool            `json:"active"`
}

// LedgerHealthResponse represents response for GET /ledger/health
type LedgerHealthResponse struct {
	Current   string                    `json:"current_endpoint"`
	Switches  uint64                    `json:"switches"`
	Endpoints map[string]EndpointStatus `json:"endpoints"`
}

// EndpointStatus is the health and pool usage of one endpoint.
type EndpointStatus struct {
	Priority            uint32    `json:"priority"`
	Healthy             bool      `json:"healthy"`
	SuccessRate         float64   `json:"success_rate"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	TotalRequests       uint64    `json:"total_requests"`
	TotalErrors         uint64    `json:"total_errors"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	OpenConnections     int       `json:"open_connections"`
	InUse               int       `json:"in_use"`
	Capacity            int       `json:"capacity"`
}

// CleanupResponse represents response for POST /ledger/cleanup
type CleanupResponse struct {
	Closed int `json:"closed"`
}
