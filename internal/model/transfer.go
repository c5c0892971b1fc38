package model

// TransferSOLRequest represents request for POST /wallet/transfer/sol
type TransferSOLRequest struct {
	ToAddress string `json:"toAddress" binding:"required"`
	Amount    string `json:"amount" binding:"required"` // SOL, decimal string
	Memo      string `json:"memo,omitempty"`
}

// TransferTokenRequest represents request for POST /wallet/transfer/token
type TransferTokenRequest struct {
	Mint          string `json:"mint" binding:"required"`
	ToAddress     string `json:"toAddress" binding:"required"`
	Amount        string `json:"amount" binding:"required"` // token units, decimal string
	Decimals      *uint8 `json:"decimals,omitempty"`
	CreateAccount bool   `json:"createAccount,omitempty"`
	Memo          string `json:"memo,omitempty"`
}

// TransferResponse represents response for POST /wallet/transfer/...
type TransferResponse struct {
	ID   string `json:"id"`
	TxID string `json:"txId"`
}

// SimulateRequest represents request for POST /wallet/simulate
type SimulateRequest struct {
	Action Action `json:"action"`
}

// SimulateResponse represents response for POST /wallet/simulate
type SimulateResponse struct {
	Success              bool     `json:"success"`
	Logs                 []string `json:"logs"`
	ComputeUnitsConsumed uint64   `json:"compute_units_consumed"`
	Error                string   `json:"error,omitempty"`
	Fee                  uint64   `json:"fee"`
	Warnings             []string `json:"warnings,omitempty"`
}
