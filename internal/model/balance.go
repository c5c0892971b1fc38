package model

// BalanceResponse represents response for GET /wallet/balance
type BalanceResponse struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	SOL      string `json:"sol"`
	Rate     string `json:"sol_usd_rate,omitempty"`
	USD      string `json:"usd,omitempty"`
}

// TokenBalanceResponse represents response for GET /wallet/balance?mint=...
type TokenBalanceResponse struct {
	Address  string `json:"address"`
	Mint     string `json:"mint"`
	Account  string `json:"token_account"`
	Amount   uint64 `json:"amount"`
	Decimals uint8  `json:"decimals"`
	UIAmount string `json:"ui_amount"`
}
