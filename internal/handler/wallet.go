package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/agent-wallet/internal/client"
	"github.com/AlexZinkM/agent-wallet/internal/common"
	"github.com/AlexZinkM/agent-wallet/internal/model"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
	"github.com/AlexZinkM/agent-wallet/wallet"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// Wallet is what the HTTP surface needs from a loaded wallet.
type Wallet interface {
	Address() string
	Info(ctx context.Context) (model.WalletInfo, error)
	Balance(ctx context.Context) (uint64, error)
	TokenBalance(ctx context.Context, mint solana.PublicKey) (client.TokenAmount, solana.PublicKey, error)
	History(filter *model.HistoryFilter) ([]model.TransactionRecord, error)
	TotalSpent() uint64
	RecentErrors() []model.FailureRecord
	AddressQR(size int) ([]byte, error)
	Perform(ctx context.Context, action model.Action) (*model.TransactionRecord, error)
	Simulate(ctx context.Context, action model.Action) (*wallet.Simulation, error)
}

// PriceSource quotes SOL in USD.
type PriceSource interface {
	SOLPriceUSD(ctx context.Context) (float64, error)
}

// WalletHandler serves the /wallet routes for one loaded wallet.
type WalletHandler struct {
	wallet Wallet
	prices PriceSource
	log    *slog.Logger
}

// NewWalletHandler creates a handler. A nil prices disables USD quotes.
func NewWalletHandler(w Wallet, prices PriceSource) *WalletHandler {
	return &WalletHandler{
		wallet: w,
		prices: prices,
		log:    logger.Named("handler"),
	}
}

// Info handles GET /wallet/info
// @Summary      Wallet summary
// @Description  Address, balance, permission level and spending budget of the loaded wallet
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletInfo
// @Failure      502  {object}  model.ErrorResponse
// @Router       /wallet/info [get]
func (h *WalletHandler) Info(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	info, err := h.wallet.Info(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Balance handles GET /wallet/balance
// @Summary      Wallet balance
// @Description  SOL balance with an optional USD quote, or the balance of one token when mint is given
// @Tags         wallet
// @Produce      json
// @Param        mint  query     string  false  "Token mint address"
// @Param        usd   query     bool    false  "Include the USD value of the SOL balance"
// @Success      200   {object}  model.BalanceResponse
// @Failure      400   {object}  model.ErrorResponse
// @Router       /wallet/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	if mintStr := r.URL.Query().Get("mint"); mintStr != "" {
		mint, err := solana.PublicKeyFromBase58(mintStr)
		if err != nil {
			badRequest(w, "invalid mint address")
			return
		}
		amount, account, err := h.wallet.TokenBalance(ctx, mint)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, model.TokenBalanceResponse{
			Address:  h.wallet.Address(),
			Mint:     mint.String(),
			Account:  account.String(),
			Amount:   amount.Amount,
			Decimals: amount.Decimals,
			UIAmount: common.FormatAmount(amount.Amount, int(amount.Decimals)),
		})
		return
	}

	lamports, err := h.wallet.Balance(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := model.BalanceResponse{
		Address:  h.wallet.Address(),
		Lamports: lamports,
		SOL:      common.LamportsToSOL(lamports),
	}

	// The quote is best effort; a price feed outage does not fail the balance.
	if wantUSD, _ := strconv.ParseBool(r.URL.Query().Get("usd")); wantUSD && h.prices != nil {
		price, err := h.prices.SOLPriceUSD(ctx)
		if err != nil {
			h.log.Warn("price feed unavailable", slog.Any("error", err))
		} else {
			resp.Rate = strconv.FormatFloat(price, 'f', 2, 64)
			resp.USD = client.FormatUSD(lamports, price)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /wallet/history
// @Summary      Local action history
// @Description  Actions performed by this wallet since it was loaded, newest first
// @Tags         wallet
// @Produce      json
// @Param        status     query     string  false  "submitted, completed or failed"
// @Param        kind       query     string  false  "Action kind, e.g. transfer_sol"
// @Param        from       query     string  false  "Start date (YYYY-MM-DD)"
// @Param        to         query     string  false  "End date (YYYY-MM-DD)"
// @Param        minAmount  query     string  false  "Minimum amount in SOL"
// @Param        maxAmount  query     string  false  "Maximum amount in SOL"
// @Param        limit      query     int     false  "Maximum number of records"
// @Success      200  {object}  model.HistoryResponse
// @Failure      400  {object}  model.ErrorResponse
// @Router       /wallet/history [get]
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	var filter model.HistoryFilter

	// Parse date parameters (YYYY-MM-DD)
	const dateLayout = "2006-01-02"
	if fromStr := q.Get("from"); fromStr != "" {
		t, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			badRequest(w, "invalid from date: use YYYY-MM-DD (e.g. 2006-01-02)")
			return
		}
		filter.From = &t
	}
	if toStr := q.Get("to"); toStr != "" {
		t, err := time.Parse(dateLayout, toStr)
		if err != nil {
			badRequest(w, "invalid to date: use YYYY-MM-DD (e.g. 2006-01-02)")
			return
		}
		// End of day so filter is inclusive
		t = t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &t
	}

	if s := q.Get("status"); s != "" {
		status := model.TransactionStatus(s)
		filter.Status = &status
	}
	if k := q.Get("kind"); k != "" {
		kind := model.ActionKind(k)
		filter.Kind = &kind
	}

	// Amounts are given in SOL
	if s := q.Get("minAmount"); s != "" {
		v, err := common.SOLToLamports(s)
		if err != nil {
			badRequest(w, "invalid minAmount: "+err.Error())
			return
		}
		filter.MinAmount = &v
	}
	if s := q.Get("maxAmount"); s != "" {
		v, err := common.SOLToLamports(s)
		if err != nil {
			badRequest(w, "invalid maxAmount: "+err.Error())
			return
		}
		filter.MaxAmount = &v
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			badRequest(w, "invalid limit")
			return
		}
		filter.Limit = n
	}

	records, err := h.wallet.History(&filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.HistoryResponse{
		Address:      h.wallet.Address(),
		TotalSpent:   common.LamportsToSOL(h.wallet.TotalSpent()),
		Transactions: records,
	})
}

// Errors handles GET /wallet/errors
// @Summary      Recent failures
// @Description  The last failed actions with their category and whether a retry may succeed
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.ErrorsResponse
// @Router       /wallet/errors [get]
func (h *WalletHandler) Errors(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, model.ErrorsResponse{Errors: h.wallet.RecentErrors()})
}

// QR handles GET /wallet/qr
// @Summary      Address QR code
// @Description  PNG QR code of the wallet address
// @Tags         wallet
// @Produce      png
// @Param        size  query  int  false  "Image size in pixels (default 256)"
// @Success      200
// @Router       /wallet/qr [get]
func (h *WalletHandler) QR(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxQRSize {
			badRequest(w, "size must be between 1 and 1024")
			return
		}
		size = n
	}
	png, err := h.wallet.AddressQR(size)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// TransferSOL handles POST /wallet/transfer/sol
// @Summary      Send SOL
// @Description  Sends SOL after permission, budget and balance checks
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.TransferSOLRequest  true  "Transfer data"
// @Success      200      {object}  model.TransferResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Failure      429      {object}  model.ErrorResponse
// @Router       /wallet/transfer/sol [post]
func (h *WalletHandler) TransferSOL(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}
	var req model.TransferSOLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := solana.PublicKeyFromBase58(req.ToAddress)
	if err != nil {
		badRequest(w, "invalid Solana address")
		return
	}
	lamports, err := common.SOLToLamports(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount: "+err.Error())
		return
	}
	h.perform(w, r, model.TransferSOL(to, lamports, req.Memo))
}

// TransferToken handles POST /wallet/transfer/token
// @Summary      Send tokens
// @Description  Sends an SPL token, optionally creating the recipient's token account
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.TransferTokenRequest  true  "Transfer data"
// @Success      200      {object}  model.TransferResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Router       /wallet/transfer/token [post]
func (h *WalletHandler) TransferToken(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}
	var req model.TransferTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		badRequest(w, "invalid mint address")
		return
	}
	to, err := solana.PublicKeyFromBase58(req.ToAddress)
	if err != nil {
		badRequest(w, "invalid Solana address")
		return
	}

	// With decimals the amount is in whole tokens, else in base units
	decimals := 0
	if req.Decimals != nil {
		decimals = int(*req.Decimals)
	}
	amount, err := common.ParseAmount(req.Amount, decimals)
	if err != nil {
		badRequest(w, "invalid amount: "+err.Error())
		return
	}

	action := model.TransferToken(mint, to, amount, req.Decimals, req.Memo)
	action.CreateRecipientAccount = req.CreateAccount
	h.perform(w, r, action)
}

func (h *WalletHandler) perform(w http.ResponseWriter, r *http.Request, action model.Action) {
	rec, err := h.wallet.Perform(r.Context(), action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TransferResponse{ID: rec.ID, TxID: rec.Signature})
}

// Simulate handles POST /wallet/simulate
// @Summary      Dry-run an action
// @Description  Builds, checks and simulates an action without sending it or spending budget
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.SimulateRequest  true  "Action to simulate"
// @Success      200      {object}  model.SimulateResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/simulate [post]
func (h *WalletHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}
	var req model.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	sim, err := h.wallet.Simulate(r.Context(), req.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SimulateResponse{
		Success:              sim.Result.Success,
		Logs:                 sim.Result.Logs,
		ComputeUnitsConsumed: sim.Result.ComputeUnitsConsumed,
		Error:                sim.Result.Error,
		Fee:                  sim.Result.Fee,
		Warnings:             sim.Validation.Warnings,
	})
}
