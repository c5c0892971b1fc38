package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AlexZinkM/agent-wallet/internal/client"
	"github.com/AlexZinkM/agent-wallet/internal/model"
)

const defaultMaxIdle = 5 * time.Minute

// Ledger is the maintenance surface of the RPC client.
type Ledger interface {
	Endpoints() []client.Endpoint
	CurrentEndpoint() client.Endpoint
	SwitchCount() uint64
	Health() map[string]client.EndpointHealth
	PoolStats() map[string]client.PoolStats
	ProbeEndpoints(ctx context.Context) map[string]error
	CleanupIdleConnections(maxIdle time.Duration) int
}

// LedgerHandler serves the /ledger routes.
type LedgerHandler struct {
	ledger Ledger
}

// NewLedgerHandler creates a handler over ledger.
func NewLedgerHandler(ledger Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Health handles GET /ledger/health
// @Summary      RPC endpoint health
// @Description  Health score and pool usage of every configured endpoint
// @Tags         ledger
// @Produce      json
// @Param        probe  query     bool  false  "Call getHealth on every endpoint first"
// @Success      200    {object}  model.LedgerHealthResponse
// @Router       /ledger/health [get]
func (h *LedgerHandler) Health(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	if probe, _ := strconv.ParseBool(r.URL.Query().Get("probe")); probe {
		h.ledger.ProbeEndpoints(r.Context())
	}

	health := h.ledger.Health()
	pools := h.ledger.PoolStats()
	resp := model.LedgerHealthResponse{
		Current:   h.ledger.CurrentEndpoint().URL,
		Switches:  h.ledger.SwitchCount(),
		Endpoints: make(map[string]model.EndpointStatus),
	}
	for _, ep := range h.ledger.Endpoints() {
		hl := health[ep.URL]
		pool := pools[ep.URL]
		resp.Endpoints[ep.URL] = model.EndpointStatus{
			Priority:            ep.Priority,
			Healthy:             hl.Healthy(),
			SuccessRate:         hl.SuccessRate,
			ConsecutiveFailures: hl.ConsecutiveFailures,
			TotalRequests:       hl.TotalRequests,
			TotalErrors:         hl.TotalErrors,
			LastSuccess:         hl.LastSuccess,
			LastFailure:         hl.LastFailure,
			OpenConnections:     pool.Open,
			InUse:               pool.InUse,
			Capacity:            pool.Capacity,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Cleanup handles POST /ledger/cleanup
// @Summary      Close idle RPC connections
// @Description  Closes pooled connections idle for longer than maxIdle
// @Tags         ledger
// @Produce      json
// @Param        maxIdle  query     string  false  "Idle threshold as a Go duration (default 5m)"
// @Success      200      {object}  model.CleanupResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /ledger/cleanup [post]
func (h *LedgerHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}
	maxIdle := defaultMaxIdle
	if s := r.URL.Query().Get("maxIdle"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			badRequest(w, "invalid maxIdle duration")
			return
		}
		maxIdle = d
	}
	writeJSON(w, http.StatusOK, model.CleanupResponse{Closed: h.ledger.CleanupIdleConnections(maxIdle)})
}
