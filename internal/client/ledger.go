package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/pkg/logger"
)

// JSON-RPC error codes that will not succeed on a retry.
const (
	rpcCodeInvalidRequest  = -32600
	rpcCodeMethodNotFound  = -32601
	rpcCodeInvalidParams   = -32602
	rpcCodeSimulationFail  = -32002
	rpcCodeSignatureVerify = -32003
)

// LedgerClient spreads Solana RPC calls over several endpoints with
// bounded pools, health scoring and failover.
type LedgerClient struct {
	cfg       Config
	endpoints []Endpoint // ascending priority

	// mu guards pools, health and current.
	mu      sync.Mutex
	pools   map[string]*pool
	health  map[string]*EndpointHealth
	current Endpoint

	switches atomic.Uint64
	metrics  *metrics
	log      *slog.Logger
	now      func() time.Time
}

// New validates cfg and prepares one pool per endpoint. No connection is
// opened until the first request.
func New(cfg Config) (*LedgerClient, error) {
	cfg.applyDefaults()
	if len(cfg.Endpoints) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "at least one RPC endpoint is required")
	}

	endpoints := make([]Endpoint, 0, len(cfg.Endpoints))
	seen := make(map[string]bool, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		ep.URL = strings.TrimSpace(ep.URL)
		if ep.URL == "" {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "endpoint url cannot be empty")
		}
		if seen[ep.URL] {
			return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "duplicate endpoint %s", ep.URL)
		}
		seen[ep.URL] = true
		endpoints = append(endpoints, ep)
	}
	sort.SliceStable(endpoints, func(i, j int) bool { return endpoints[i].Priority < endpoints[j].Priority })

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	c := &LedgerClient{
		cfg:       cfg,
		endpoints: endpoints,
		pools:     make(map[string]*pool, len(endpoints)),
		health:    make(map[string]*EndpointHealth, len(endpoints)),
		current:   endpoints[0],
		metrics:   m,
		log:       logger.Named("ledger"),
		now:       time.Now,
	}
	for _, ep := range endpoints {
		h := NewEndpointHealth()
		c.health[ep.URL] = &h
		c.pools[ep.URL] = newPool(ep, cfg.MaxConnections)
		m.successRate.WithLabelValues(ep.URL).Set(h.SuccessRate)
	}
	return c, nil
}

// Op is one RPC call against a pooled client.
type Op[T any] func(ctx context.Context, conn *rpc.Client) (T, error)

// Execute runs op against the current endpoint, retrying up to MaxRetries
// times with a fixed delay and switching endpoints when the current one
// degrades. A busy pool fails at once; so does a switch with no healthy
// endpoint left.
func Execute[T any](ctx context.Context, c *LedgerClient, method string, op Op[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, classify(err)
		}

		ep, cn, err := c.acquire()
		if err != nil {
			return zero, err
		}

		start := time.Now()
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		out, err := op(reqCtx, cn.rpc)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			c.recordSuccess(ep, cn, method, "success", elapsed)
			return out, nil
		}

		failure := classify(err)
		// The endpoint answered; a missing account says nothing about its health.
		if apperrors.HasCode(failure, apperrors.CodeNotFound) {
			c.recordSuccess(ep, cn, method, "not_found", elapsed)
			return zero, failure
		}
		c.recordFailure(ep, cn, method, failure, elapsed)
		if !apperrors.RetryableError(failure) || ctx.Err() != nil {
			return zero, failure
		}
		lastErr = failure

		c.log.Warn("rpc request failed",
			slog.String("endpoint", ep.URL),
			slog.String("method", method),
			slog.Int("attempt", attempt+1),
			slog.Any("error", failure))

		if c.shouldSwitch(ep.URL) {
			if err := c.switchEndpoint(lastErr); err != nil {
				return zero, err
			}
		}

		if attempt < c.cfg.MaxRetries {
			if err := sleepContext(ctx, c.cfg.RetryDelay); err != nil {
				return zero, classify(err)
			}
		}
	}

	return zero, apperrors.Wrap(apperrors.CodeRetriesExhausted, lastErr,
		fmt.Sprintf("%s failed after %d attempts", method, c.cfg.MaxRetries+1))
}

func (c *LedgerClient) acquire() (Endpoint, *conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ep := c.current
	cn, err := c.pools[ep.URL].acquire(c.now())
	if err != nil {
		return ep, nil, err
	}
	c.metrics.poolInUse.WithLabelValues(ep.URL).Inc()
	return ep, cn, nil
}

func (c *LedgerClient) recordSuccess(ep Endpoint, cn *conn, method, status string, elapsed time.Duration) {
	c.mu.Lock()
	h := c.health[ep.URL]
	h.RecordSuccess(c.now())
	rate := h.SuccessRate
	c.pools[ep.URL].release(cn, c.now())
	c.mu.Unlock()

	c.metrics.poolInUse.WithLabelValues(ep.URL).Dec()
	c.metrics.successRate.WithLabelValues(ep.URL).Set(rate)
	c.metrics.observe(ep.URL, method, status, elapsed)
}

func (c *LedgerClient) recordFailure(ep Endpoint, cn *conn, method string, err error, elapsed time.Duration) {
	c.mu.Lock()
	h := c.health[ep.URL]
	h.RecordFailure(c.now())
	rate := h.SuccessRate
	c.pools[ep.URL].release(cn, c.now())
	c.mu.Unlock()

	c.metrics.poolInUse.WithLabelValues(ep.URL).Dec()
	c.metrics.successRate.WithLabelValues(ep.URL).Set(rate)
	c.metrics.observe(ep.URL, method, "error", elapsed)
	c.metrics.errors.WithLabelValues(ep.URL, strings.ToLower(string(apperrors.CodeOf(err)))).Inc()
}

func (c *LedgerClient) shouldSwitch(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health[url].shouldSwitch()
}

// switchEndpoint moves to the first endpoint by priority with a failure
// streak below the limit. That may be the current endpoint when the switch
// was triggered by a low success rate alone.
func (c *LedgerClient) switchEndpoint(cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ep := range c.endpoints {
		if !c.health[ep.URL].IsHealthy(maxConsecutiveFailures) {
			continue
		}
		if ep.URL == c.current.URL {
			return nil
		}
		from := c.current.URL
		c.current = ep
		c.switches.Add(1)
		c.metrics.switches.Inc()
		c.log.Info("switched rpc endpoint", slog.String("from", from), slog.String("to", ep.URL))
		return nil
	}
	return apperrors.Wrap(apperrors.CodeNoHealthyEndpoint, cause, "no healthy endpoint available")
}

// SwitchCount is the number of endpoint switches so far.
func (c *LedgerClient) SwitchCount() uint64 {
	return c.switches.Load()
}

// CurrentEndpoint returns the endpoint new requests go to.
func (c *LedgerClient) CurrentEndpoint() Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Endpoints returns the configured endpoints in priority order.
func (c *LedgerClient) Endpoints() []Endpoint {
	return append([]Endpoint(nil), c.endpoints...)
}

// Commitment is the default commitment level for reads.
func (c *LedgerClient) Commitment() rpc.CommitmentType {
	return c.cfg.Commitment
}

// Health returns a copy of every endpoint's health keyed by URL.
func (c *LedgerClient) Health() map[string]EndpointHealth {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]EndpointHealth, len(c.health))
	for url, h := range c.health {
		out[url] = *h
	}
	return out
}

// PoolStats returns a snapshot of every pool keyed by URL.
func (c *LedgerClient) PoolStats() map[string]PoolStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]PoolStats, len(c.pools))
	for url, p := range c.pools {
		out[url] = p.stats()
	}
	return out
}

// CleanupIdleConnections closes pooled clients idle for longer than
// maxIdle. It is not scheduled by the client; callers decide when.
func (c *LedgerClient) CleanupIdleConnections(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for _, p := range c.pools {
		removed += p.cleanupIdle(now, maxIdle)
	}
	if removed > 0 {
		c.log.Debug("idle rpc connections closed", slog.Int("count", removed))
	}
	return removed
}

// ProbeEndpoints calls getHealth on every endpoint directly, bypassing
// failover, and records each outcome. A successful probe is what brings an
// endpoint with a failure streak back into rotation.
func (c *LedgerClient) ProbeEndpoints(ctx context.Context) map[string]error {
	results := make(map[string]error, len(c.endpoints))
	for _, ep := range c.endpoints {
		c.mu.Lock()
		cn, err := c.pools[ep.URL].acquire(c.now())
		c.mu.Unlock()
		if err != nil {
			results[ep.URL] = err
			continue
		}
		c.metrics.poolInUse.WithLabelValues(ep.URL).Inc()

		start := time.Now()
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		_, err = cn.rpc.GetHealth(reqCtx)
		cancel()
		if err != nil {
			failure := classify(err)
			c.recordFailure(ep, cn, "getHealth", failure, time.Since(start))
			results[ep.URL] = failure
			continue
		}
		c.recordSuccess(ep, cn, "getHealth", "success", time.Since(start))
		results[ep.URL] = nil
	}
	return results
}

// Close closes every pooled client.
func (c *LedgerClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pools {
		p.close()
	}
}

// classify maps transport and RPC failures onto wallet error codes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.From(err); ok {
		return err
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return apperrors.Wrap(apperrors.CodeNotFound, err, "account not found", apperrors.WithRetryable(false))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.CodeTimeout, err, "rpc request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Wrap(apperrors.CodeTimeout, err, "rpc request cancelled", apperrors.WithRetryable(false))
	}

	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Code == http.StatusTooManyRequests:
			return apperrors.Wrap(apperrors.CodeRateLimited, err, "rpc endpoint rate limited")
		case httpErr.Code >= 500:
			return apperrors.Wrap(apperrors.CodeNetwork, err, "rpc endpoint unavailable")
		default:
			return apperrors.Wrap(apperrors.CodeRPC, err, "rpc endpoint rejected request", apperrors.WithRetryable(false))
		}
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case rpcCodeInvalidParams, rpcCodeInvalidRequest:
			return apperrors.Wrap(apperrors.CodeInvalidArgument, err, "invalid rpc params")
		case rpcCodeMethodNotFound, rpcCodeSimulationFail, rpcCodeSignatureVerify:
			return apperrors.Wrap(apperrors.CodeRPC, err, "rpc error", apperrors.WithRetryable(false))
		}
		return apperrors.Wrap(apperrors.CodeRPC, err, "rpc error")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperrors.Wrap(apperrors.CodeTimeout, err, "rpc request timed out")
		}
		return apperrors.Wrap(apperrors.CodeNetwork, err, "network failure")
	}
	return apperrors.Wrap(apperrors.CodeNetwork, err, "rpc transport failure")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
