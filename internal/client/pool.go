package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"golang.org/x/time/rate"

	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
)

// conn is one pooled RPC client.
type conn struct {
	rpc      *rpc.Client
	inUse    bool
	lastUsed time.Time
}

// pool is a bounded set of clients for one endpoint. It is not safe for
// concurrent use on its own; LedgerClient guards it.
type pool struct {
	endpoint Endpoint
	capacity int
	conns    []*conn
	dial     func(Endpoint) *rpc.Client
}

func newPool(ep Endpoint, capacity int) *pool {
	return &pool{
		endpoint: ep,
		capacity: capacity,
		dial:     dialEndpoint,
	}
}

// dialEndpoint builds a solana-go client with the endpoint's auth header
// and rate limit.
func dialEndpoint(ep Endpoint) *rpc.Client {
	var headers map[string]string
	if ep.AuthToken != "" {
		headers = map[string]string{"Authorization": "Bearer " + ep.AuthToken}
	}
	if ep.RequestsPerSecond <= 0 {
		if headers == nil {
			return rpc.New(ep.URL)
		}
		return rpc.NewWithHeaders(ep.URL, headers)
	}

	burst := int(ep.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rpc.NewWithCustomRPCClient(&limitedClient{
		rpc:     jsonrpc.NewClientWithOpts(ep.URL, &jsonrpc.RPCClientOpts{CustomHeaders: headers}),
		limiter: rate.NewLimiter(rate.Limit(ep.RequestsPerSecond), burst),
	})
}

// limitedClient waits on limiter before every call. rpc.NewWithLimiter
// has no header option.
type limitedClient struct {
	rpc     jsonrpc.RPCClient
	limiter *rate.Limiter
}

func (l *limitedClient) CallForInto(ctx context.Context, out any, method string, params []any) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.rpc.CallForInto(ctx, out, method, params)
}

func (l *limitedClient) CallWithCallback(ctx context.Context, method string, params []any, callback func(*http.Request, *http.Response) error) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.rpc.CallWithCallback(ctx, method, params, callback)
}

func (l *limitedClient) CallBatch(ctx context.Context, requests jsonrpc.RPCRequests) (jsonrpc.RPCResponses, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.rpc.CallBatch(ctx, requests)
}

func (l *limitedClient) Close() error {
	return l.rpc.Close()
}

// acquire returns an idle client, dials a new one under capacity, or fails
// with POOL_BUSY. It never waits.
func (p *pool) acquire(now time.Time) (*conn, error) {
	for _, c := range p.conns {
		if !c.inUse {
			c.inUse = true
			c.lastUsed = now
			return c, nil
		}
	}
	if len(p.conns) >= p.capacity {
		return nil, apperrors.New(apperrors.CodePoolBusy,
			fmt.Sprintf("all %d connections to %s are in use", p.capacity, p.endpoint.URL),
			apperrors.WithMetadata("endpoint", p.endpoint.URL))
	}
	c := &conn{rpc: p.dial(p.endpoint), inUse: true, lastUsed: now}
	p.conns = append(p.conns, c)
	return c, nil
}

func (p *pool) release(c *conn, now time.Time) {
	c.inUse = false
	c.lastUsed = now
}

// cleanupIdle drops clients idle for longer than maxIdle and returns how
// many were removed.
func (p *pool) cleanupIdle(now time.Time, maxIdle time.Duration) int {
	kept := p.conns[:0]
	removed := 0
	for _, c := range p.conns {
		if !c.inUse && now.Sub(c.lastUsed) > maxIdle {
			_ = c.rpc.Close()
			removed++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(p.conns); i++ {
		p.conns[i] = nil
	}
	p.conns = kept
	return removed
}

func (p *pool) stats() PoolStats {
	st := PoolStats{Capacity: p.capacity, Open: len(p.conns)}
	for _, c := range p.conns {
		if c.inUse {
			st.InUse++
		}
	}
	return st
}

func (p *pool) close() {
	for _, c := range p.conns {
		_ = c.rpc.Close()
	}
	p.conns = nil
}

// PoolStats is a snapshot of one endpoint pool.
type PoolStats struct {
	Capacity int `json:"capacity"`
	Open     int `json:"open"`
	InUse    int `json:"in_use"`
}
