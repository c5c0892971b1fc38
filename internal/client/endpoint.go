package client

import (
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultEndpointURL    = "https://api.devnet.solana.com"
	DefaultTimeout        = 30 * time.Second
	DefaultMaxConnections = 10
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 100 * time.Millisecond

	// maxConsecutiveFailures makes an endpoint unhealthy and triggers a switch.
	maxConsecutiveFailures = 3
	// lowSuccessRate triggers a switch once minRequestsForRate have been made.
	lowSuccessRate     = 0.5
	minRequestsForRate = 10

	healthDecay = 0.95
)

// Endpoint is one RPC target. Lower Priority is preferred.
type Endpoint struct {
	URL               string  `json:"url" yaml:"url"`
	Priority          uint32  `json:"priority" yaml:"priority"`
	AuthToken         string  `json:"-" yaml:"auth_token"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second"`
}

// Config configures a LedgerClient.
type Config struct {
	Endpoints      []Endpoint
	Timeout        time.Duration
	Commitment     rpc.CommitmentType
	MaxConnections int
	MaxRetries     int
	RetryDelay     time.Duration
	// Registerer receives the client's metrics. Nil means a private registry.
	Registerer prometheus.Registerer
}

// DefaultConfig targets devnet with one endpoint.
func DefaultConfig() Config {
	return Config{
		Endpoints:      []Endpoint{{URL: DefaultEndpointURL, Priority: 1}},
		Timeout:        DefaultTimeout,
		Commitment:     rpc.CommitmentConfirmed,
		MaxConnections: DefaultMaxConnections,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
	}
}

// SingleEndpoint is DefaultConfig pointed at url.
func SingleEndpoint(url string) Config {
	cfg := DefaultConfig()
	cfg.Endpoints = []Endpoint{{URL: url, Priority: 1}}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Commitment == "" {
		c.Commitment = rpc.CommitmentConfirmed
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
}

// EndpointHealth is a smoothed success signal for one endpoint.
type EndpointHealth struct {
	SuccessRate         float64   `json:"success_rate"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	TotalRequests       uint64    `json:"total_requests"`
	TotalErrors         uint64    `json:"total_errors"`
}

// NewEndpointHealth starts at a perfect score.
func NewEndpointHealth() EndpointHealth {
	return EndpointHealth{SuccessRate: 1.0}
}

// RecordSuccess moves the rate towards 1 and resets the failure streak.
func (h *EndpointHealth) RecordSuccess(now time.Time) {
	h.TotalRequests++
	h.ConsecutiveFailures = 0
	h.LastSuccess = now
	h.SuccessRate = h.SuccessRate*healthDecay + (1 - healthDecay)
}

// RecordFailure moves the rate towards 0 and extends the failure streak.
func (h *EndpointHealth) RecordFailure(now time.Time) {
	h.TotalRequests++
	h.TotalErrors++
	h.ConsecutiveFailures++
	h.LastFailure = now
	h.SuccessRate = h.SuccessRate * healthDecay
}

// IsHealthy reports whether the failure streak is below maxFailures.
func (h EndpointHealth) IsHealthy(maxFailures uint32) bool {
	return h.ConsecutiveFailures < maxFailures
}

// Healthy applies the client's own failure threshold.
func (h EndpointHealth) Healthy() bool {
	return h.IsHealthy(maxConsecutiveFailures)
}

// shouldSwitch is the failover trigger.
func (h EndpointHealth) shouldSwitch() bool {
	if h.ConsecutiveFailures >= maxConsecutiveFailures {
		return true
	}
	return h.SuccessRate < lowSuccessRate && h.TotalRequests > minRequestsForRate
}
