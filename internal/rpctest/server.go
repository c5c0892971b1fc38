// Package rpctest runs an in-process Solana JSON-RPC endpoint for tests.
package rpctest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Handler answers one JSON-RPC method. Returning a non-nil *Error sends a
// JSON-RPC error object instead of a result.
type Handler func(params []json.RawMessage) (any, *Error)

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type request struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Server is a scriptable JSON-RPC endpoint.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	handlers   map[string]Handler
	calls      map[string]int
	failStatus int
	failLeft   int
	sent       []string
	auth       string
}

// NewServer starts a server with defaults for the methods the wallet uses.
// Call Close when done.
func NewServer() *Server {
	s := &Server{
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
	}
	s.SetBalance(5_000_000_000)
	s.Handle("getHealth", func([]json.RawMessage) (any, *Error) { return "ok", nil })
	s.Handle("getLatestBlockhash", func([]json.RawMessage) (any, *Error) {
		return map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"blockhash":            solana.HashFromBytes(repeat(7)).String(),
				"lastValidBlockHeight": 1000,
			},
		}, nil
	})
	s.Handle("getAccountInfo", func([]json.RawMessage) (any, *Error) {
		return map[string]any{"context": map[string]any{"slot": 1}, "value": nil}, nil
	})
	s.Handle("sendTransaction", func(params []json.RawMessage) (any, *Error) {
		s.mu.Lock()
		if len(params) > 0 {
			var encoded string
			_ = json.Unmarshal(params[0], &encoded)
			s.sent = append(s.sent, encoded)
		}
		s.mu.Unlock()
		return solana.SignatureFromBytes(repeat64(9)).String(), nil
	})
	s.Handle("simulateTransaction", func([]json.RawMessage) (any, *Error) {
		return map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"err":           nil,
				"logs":          []string{"Program 11111111111111111111111111111111 invoke [1]", "Program 11111111111111111111111111111111 success"},
				"accounts":      nil,
				"unitsConsumed": 150,
			},
		}, nil
	})
	s.Handle("getSlot", func([]json.RawMessage) (any, *Error) { return 4242, nil })
	s.Handle("getMinimumBalanceForRentExemption", func([]json.RawMessage) (any, *Error) { return 2_039_280, nil })
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Handle installs or replaces the handler of method.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// SetBalance makes getBalance return lamports.
func (s *Server) SetBalance(lamports uint64) {
	s.Handle("getBalance", func([]json.RawMessage) (any, *Error) {
		return map[string]any{"context": map[string]any{"slot": 1}, "value": lamports}, nil
	})
}

// FailNext answers the next n requests with HTTP status instead of a
// JSON-RPC response. n < 0 fails every request.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLeft = n
	s.failStatus = status
}

// Calls returns how many times method was requested, failures included.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls counts every request.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Sent returns the base64 payloads of every sendTransaction call.
func (s *Server) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// Authorization returns the Authorization header of the last request.
func (s *Server) Authorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls[req.Method]++
	s.auth = r.Header.Get("Authorization")
	if s.failLeft != 0 {
		if s.failLeft > 0 {
			s.failLeft--
		}
		status := s.failStatus
		s.mu.Unlock()
		http.Error(w, "injected failure", status)
		return
	}
	h, ok := s.handlers[req.Method]
	s.mu.Unlock()

	resp := response{JSONRPC: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &Error{Code: -32601, Message: "Method not found"}
	} else {
		resp.Result, resp.Error = h(req.Params)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func repeat(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

func repeat64(b byte) []byte {
	out := make([]byte, 64)
	for i := range out {
		out[i] = b
	}
	return out
}
