package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"invochain/core/events"
	"invochain/core/state"
	"invochain/native/invoice"
	"invochain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeRateLimited    = -32020

	codeInvoiceInvalidParams = -32021
	codeInvoiceNotFound      = -32022
	codeInvoiceForbidden     = -32023
	codeInvoiceConflict      = -32024
	codeInvoiceInternal      = -32025
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type handlerFunc func(params []json.RawMessage) (interface{}, *RPCError)

type methodSpec struct {
	handler      handlerFunc
	requiresAuth bool
}

// Server exposes the invoice engine over JSON-RPC 2.0. Mutating methods
// require the configured bearer token; reads and the status poller are
// public. Requests are rate limited per source address.
type Server struct {
	engine  *invoice.Engine
	ledger  *state.Manager
	emitter *events.MemoryEmitter
	log     *slog.Logger

	authToken string
	methods   map[string]methodSpec

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewServer wires a server around an initialized engine. The emitter may be
// nil, which disables the recent-events endpoint. An empty auth token locks
// every mutating method out.
func NewServer(engine *invoice.Engine, ledger *state.Manager, emitter *events.MemoryEmitter, authToken string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		engine:    engine,
		ledger:    ledger,
		emitter:   emitter,
		log:       log,
		authToken: strings.TrimSpace(authToken),
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Limit(25),
		burst:     50,
	}
	s.methods = s.routes()
	return s
}

// SetRateLimit overrides the per-source request budget.
func (s *Server) SetRateLimit(perSecond float64, burst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perSecond > 0 {
		s.limit = rate.Limit(perSecond)
	}
	if burst > 0 {
		s.burst = burst
	}
	s.limiters = make(map[string]*rate.Limiter)
}

// Router returns the HTTP surface: health, metrics and the JSON-RPC
// endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	r.Post("/rpc", s.handleRPC)
	return r
}

func writeError(w http.ResponseWriter, status int, id interface{}, rpcErr *RPCError) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) limiterFor(source string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[source] = limiter
	}
	return limiter
}

func clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.limiterFor(clientSource(r)).Allow() {
		observability.RPCMetrics().Throttled()
		writeError(w, http.StatusTooManyRequests, nil, &RPCError{Code: codeRateLimited, Message: "rate limit exceeded"})
		return
	}

	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() { _ = reader.Close() }()
	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, &RPCError{Code: codeInvalidRequest, Message: message, Data: err.Error()})
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, &RPCError{Code: codeInvalidRequest, Message: "request body required"})
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()})
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, &RPCError{Code: codeInvalidRequest, Message: "unsupported jsonrpc version", Data: req.JSONRPC})
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, &RPCError{Code: codeInvalidRequest, Message: "method required"})
		return
	}

	spec, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)})
		return
	}
	if spec.requiresAuth {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr)
			return
		}
	}

	start := time.Now()
	result, rpcErr := spec.handler(req.Params)
	if rpcErr != nil {
		observability.RPCMetrics().Observe(req.Method, rpcErr.Code, time.Since(start))
		s.log.Warn("rpc request failed", "method", req.Method, "code", rpcErr.Code, "message", rpcErr.Message)
		writeError(w, statusForCode(rpcErr.Code), req.ID, rpcErr)
		return
	}
	observability.RPCMetrics().Observe(req.Method, 0, time.Since(start))
	writeResult(w, req.ID, result)
}

func statusForCode(code int) int {
	switch code {
	case codeInvoiceNotFound:
		return http.StatusNotFound
	case codeInvoiceForbidden, codeUnauthorized:
		return http.StatusForbidden
	case codeInvoiceConflict:
		return http.StatusConflict
	case codeInvoiceInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func invalidParams(detail interface{}) *RPCError {
	return &RPCError{Code: codeInvoiceInvalidParams, Message: "invalid_params", Data: detail}
}

// errorToRPC maps the engine's sentinel errors onto stable RPC codes.
func errorToRPC(err error) *RPCError {
	switch {
	case errors.Is(err, invoice.ErrInvoiceNotFound),
		errors.Is(err, invoice.ErrDisputeNotFound),
		errors.Is(err, invoice.ErrHoldingNotFound),
		errors.Is(err, invoice.ErrOrderNotFound):
		return &RPCError{Code: codeInvoiceNotFound, Message: "not_found", Data: err.Error()}
	case errors.Is(err, invoice.ErrUnauthorized),
		errors.Is(err, invoice.ErrKYCRequired):
		return &RPCError{Code: codeInvoiceForbidden, Message: "forbidden", Data: err.Error()}
	case errors.Is(err, invoice.ErrInvalidAmount),
		errors.Is(err, invoice.ErrSelfTransfer),
		errors.Is(err, invoice.ErrInvalidAuctionParams):
		return &RPCError{Code: codeInvoiceInvalidParams, Message: "invalid_params", Data: err.Error()}
	case errors.Is(err, invoice.ErrInvalidStatus),
		errors.Is(err, invoice.ErrInvoiceDisputed),
		errors.Is(err, invoice.ErrInvoiceExists),
		errors.Is(err, invoice.ErrCannotRevoke),
		errors.Is(err, invoice.ErrAlreadyInitialized),
		errors.Is(err, invoice.ErrNotInitialized),
		errors.Is(err, invoice.ErrNotDefaulted),
		errors.Is(err, invoice.ErrAlreadyClaimed),
		errors.Is(err, invoice.ErrOrderNotActive),
		errors.Is(err, invoice.ErrOrderAlreadyFilled),
		errors.Is(err, invoice.ErrAuctionNotStarted),
		errors.Is(err, invoice.ErrInsufficientTokens),
		errors.Is(err, invoice.ErrInsufficientPayment),
		errors.Is(err, invoice.ErrInsufficientFunds),
		errors.Is(err, invoice.ErrInsufficientInsurancePool):
		return &RPCError{Code: codeInvoiceConflict, Message: "conflict", Data: err.Error()}
	default:
		return &RPCError{Code: codeInvoiceInternal, Message: "internal_error", Data: err.Error()}
	}
}
