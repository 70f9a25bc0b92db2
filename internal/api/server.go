// Package api provides the walletd HTTP server: a thin JSON layer over
// the wallet engine.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reachly/wallet"
)

// Server is the walletd HTTP API server.
type Server struct {
	wallet         *wallet.Wallet
	timeout        time.Duration
	metricsEnabled bool
}

// NewServer creates a new API server over the given engine.
func NewServer(w *wallet.Wallet) *Server {
	return &Server{wallet: w, timeout: 30 * time.Second}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetTimeout sets the per-request timeout.
func (s *Server) SetTimeout(d time.Duration) { s.timeout = d }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	// Wallet endpoints
	r.Route("/v1/wallets/{userID}", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Post("/spend", s.handleSpend)
		r.Post("/credit", s.handleCredit)
		r.Put("/plan", s.handleSetPlan)
	})

	// Plan catalog
	r.Get("/v1/plans", s.handleListPlans)

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client gone, nothing to do
}

// writeError maps an engine error to a JSON error response with the
// appropriate HTTP status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	switch {
	case wallet.IsInsufficientFunds(err):
		status = http.StatusPaymentRequired
		code = "insufficient_funds"
	case wallet.IsNotFound(err):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, wallet.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		code = "store_unavailable"
	case errors.Is(err, wallet.ErrConflict):
		status = http.StatusConflict
		code = "conflict"
	case errors.Is(err, wallet.ErrInvalidAmount) || errors.Is(err, wallet.ErrInvalidInput):
		status = http.StatusBadRequest
		code = "invalid_request"
	}

	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": err.Error(),
		},
	})
}
