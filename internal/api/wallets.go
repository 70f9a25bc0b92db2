package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reachly/wallet/plan"
)

// spendRequest is the body for POST /v1/wallets/{userID}/spend.
type spendRequest struct {
	AmountCents int64  `json:"amount_cents"`
	ActionType  string `json:"action_type"`
}

// creditRequest is the body for POST /v1/wallets/{userID}/credit.
type creditRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

// setPlanRequest is the body for PUT /v1/wallets/{userID}/plan.
type setPlanRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	status, err := s.wallet.Status(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": map[string]interface{}{
					"code":    "invalid_request",
					"message": "limit must be an integer",
				},
			})
			return
		}
		limit = n
	}

	entries, err := s.wallet.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"transactions": entries,
	})
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "invalid_request",
				"message": "malformed JSON body",
			},
		})
		return
	}

	entry, err := s.wallet.TrySpend(r.Context(), userID, req.AmountCents, req.ActionType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "invalid_request",
				"message": "malformed JSON body",
			},
		})
		return
	}

	entry, err := s.wallet.Credit(r.Context(), userID, req.AmountCents, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSetPlan(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req setPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "invalid_request",
				"message": "malformed JSON body",
			},
		})
		return
	}

	acct, err := s.wallet.SetPlan(r.Context(), userID, req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	catalog := s.wallet.Catalog()

	configs := make([]plan.Config, 0, len(catalog.IDs()))
	for _, planID := range catalog.IDs() {
		cfg, err := catalog.Lookup(planID)
		if err != nil {
			continue
		}
		configs = append(configs, cfg)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans": configs,
	})
}
