package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reachly/wallet"
	"github.com/reachly/wallet/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	w := wallet.New(memory.New(),
		wallet.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := w.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Stop() })

	ts := httptest.NewServer(NewServer(w).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status body = %q, want ok", body["status"])
	}
}

func TestStatusCreatesAccount(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/wallets/user-1/status")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var status wallet.Status
	decodeJSON(t, resp, &status)
	if status.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", status.UserID)
	}
	if status.Plan != "free" {
		t.Errorf("Plan = %q, want free", status.Plan)
	}
	if status.Balance.Amount != 0 {
		t.Errorf("Balance = %d, want 0", status.Balance.Amount)
	}
}

func TestSpendFlow(t *testing.T) {
	ts := newTestServer(t)

	// Fund the wallet first.
	resp := postJSON(t, ts.URL+"/v1/wallets/user-1/credit", map[string]any{
		"amount_cents": 1000,
		"reason":       "promo",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("credit status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/v1/wallets/user-1/spend", map[string]any{
		"amount_cents": 400,
		"action_type":  "reaction",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("spend status = %d, want 200", resp.StatusCode)
	}

	var entry struct {
		Type         string `json:"type"`
		AmountCents  int64  `json:"amount_cents"`
		BalanceAfter int64  `json:"balance_after"`
	}
	decodeJSON(t, resp, &entry)
	if entry.Type != "debit" || entry.AmountCents != 400 || entry.BalanceAfter != 600 {
		t.Errorf("entry = %+v, want debit/400 ending at 600", entry)
	}
}

func TestSpendInsufficientFunds(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/wallets/user-1/spend", map[string]any{
		"amount_cents": 100,
		"action_type":  "comment",
	})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", resp.StatusCode)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeJSON(t, resp, &body)
	if body.Error.Code != "insufficient_funds" {
		t.Errorf("error code = %q, want insufficient_funds", body.Error.Code)
	}
}

func TestSpendInvalidBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/wallets/user-1/spend", "application/json",
		bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSpendInvalidAmount(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/wallets/user-1/spend", map[string]any{
		"amount_cents": -5,
		"action_type":  "reaction",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, ts.URL+"/v1/wallets/user-1/credit", map[string]any{
			"amount_cents": 100,
		})
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/v1/wallets/user-1/history?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		UserID       string            `json:"user_id"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Transactions) != 2 {
		t.Errorf("got %d transactions, want 2", len(body.Transactions))
	}

	resp, err = http.Get(ts.URL + "/v1/wallets/user-1/history?limit=abc")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
}

func TestSetPlanEndpoint(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/v1/wallets/user-1/plan",
		bytes.NewReader([]byte(`{"plan":"pro"}`)))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var acct struct {
		Plan string `json:"plan"`
	}
	decodeJSON(t, resp, &acct)
	if acct.Plan != "pro" {
		t.Errorf("Plan = %q, want pro", acct.Plan)
	}

	// Unknown plan is a 404: the catalog has no such entry.
	req, _ = http.NewRequest(http.MethodPut, ts.URL+"/v1/wallets/user-1/plan",
		bytes.NewReader([]byte(`{"plan":"enterprise"}`)))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown plan status = %d, want 404", resp.StatusCode)
	}
}

func TestListPlans(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/plans")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Plans []struct {
			ID string `json:"id"`
		} `json:"plans"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Plans) != 3 {
		t.Fatalf("got %d plans, want 3", len(body.Plans))
	}
	want := []string{"free", "pro", "scale"}
	for i, p := range body.Plans {
		if p.ID != want[i] {
			t.Errorf("plans[%d] = %q, want %q", i, p.ID, want[i])
		}
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient funds", wallet.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
		{"not found", wallet.ErrAccountNotFound, http.StatusNotFound, "not_found"},
		// An unreachable backend is a failed request, not a retry hint.
		{"store unavailable", fmt.Errorf("%w: dial tcp: refused", wallet.ErrStoreUnavailable), http.StatusServiceUnavailable, "store_unavailable"},
		{"conflict", &wallet.ConflictError{UserID: "user-1", Op: "apply"}, http.StatusConflict, "conflict"},
		{"invalid amount", wallet.ErrInvalidAmount, http.StatusBadRequest, "invalid_request"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
		})
	}
}
