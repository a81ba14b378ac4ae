package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"zenbank/internal/core"
)

func TestParseHistoryQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantFilter core.TransactionType
		wantLimit  int
		wantErr    error
	}{
		{"empty", url.Values{}, "", 0, nil},
		{"all", url.Values{"type": {"all"}}, "", 0, nil},
		{"deposit with limit", url.Values{"type": {"deposit"}, "limit": {"10"}}, core.Deposit, 10, nil},
		{"short withdraw", url.Values{"type": {"Withdraw"}}, core.Withdrawal, 0, nil},
		{"unknown type", url.Values{"type": {"transfer"}}, "", 0, core.ErrInvalidTransactionType},
		{"negative limit", url.Values{"limit": {"-1"}}, "", 0, errBadRequest},
		{"huge limit", url.Values{"limit": {"100000"}}, "", 0, errBadRequest},
		{"non numeric limit", url.Values{"limit": {"ten"}}, "", 0, errBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, limit, err := ParseHistoryQuery(tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter != tt.wantFilter || limit != tt.wantLimit {
				t.Errorf("got (%q, %d), want (%q, %d)", filter, limit, tt.wantFilter, tt.wantLimit)
			}
		})
	}
}

func TestFlexAmount(t *testing.T) {
	tests := []struct {
		body      string
		wantCents int64
		wantErr   bool
	}{
		{`{"amount":"12.34"}`, 1234, false},
		{`{"amount":"12,5"}`, 1250, false},
		{`{"amount":7}`, 700, false},
		{`{"amount":0.1}`, 10, false},
		{`{"amount":"1.005"}`, 0, true},
		{`{"amount":-3}`, 0, true},
		{`{"amount":null}`, 0, true},
		{`{"amount":true}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req transactionRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			var m core.Money
			if err == nil {
				m, err = req.Amount.Money()
			}
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", m)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Cents != tt.wantCents {
				t.Errorf("cents = %d, want %d", m.Cents, tt.wantCents)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := bearerToken(req); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  al\x00ice\t "); got != "alice" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
