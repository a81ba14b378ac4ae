package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"zenbank/internal/core"
	"zenbank/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports not_ready while the account store is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.ready != nil {
		if err := s.ready.Ping(ctx); err != nil {
			checks["accounts"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["accounts"] = "ok"
		}
	} else {
		checks["accounts"] = "in_process"
	}

	checks["sessions"] = map[string]any{"active": s.sessions.Len(), "status": "ok"}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients(), "status": "ok"}

	NewJSONResponse().
		Status(httpStatus).
		Payload(map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		writeError(w, r, log.OpSignup, err)
		return
	}
	u, sess, err := s.auth.Signup(r.Context(), req.data())
	if err != nil {
		writeError(w, r, log.OpSignup, err)
		return
	}
	s.appMetrics.signups.Add(1)
	NewJSONResponse().Status(http.StatusCreated).Payload(newSessionView(u, sess)).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		writeError(w, r, log.OpLogin, err)
		return
	}
	u, sess, err := s.auth.Login(r.Context(), sanitizeInput(req.Username), req.Password)
	if err != nil {
		s.appMetrics.failedLogins.Add(1)
		writeError(w, r, log.OpLogin, err)
		return
	}
	s.appMetrics.logins.Add(1)
	NewJSONResponse().Payload(newSessionView(u, sess)).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context(), sessionFrom(r.Context()).Token)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSession exposes the idle countdown. Polling it is not activity.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(newIdleView(sessionFrom(r.Context()).Idle())).Write(w)
}

// handleActivity is the browser's pointer, key, scroll and touch signal.
// The reset already happened in requireSession.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(newIdleView(sessionFrom(r.Context()).Idle())).Write(w)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	u, err := s.accounts.Account(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, log.OpProfile, err)
		return
	}
	NewJSONResponse().Payload(accountView{
		Profile:       newUserView(u),
		Summary:       newSummaryView(u.Summary()),
		BalanceHidden: true,
	}).Write(w)
}

func (s *Server) handleRevealBalance(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		writeError(w, r, log.OpBalance, err)
		return
	}
	balance, err := s.accounts.RevealBalance(r.Context(), sessionFrom(r.Context()).UserID, req.PIN)
	if err != nil {
		s.countWrongPIN(err)
		writeError(w, r, log.OpBalance, err)
		return
	}
	NewJSONResponse().Payload(balanceView{Balance: balance.String(), BalanceCents: balance.Cents}).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		writeError(w, r, log.OpProfile, err)
		return
	}
	u, err := s.accounts.UpdateProfile(r.Context(), sessionFrom(r.Context()).UserID, req.profile())
	if err != nil {
		writeError(w, r, log.OpProfile, err)
		return
	}
	NewJSONResponse().Payload(newUserView(u)).Write(w)
}

func (s *Server) handleChangePIN(w http.ResponseWriter, r *http.Request) {
	var req changePINRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		writeError(w, r, log.OpProfile, err)
		return
	}
	if err := s.accounts.ChangePIN(r.Context(), sessionFrom(r.Context()).UserID, req.CurrentPIN, req.NewPIN); err != nil {
		s.countWrongPIN(err)
		writeError(w, r, log.OpProfile, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, limit, err := ParseHistoryQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, "history", err)
		return
	}
	txs, err := s.accounts.History(r.Context(), sessionFrom(r.Context()).UserID, filter, limit)
	if err != nil {
		writeError(w, r, "history", err)
		return
	}
	NewJSONResponse().Payload(newHistoryView(txs)).Write(w)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleTransaction(w, r, core.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleTransaction(w, r, core.Withdrawal)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request, t core.TransactionType) {
	op := log.OpDeposit
	book := s.accounts.Deposit
	counter := &s.appMetrics.deposits
	if t == core.Withdrawal {
		op = log.OpWithdraw
		book = s.accounts.Withdraw
		counter = &s.appMetrics.withdrawals
	}

	var req transactionRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	receipt, err := book(r.Context(), sessionFrom(r.Context()).UserID, amount, req.PIN)
	if err != nil {
		s.countWrongPIN(err)
		writeError(w, r, op, err)
		return
	}
	counter.Add(1)
	NewJSONResponse().Status(http.StatusCreated).Payload(newReceiptView(receipt)).Write(w)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		writeError(w, r, log.OpSuggest, err)
		return
	}
	t, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, r, log.OpSuggest, err)
		return
	}
	sess := sessionFrom(r.Context())
	out, err := s.suggestions.Suggest(r.Context(), sess.UserID, t, sess)
	if err != nil {
		writeError(w, r, log.OpSuggest, err)
		return
	}
	s.appMetrics.suggestions.Add(1)
	NewJSONResponse().Payload(newSuggestionView(t, out)).Write(w)
}

func (s *Server) countWrongPIN(err error) {
	if errors.Is(err, core.ErrIncorrectPIN) {
		s.appMetrics.wrongPINs.Add(1)
	}
}
