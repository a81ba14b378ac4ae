package http

import (
	"time"

	"zenbank/internal/core"
	"zenbank/internal/idle"
	"zenbank/internal/services"
	"zenbank/internal/session"
)

type (
	signupRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
		PIN      string `json:"pin"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
	}

	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	pinRequest struct {
		PIN string `json:"pin"`
	}

	changePINRequest struct {
		CurrentPIN string `json:"currentPin"`
		NewPIN     string `json:"newPin"`
	}

	profileRequest struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}

	transactionRequest struct {
		Amount flexAmount `json:"amount"`
		PIN    string     `json:"pin"`
	}

	suggestRequest struct {
		Type string `json:"type"`
	}
)

func (r signupRequest) data() core.SignupData {
	return core.SignupData{
		Username: sanitizeInput(r.Username),
		Password: r.Password,
		PIN:      r.PIN,
		Profile: core.Profile{
			Name:    sanitizeInput(r.Name),
			Email:   sanitizeInput(r.Email),
			Phone:   sanitizeInput(r.Phone),
			Address: sanitizeInput(r.Address),
		},
	}
}

func (r profileRequest) profile() core.Profile {
	return core.Profile{
		Name:    sanitizeInput(r.Name),
		Email:   sanitizeInput(r.Email),
		Phone:   sanitizeInput(r.Phone),
		Address: sanitizeInput(r.Address),
	}
}

type (
	// userView never carries secrets or the balance.
	userView struct {
		ID        string    `json:"id"`
		Username  string    `json:"username"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		Phone     string    `json:"phone,omitempty"`
		Address   string    `json:"address,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	idleView struct {
		State            string `json:"state"`
		RemainingSeconds int64  `json:"remainingSeconds"`
		Warning          bool   `json:"warning"`
	}

	sessionView struct {
		Token string   `json:"token"`
		User  userView `json:"user"`
		Idle  idleView `json:"idle"`
	}

	summaryView struct {
		Deposits         string     `json:"deposits"`
		DepositsCents    int64      `json:"depositsCents"`
		Withdrawals      string     `json:"withdrawals"`
		WithdrawalsCents int64      `json:"withdrawalsCents"`
		Count            int        `json:"count"`
		LastActivity     *time.Time `json:"lastActivity,omitempty"`
	}

	accountView struct {
		Profile       userView    `json:"profile"`
		Summary       summaryView `json:"summary"`
		BalanceHidden bool        `json:"balanceHidden"`
	}

	balanceView struct {
		Balance      string `json:"balance"`
		BalanceCents int64  `json:"balanceCents"`
	}

	transactionView struct {
		ID          string    `json:"id"`
		Type        string    `json:"type"`
		Amount      string    `json:"amount"`
		AmountCents int64     `json:"amountCents"`
		Date        time.Time `json:"date"`
	}

	historyView struct {
		Transactions []transactionView `json:"transactions"`
		Count        int               `json:"count"`
	}

	receiptView struct {
		Transaction  transactionView `json:"transaction"`
		Balance      string          `json:"balance"`
		BalanceCents int64           `json:"balanceCents"`
	}

	suggestionView struct {
		Type    string    `json:"type"`
		Amounts []float64 `json:"amounts"`
		Source  string    `json:"source"`
		Reason  string    `json:"reason,omitempty"`
		Seq     uint64    `json:"seq"`
		Stale   bool      `json:"stale"`
	}
)

func newUserView(u core.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Profile.Name,
		Email:     u.Profile.Email,
		Phone:     u.Profile.Phone,
		Address:   u.Profile.Address,
		CreatedAt: u.CreatedAt,
	}
}

func newIdleView(s idle.Snapshot) idleView {
	return idleView{
		State:            s.State.String(),
		RemainingSeconds: s.RemainingSeconds(),
		Warning:          s.Warning,
	}
}

func newSessionView(u core.User, s *session.Session) sessionView {
	return sessionView{Token: s.Token, User: newUserView(u), Idle: newIdleView(s.Idle())}
}

func newSummaryView(s core.Summary) summaryView {
	v := summaryView{
		Deposits:         s.Deposits.String(),
		DepositsCents:    s.Deposits.Cents,
		Withdrawals:      s.Withdrawals.String(),
		WithdrawalsCents: s.Withdrawals.Cents,
		Count:            s.Count,
	}
	if !s.LastActivity.IsZero() {
		last := s.LastActivity
		v.LastActivity = &last
	}
	return v
}

func newTransactionView(tx core.Transaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Cents,
		Date:        tx.Date,
	}
}

func newHistoryView(txs []core.Transaction) historyView {
	out := historyView{Transactions: make([]transactionView, 0, len(txs)), Count: len(txs)}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, newTransactionView(tx))
	}
	return out
}

func newReceiptView(r services.Receipt) receiptView {
	return receiptView{
		Transaction:  newTransactionView(r.Transaction),
		Balance:      r.Balance.String(),
		BalanceCents: r.Balance.Cents,
	}
}

func newSuggestionView(t core.TransactionType, s services.Suggestion) suggestionView {
	return suggestionView{
		Type:    string(t),
		Amounts: s.Amounts,
		Source:  string(s.Source),
		Reason:  s.Reason,
		Seq:     s.Seq,
		Stale:   s.Stale,
	}
}
