package core

import "time"

// Summary aggregates an account's activity.
type Summary struct {
	Deposits     Money
	Withdrawals  Money
	Count        int
	LastActivity time.Time
}

func (u User) Summary() Summary {
	var s Summary
	for _, tx := range u.Transactions {
		switch tx.Type {
		case Deposit:
			s.Deposits.Cents += tx.Amount.Cents
		case Withdrawal:
			s.Withdrawals.Cents += tx.Amount.Cents
		}
		if tx.Date.After(s.LastActivity) {
			s.LastActivity = tx.Date
		}
		s.Count++
	}
	return s
}
