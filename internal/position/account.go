package position

import (
	"smc-lab/internal/domain"
)

// Account tracks realized capital of one simulation run.
type Account struct {
	start        float64
	capital      float64
	peak         float64
	maxDrawdown  float64 // fraction
	liquidated   bool
	liquidatedAt int64

	closed int
	wins   int
}

// NewAccount creates an account with the starting capital.
func NewAccount(capital float64) *Account {
	return &Account{start: capital, capital: capital, peak: capital}
}

// Settle applies a closed trade: capital += net pnl, then peak and drawdown
// are updated. Capital at or below zero liquidates the account.
// The trade's CapitalAfter is filled in.
func (a *Account) Settle(t *domain.Trade) {
	a.capital += t.PnL
	t.CapitalAfter = a.capital

	a.closed++
	if t.IsWin() {
		a.wins++
	}

	if a.capital > a.peak {
		a.peak = a.capital
	}
	if a.peak > 0 {
		if dd := (a.peak - a.capital) / a.peak; dd > a.maxDrawdown {
			a.maxDrawdown = dd
		}
	}
	if a.capital <= 0 && !a.liquidated {
		a.liquidated = true
		a.liquidatedAt = t.ExitTime
	}
}

// CanOpen reports whether a new position may be opened.
func (a *Account) CanOpen() bool {
	return !a.liquidated && a.capital > 0
}

// Capital returns realized capital; a liquidated account holds zero.
func (a *Account) Capital() float64 {
	if a.liquidated {
		return 0
	}
	return a.capital
}

// StartCapital returns the starting capital.
func (a *Account) StartCapital() float64 { return a.start }

// PeakCapital returns the highest realized capital.
func (a *Account) PeakCapital() float64 { return a.peak }

// MaxDrawdown returns the max drawdown as a fraction.
func (a *Account) MaxDrawdown() float64 { return a.maxDrawdown }

// Liquidated reports whether the account was liquidated, and when.
func (a *Account) Liquidated() (bool, int64) { return a.liquidated, a.liquidatedAt }

// TradesCount returns the number of settled trades.
func (a *Account) TradesCount() int { return a.closed }

// WinRate returns the share of winning trades in percent.
func (a *Account) WinRate() float64 {
	if a.closed == 0 {
		return 0
	}
	return float64(a.wins) / float64(a.closed) * 100
}

// TotalPnLPct returns (capital / start - 1) * 100, never below -100.
func (a *Account) TotalPnLPct() float64 {
	if a.start <= 0 {
		return 0
	}
	return (a.Capital()/a.start - 1) * 100
}
