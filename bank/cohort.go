// Package bank applies the dealer kernel pattern to bank rate setting:
// a Treynor-style corridor kernel over a cohortized balance sheet with
// multi-day cash-flow projection. Deposit and loan rates play the role
// of bid and ask; the standing facility corridor plays the role of the
// outside quotes.
package bank

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Cohort groups deposits and loans by the day they fall due.
type Cohort struct {
	Day      int
	Deposits decimal.Decimal // withdrawable on Day (cash outflow)
	Loans    decimal.Decimal // repaid on Day (cash inflow)
}

// BalanceSheet is a bank's cash plus its maturity-cohortized book.
type BalanceSheet struct {
	Cash    decimal.Decimal
	cohorts map[int]*Cohort
}

// NewBalanceSheet creates an empty balance sheet with the given cash.
func NewBalanceSheet(cash decimal.Decimal) *BalanceSheet {
	return &BalanceSheet{Cash: cash, cohorts: make(map[int]*Cohort)}
}

func (b *BalanceSheet) cohort(day int) *Cohort {
	c, ok := b.cohorts[day]
	if !ok {
		c = &Cohort{Day: day}
		b.cohorts[day] = c
	}
	return c
}

// AddDeposit books a deposit withdrawable on the given day.
func (b *BalanceSheet) AddDeposit(day int, amount decimal.Decimal) {
	c := b.cohort(day)
	c.Deposits = c.Deposits.Add(amount)
	b.Cash = b.Cash.Add(amount)
}

// AddLoan books a loan repaid on the given day.
func (b *BalanceSheet) AddLoan(day int, amount decimal.Decimal) {
	c := b.cohort(day)
	c.Loans = c.Loans.Add(amount)
	b.Cash = b.Cash.Sub(amount)
}

// LoanBook returns total outstanding loans across all cohorts.
func (b *BalanceSheet) LoanBook() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.cohorts {
		total = total.Add(c.Loans)
	}
	return total
}

// Cohorts returns the cohorts ordered by day.
func (b *BalanceSheet) Cohorts() []Cohort {
	out := make([]Cohort, 0, len(b.cohorts))
	for _, c := range b.cohorts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// ProjectLiquidity runs the multi-day cash-flow projection: current cash
// plus loan repayments minus deposit withdrawals falling due within
// [day, day+horizon).
func (b *BalanceSheet) ProjectLiquidity(day, horizon int) decimal.Decimal {
	v := b.Cash
	for _, c := range b.cohorts {
		if c.Day >= day && c.Day < day+horizon {
			v = v.Add(c.Loans).Sub(c.Deposits)
		}
	}
	return v
}

// Mature removes the cohort falling due on the given day and applies its
// cash flows, returning the matured cohort.
func (b *BalanceSheet) Mature(day int) Cohort {
	c, ok := b.cohorts[day]
	if !ok {
		return Cohort{Day: day}
	}
	b.Cash = b.Cash.Add(c.Loans).Sub(c.Deposits)
	delete(b.cohorts, day)
	return *c
}
