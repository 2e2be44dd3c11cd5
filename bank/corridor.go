package bank

import "github.com/shopspring/decimal"

var two = decimal.NewFromInt(2)

// CorridorConfig fixes the corridor kernel parameters.
type CorridorConfig struct {
	// DealSize is the standard deposit/loan unit, the analog of the
	// ticket face value.
	DealSize decimal.Decimal
	// PolicyRate is the anchor mid of the corridor.
	PolicyRate decimal.Decimal
	// DepositFacility and LendingFacility bound every quoted rate.
	DepositFacility decimal.Decimal
	LendingFacility decimal.Decimal
	// MinPolicyRate is the guard threshold below which the bank stops
	// intermediating and pins to the facilities.
	MinPolicyRate decimal.Decimal
	// Horizon is the cash-flow projection window in days.
	Horizon int
}

// RateQuotes is one recomputation of the corridor kernel, derived fresh
// from the balance sheet on every read.
type RateQuotes struct {
	Guard bool

	Projected decimal.Decimal // projected liquidity over the horizon
	KStar     int64           // floor(projected / deal size)
	XStar     decimal.Decimal // DealSize * K*
	Lambda    decimal.Decimal // DealSize / (X* + DealSize)
	Inside    decimal.Decimal // lambda * corridor width

	Mid decimal.Decimal // rate midline at the current loan book

	DepositRate   decimal.Decimal
	LoanRate      decimal.Decimal
	PinnedDeposit bool
	PinnedLoan    bool
}

// ComputeRates derives the bank's deposit and loan quotes from the
// cohortized balance sheet as of the given day.
func ComputeRates(cfg CorridorConfig, sheet *BalanceSheet, day int) RateQuotes {
	q := RateQuotes{}
	width := cfg.LendingFacility.Sub(cfg.DepositFacility)
	s := cfg.DealSize

	if cfg.PolicyRate.LessThanOrEqual(cfg.MinPolicyRate) {
		return guardRates(q, cfg)
	}

	q.Projected = sheet.ProjectLiquidity(day, cfg.Horizon)
	if q.Projected.LessThanOrEqual(decimal.Zero) {
		return guardRates(q, cfg)
	}
	kstar, _ := q.Projected.QuoRem(s, 0)
	q.KStar = kstar.IntPart()
	q.XStar = s.Mul(kstar)
	if q.KStar <= 0 {
		return guardRates(q, cfg)
	}

	q.Lambda = s.Div(q.XStar.Add(s))
	q.Inside = q.Lambda.Mul(width)

	// Rate midline: at a balanced book x = X*/2 the bank quotes the
	// policy rate; as the loan book fills, rates rise toward the
	// lending facility.
	x := sheet.LoanBook()
	slope := width.Div(q.XStar.Add(s.Mul(two)))
	q.Mid = cfg.PolicyRate.Add(slope.Mul(x.Sub(q.XStar.Div(two))))

	half := q.Inside.Div(two)
	deposit := q.Mid.Sub(half)
	loan := q.Mid.Add(half)

	if deposit.LessThanOrEqual(cfg.DepositFacility) {
		deposit = cfg.DepositFacility
		q.PinnedDeposit = true
	}
	if loan.GreaterThanOrEqual(cfg.LendingFacility) {
		loan = cfg.LendingFacility
		q.PinnedLoan = true
	}
	q.DepositRate = deposit
	q.LoanRate = loan
	return q
}

// CanFundLoan reports whether one more standard loan fits the projected
// capacity.
func (q RateQuotes) CanFundLoan(cfg CorridorConfig, sheet *BalanceSheet) bool {
	if q.Guard {
		return false
	}
	return sheet.LoanBook().Add(cfg.DealSize).LessThanOrEqual(q.XStar)
}

func guardRates(q RateQuotes, cfg CorridorConfig) RateQuotes {
	q.Guard = true
	q.KStar = 0
	q.XStar = decimal.Zero
	q.Lambda = decimal.NewFromInt(1)
	q.Inside = decimal.Zero
	q.DepositRate = cfg.DepositFacility
	q.LoanRate = cfg.LendingFacility
	q.PinnedDeposit = true
	q.PinnedLoan = true
	return q
}
