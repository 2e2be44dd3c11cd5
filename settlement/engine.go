// Package settlement resolves claims at maturity: proportional recovery
// out of the issuer's available cash, uniform per-unit payout to every
// holder, deletion of settled claims, and seizure of a defaulting
// issuer's residual cash. The resulting per-bucket loss rates feed the
// outside provider's anchor update.
package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ticket-dealer-go/journal"
	"ticket-dealer-go/ledger"
	"ticket-dealer-go/metrics"
)

var one = decimal.NewFromInt(1)

// Engine runs the daily settlement batch.
type Engine struct {
	led     *ledger.Ledger
	jr      *journal.Journal
	cash    ledger.InstrumentKind
	minUnit decimal.Decimal
	log     *zap.Logger
}

// IssuerOutcome is one issuer's settlement result for the day.
type IssuerOutcome struct {
	Issuer    ledger.AgentID
	Matured   int
	TotalDue  decimal.Decimal
	Recovery  decimal.Decimal
	Paid      decimal.Decimal
	Defaulted bool
	Seized    decimal.Decimal
}

// DayResult aggregates a full settlement day.
type DayResult struct {
	Outcomes []IssuerOutcome
	// Loss maps bucket tag to the realized loss rate 1 - paid/due for
	// that bucket's maturities. Buckets with no maturities are absent.
	Loss map[string]decimal.Decimal
}

// New creates a settlement engine paying out in the given money kind,
// with payouts floored to minUnit.
func New(led *ledger.Ledger, jr *journal.Journal, cash ledger.InstrumentKind, minUnit decimal.Decimal, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{led: led, jr: jr, cash: cash, minUnit: minUnit, log: log}
}

// RunDay settles every claim maturing on the given day, grouped by
// issuer. A returned *ledger.InvariantViolation is fatal.
func (e *Engine) RunDay(day int) (DayResult, error) {
	res := DayResult{Loss: make(map[string]decimal.Decimal)}
	maturing := e.led.MaturingOn(day)
	if len(maturing) == 0 {
		return res, nil
	}

	// Group by issuer, preserving serial order within and across groups.
	byIssuer := make(map[ledger.AgentID][]ledger.Instrument)
	var issuerOrder []ledger.AgentID
	for _, in := range maturing {
		if _, seen := byIssuer[in.Issuer]; !seen {
			issuerOrder = append(issuerOrder, in.Issuer)
		}
		byIssuer[in.Issuer] = append(byIssuer[in.Issuer], in)
	}

	dueByBucket := make(map[string]decimal.Decimal)
	paidByBucket := make(map[string]decimal.Decimal)

	for _, issuer := range issuerOrder {
		claims := byIssuer[issuer]
		outcome, err := e.settleIssuer(issuer, claims)
		if err != nil {
			return res, err
		}
		res.Outcomes = append(res.Outcomes, outcome)
		for _, in := range claims {
			dueByBucket[in.Bucket] = dueByBucket[in.Bucket].Add(in.Amount)
			paidByBucket[in.Bucket] = paidByBucket[in.Bucket].Add(e.payout(in.Amount, outcome.Recovery))
		}
	}

	for bucket, due := range dueByBucket {
		if due.IsZero() {
			continue
		}
		loss := one.Sub(paidByBucket[bucket].Div(due))
		res.Loss[bucket] = loss
	}
	return res, nil
}

// settleIssuer resolves one issuer's maturing claims: computes the
// recovery rate from available cash vs. total due, pays every holder the
// identical per-unit payout, deletes the claims, and on partial recovery
// seizes the issuer's entire residual cash. The whole group commits
// atomically.
func (e *Engine) settleIssuer(issuer ledger.AgentID, claims []ledger.Instrument) (IssuerOutcome, error) {
	out := IssuerOutcome{Issuer: issuer, Matured: len(claims)}
	for _, in := range claims {
		out.TotalDue = out.TotalDue.Add(in.Amount)
	}
	available := e.led.BalanceOf(issuer, e.cash)
	out.Recovery = one
	if available.LessThan(out.TotalDue) {
		out.Recovery = available.Div(out.TotalDue)
	}

	issuerBefore := available
	err := e.led.Tx(func() error {
		for _, in := range claims {
			pay := e.payout(in.Amount, out.Recovery)
			if pay.IsPositive() && in.Holder != issuer {
				if err := e.led.Transfer(issuer, in.Holder, pay, e.cash); err != nil {
					return fmt.Errorf("settlement payout %s to %s: %w", pay, in.Holder, err)
				}
			}
			if in.Holder != issuer {
				out.Paid = out.Paid.Add(pay)
			}
			if err := e.led.SettleObligation(in.ID); err != nil {
				return fmt.Errorf("settlement delete %d: %w", in.ID, err)
			}
		}
		if out.Recovery.LessThan(one) {
			// A default consumes all residual liquidity: seizure, not a
			// bug. Cash earmarked for anything else goes too.
			seized, err := e.led.Retire(issuer, e.cash)
			if err != nil {
				return fmt.Errorf("settlement seizure from %s: %w", issuer, err)
			}
			out.Defaulted = true
			out.Seized = seized
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	// Cash conservation: the issuer's balance dropped by exactly what
	// the holders received (plus the seizure on default).
	issuerAfter := e.led.BalanceOf(issuer, e.cash)
	spent := issuerBefore.Sub(issuerAfter)
	if !spent.Equal(out.Paid.Add(out.Seized)) {
		return out, &ledger.InvariantViolation{
			Invariant: "settlement_cash_conservation",
			Detail: fmt.Sprintf("issuer %s spent %s but paid %s and forfeited %s",
				issuer, spent, out.Paid, out.Seized),
		}
	}
	// No silent loss or duplication of claims.
	for _, in := range claims {
		if _, still := e.led.Instrument(in.ID); still {
			return out, &ledger.InvariantViolation{
				Invariant: "settlement_deletion",
				Detail:    fmt.Sprintf("matured instrument %d still registered", in.ID),
			}
		}
	}

	bucket := ""
	if len(claims) > 0 {
		bucket = claims[0].Bucket
	}
	if e.jr != nil {
		e.jr.Append(journal.Event{
			Kind:     journal.EventRecovery,
			Day:      e.led.Day(),
			Issuer:   string(issuer),
			Bucket:   bucket,
			Amount:   out.TotalDue.String(),
			Recovery: out.Recovery.String(),
		})
		if out.Defaulted {
			e.jr.Append(journal.Event{
				Kind:   journal.EventDefault,
				Day:    e.led.Day(),
				Issuer: string(issuer),
				Bucket: bucket,
				Amount: out.Seized.String(),
			})
		}
	}
	rec, _ := out.Recovery.Float64()
	metrics.UpdateSettlementMetrics(bucket, rec, out.Defaulted)
	e.log.Debug("issuer settled",
		zap.String("issuer", string(issuer)),
		zap.Int("matured", out.Matured),
		zap.String("recovery", out.Recovery.String()),
		zap.Bool("defaulted", out.Defaulted),
	)
	return out, nil
}

// payout floors amount*R down to the smallest money unit.
func (e *Engine) payout(amount, recovery decimal.Decimal) decimal.Decimal {
	raw := amount.Mul(recovery)
	if e.minUnit.IsZero() {
		return raw
	}
	return raw.Div(e.minUnit).Floor().Mul(e.minUnit)
}
