// Package dealer implements the per-bucket pricing kernel. Quotes are
// recomputed fresh from (a, C, M, O, S) on every read; nothing derived
// is cached across mutations.
package dealer

import (
	"github.com/shopspring/decimal"

	"ticket-dealer-go/outside"
)

var two = decimal.NewFromInt(2)

// Config holds the kernel's fixed parameters.
type Config struct {
	// Face is the standard ticket face value S.
	Face decimal.Decimal
	// MinMid is the guard threshold: at or below this outside mid the
	// bucket is too thin to intermediate and everything routes to
	// pass-through.
	MinMid decimal.Decimal
}

// Quotes is one full recomputation of the kernel state. All fields are
// derived, never stored.
type Quotes struct {
	Guard bool

	V      decimal.Decimal // mid-valued net worth M*a + C
	KStar  int64           // floor(V / M), maximum ticket capacity
	XStar  decimal.Decimal // S*K*, maximum inventory in ticket-units
	Lambda decimal.Decimal // layoff probability S / (X* + S)
	Inside decimal.Decimal // inside spread lambda*O

	Mid decimal.Decimal // midline value p(x) at current inventory

	Bid       decimal.Decimal
	Ask       decimal.Decimal
	PinnedBid bool
	PinnedAsk bool

	OutsideBid decimal.Decimal
	OutsideAsk decimal.Decimal
}

// Compute derives the quote ladder for a dealer holding `tickets`
// standardized tickets and `cash` against the bucket's outside anchor.
func Compute(cfg Config, tickets int64, cash decimal.Decimal, anchor *outside.Anchor) Quotes {
	q := Quotes{
		OutsideBid: anchor.Bid(),
		OutsideAsk: anchor.Ask(),
	}

	s := cfg.Face
	m := anchor.Mid
	o := anchor.Spread
	a := decimal.NewFromInt(tickets)

	if m.LessThanOrEqual(cfg.MinMid) {
		return guardQuotes(q)
	}

	q.V = m.Mul(a).Add(cash)
	// Truncating quotient: capacity is conservative, floor not round.
	kstar, _ := q.V.QuoRem(m, 0)
	q.KStar = kstar.IntPart()
	q.XStar = s.Mul(kstar)
	if q.KStar <= 0 {
		return guardQuotes(q)
	}

	q.Lambda = s.Div(q.XStar.Add(s))
	q.Inside = q.Lambda.Mul(o)

	// Midline: linear in inventory, centered so p = M at x = X*/2. It
	// rises as inventory falls and falls as inventory rises.
	x := a.Mul(s)
	slope := o.Div(q.XStar.Add(s.Mul(two)))
	q.Mid = m.Sub(slope.Mul(x.Sub(q.XStar.Div(two))))

	half := q.Inside.Div(two)
	bid := q.Mid.Sub(half)
	ask := q.Mid.Add(half)

	// Clip to the outside quotes; record pinning.
	if ask.GreaterThanOrEqual(q.OutsideAsk) {
		ask = q.OutsideAsk
		q.PinnedAsk = true
	}
	if bid.LessThanOrEqual(q.OutsideBid) {
		bid = q.OutsideBid
		q.PinnedBid = true
	}
	q.Bid = bid
	q.Ask = ask
	return q
}

// guardQuotes is the degenerate regime: zero capacity, both quotes
// pinned to the outside, layoff probability one.
func guardQuotes(q Quotes) Quotes {
	q.Guard = true
	q.KStar = 0
	q.XStar = decimal.Zero
	q.Lambda = decimal.NewFromInt(1)
	q.Inside = decimal.Zero
	q.Bid = q.OutsideBid
	q.Ask = q.OutsideAsk
	q.PinnedBid = true
	q.PinnedAsk = true
	return q
}

// CanInteriorBuy reports whether the dealer can absorb one more ticket:
// the post-trade inventory must fit capacity and the bid must be funded.
func (q Quotes) CanInteriorBuy(cfg Config, tickets int64, cash decimal.Decimal) bool {
	if q.Guard {
		return false
	}
	x := decimal.NewFromInt(tickets).Mul(cfg.Face)
	return x.Add(cfg.Face).LessThanOrEqual(q.XStar) && cash.GreaterThanOrEqual(q.Bid)
}

// CanInteriorSell reports whether the dealer holds at least one ticket
// to sell.
func (q Quotes) CanInteriorSell(tickets int64) bool {
	if q.Guard {
		return false
	}
	return tickets >= 1
}
