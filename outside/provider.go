// Package outside models the always-available outside liquidity
// provider ("VBT"). It quotes a two-sided market of unlimited depth
// around a per-bucket mid/spread anchor, and moves that anchor only on
// realized settlement losses, never on order flow.
package outside

import (
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Params configures anchor behavior for all buckets.
type Params struct {
	// GuardFloor is the lowest mid the loss update may reach.
	GuardFloor decimal.Decimal
	// PhiMid scales how hard a realized loss pulls the mid down.
	PhiMid decimal.Decimal
	// PhiSpread scales how hard a realized loss widens the spread.
	PhiSpread decimal.Decimal
	// NonNegativeBid clamps the quoted bid at zero.
	NonNegativeBid bool
}

// Anchor is one bucket's outside anchor state.
type Anchor struct {
	Bucket string
	Mid    decimal.Decimal
	Spread decimal.Decimal
	params Params
}

// NewAnchor creates an anchor with the given initial mid and spread.
func NewAnchor(bucket string, mid, spread decimal.Decimal, params Params) *Anchor {
	return &Anchor{Bucket: bucket, Mid: mid, Spread: spread, params: params}
}

// Bid returns the outside bid. The provider executes any amount here.
func (a *Anchor) Bid() decimal.Decimal {
	bid := a.Mid.Sub(a.Spread.Div(two))
	if a.params.NonNegativeBid && bid.IsNegative() {
		return decimal.Zero
	}
	return bid
}

// Ask returns the outside ask. The provider executes any amount here.
func (a *Anchor) Ask() decimal.Decimal {
	return a.Mid.Add(a.Spread.Div(two))
}

// ApplyLoss runs the once-per-day anchor update for a realized loss rate
// in [0, 1]: the mid decays toward the guard floor and the spread
// widens. This is the only channel that moves the anchor.
func (a *Anchor) ApplyLoss(loss decimal.Decimal) {
	if loss.IsZero() {
		return
	}
	mid := a.Mid.Sub(a.params.PhiMid.Mul(loss))
	if mid.LessThan(a.params.GuardFloor) {
		mid = a.params.GuardFloor
	}
	a.Mid = mid
	a.Spread = a.Spread.Add(a.params.PhiSpread.Mul(loss))
}
