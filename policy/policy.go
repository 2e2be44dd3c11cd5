// Package policy classifies agents into daily order flow roles and
// assigns tickets to maturity buckets. Classification is stateless given
// the current ledger.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ticket-dealer-go/ledger"
)

// BucketRange maps a remaining time-to-maturity interval to a bucket tag.
// Lo and Hi are inclusive day bounds; Hi < 0 means unbounded above.
type BucketRange struct {
	Name string
	Lo   int
	Hi   int
}

// Policy holds the classification parameters.
type Policy struct {
	led *ledger.Ledger
	// cash is the money kind counted for shortfalls and buffers.
	cash ledger.InstrumentKind
	// horizon is the minimum days to the nearest obligation for an
	// agent to be a buyer.
	horizon int
	// buffer is the cash level a buyer must strictly exceed.
	buffer decimal.Decimal

	ranges []BucketRange
}

// New creates a policy over the given bucket boundary ranges.
func New(led *ledger.Ledger, cash ledger.InstrumentKind, horizon int, buffer decimal.Decimal, ranges []BucketRange) *Policy {
	return &Policy{led: led, cash: cash, horizon: horizon, buffer: buffer, ranges: ranges}
}

// BucketFor returns the bucket tag for a remaining time-to-maturity.
func (p *Policy) BucketFor(remainingTau int) (string, bool) {
	for _, r := range p.ranges {
		if remainingTau >= r.Lo && (r.Hi < 0 || remainingTau <= r.Hi) {
			return r.Name, true
		}
	}
	return "", false
}

// DuesOn sums the agent's claim liabilities falling due on the day.
func (p *Policy) DuesOn(agent ledger.AgentID, day int) decimal.Decimal {
	total := decimal.Zero
	for _, kind := range []ledger.InstrumentKind{ledger.KindTicket, ledger.KindPayable, ledger.KindDeliverable} {
		for _, in := range p.led.LiabilitiesOf(agent, kind) {
			if in.Maturity == day {
				total = total.Add(in.Amount)
			}
		}
	}
	return total
}

// nearestObligation returns days to the agent's nearest future claim
// liability, and whether one exists.
func (p *Policy) nearestObligation(agent ledger.AgentID, day int) (int, bool) {
	nearest := 0
	found := false
	for _, kind := range []ledger.InstrumentKind{ledger.KindTicket, ledger.KindPayable, ledger.KindDeliverable} {
		for _, in := range p.led.LiabilitiesOf(agent, kind) {
			tau := in.Maturity - day
			if tau < 0 {
				continue
			}
			if !found || tau < nearest {
				nearest = tau
				found = true
			}
		}
	}
	return nearest, found
}

// SellEligible reports whether the agent has a same-day cash shortfall
// and owns at least one ticket to raise cash with.
func (p *Policy) SellEligible(agent ledger.AgentID, day int) bool {
	dues := p.DuesOn(agent, day)
	cash := p.led.BalanceOf(agent, p.cash)
	if !dues.GreaterThan(cash) {
		return false
	}
	return len(p.led.HoldingsOf(agent, ledger.KindTicket)) > 0
}

// BuyEligible reports whether the agent's nearest obligation is at least
// the horizon away (or absent) and its cash strictly exceeds the buffer.
func (p *Policy) BuyEligible(agent ledger.AgentID, day int) bool {
	if tau, ok := p.nearestObligation(agent, day); ok && tau < p.horizon {
		return false
	}
	return p.led.BalanceOf(agent, p.cash).GreaterThan(p.buffer)
}

// Rebucket retags every ticket whose remaining time-to-maturity has
// crossed a bucket boundary. Ownership is never touched.
func (p *Policy) Rebucket(day int) error {
	for _, a := range p.led.Agents() {
		for _, in := range p.led.HoldingsOf(a.ID, ledger.KindTicket) {
			bucket, ok := p.BucketFor(in.RemainingTau(day))
			if !ok || bucket == in.Bucket {
				continue
			}
			if err := p.led.SetBucket(in.ID, bucket); err != nil {
				return fmt.Errorf("rebucket %d: %w", in.ID, err)
			}
		}
	}
	return nil
}
