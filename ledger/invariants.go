package ledger

import "github.com/shopspring/decimal"

// AssertInvariants re-derives the ledger's structural invariants from
// scratch. A non-nil result is a *InvariantViolation naming the broken
// invariant and the offending ids; callers must abort the run on it.
// This is a correctness oracle, not a recoverable error path.
func (l *Ledger) AssertInvariants() error {
	for id, in := range l.instruments {
		if in.Amount.IsNegative() {
			return violation("non_negative_amount", "instrument %d has amount %s", id, in.Amount)
		}
		holder, ok := l.agents[in.Holder]
		if !ok {
			return violation("holder_exists", "instrument %d references unknown holder %s", id, in.Holder)
		}
		issuer, ok := l.agents[in.Issuer]
		if !ok {
			return violation("issuer_exists", "instrument %d references unknown issuer %s", id, in.Issuer)
		}
		if n := containsID(holder.Assets, id); n != 1 {
			return violation("asset_cross_reference", "instrument %d appears %d times in holder %s assets", id, n, in.Holder)
		}
		if n := containsID(issuer.Liabilities, id); n != 1 {
			return violation("liability_cross_reference", "instrument %d appears %d times in issuer %s liabilities", id, n, in.Issuer)
		}
	}

	for _, a := range l.Agents() {
		for _, id := range a.Assets {
			in, ok := l.instruments[id]
			if !ok {
				return violation("asset_resolves", "agent %s asset %d not in registry", a.ID, id)
			}
			if in.Holder != a.ID {
				return violation("asset_holder_match", "agent %s lists asset %d held by %s", a.ID, id, in.Holder)
			}
		}
		for _, id := range a.Liabilities {
			in, ok := l.instruments[id]
			if !ok {
				return violation("liability_resolves", "agent %s liability %d not in registry", a.ID, id)
			}
			if in.Issuer != a.ID {
				return violation("liability_issuer_match", "agent %s lists liability %d issued by %s", a.ID, id, in.Issuer)
			}
		}
	}

	sums := make(map[InstrumentKind]decimal.Decimal)
	for _, in := range l.instruments {
		if in.Kind.MoneyLike() {
			sums[in.Kind] = sums[in.Kind].Add(in.Amount)
		}
	}
	for kind, tracked := range l.outstanding {
		if !sums[kind].Equal(tracked) {
			return violation("outstanding_counter", "kind %s sums to %s but counter is %s", kind, sums[kind], tracked)
		}
	}
	for kind, sum := range sums {
		if _, ok := l.outstanding[kind]; !ok && !sum.IsZero() {
			return violation("outstanding_counter", "kind %s sums to %s but has no counter", kind, sum)
		}
	}
	return nil
}
