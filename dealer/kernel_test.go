package dealer_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-dealer-go/dealer"
	"ticket-dealer-go/outside"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func unitConfig() dealer.Config {
	return dealer.Config{Face: dec("1"), MinMid: dec("0.05")}
}

func anchorAt(mid, spread string) *outside.Anchor {
	return outside.NewAnchor("short", dec(mid), dec(spread), outside.Params{
		GuardFloor:     dec("0.05"),
		NonNegativeBid: true,
	})
}

// Two tickets and 1.97 cash against a 1.00/0.30 anchor: capacity three,
// quotes 0.9325/1.0075 around a 0.97 midline.
func TestComputeCapacityAndQuotes(t *testing.T) {
	q := dealer.Compute(unitConfig(), 2, dec("1.97"), anchorAt("1.0", "0.30"))

	require.False(t, q.Guard)
	assert.True(t, q.V.Equal(dec("3.97")), "V %s", q.V)
	assert.Equal(t, int64(3), q.KStar)
	assert.True(t, q.XStar.Equal(dec("3")))
	assert.True(t, q.Lambda.Equal(dec("0.25")), "lambda %s", q.Lambda)
	assert.True(t, q.Inside.Equal(dec("0.075")), "inside %s", q.Inside)
	assert.True(t, q.Mid.Equal(dec("0.97")), "mid %s", q.Mid)
	assert.True(t, q.Bid.Equal(dec("0.9325")), "bid %s", q.Bid)
	assert.True(t, q.Ask.Equal(dec("1.0075")), "ask %s", q.Ask)
	assert.False(t, q.PinnedBid)
	assert.False(t, q.PinnedAsk)
}

// Buying one ticket at the bid grows mid-valued net worth past the next
// integer capacity step: K* jumps to four and the inside spread tightens.
func TestCapacityStepAfterDealerBuy(t *testing.T) {
	cfg := unitConfig()
	anchor := anchorAt("1.0", "0.30")

	before := dealer.Compute(cfg, 2, dec("1.97"), anchor)
	require.Equal(t, int64(3), before.KStar)

	cash := dec("1.97").Sub(before.Bid) // 1.0375
	after := dealer.Compute(cfg, 3, cash, anchor)

	assert.True(t, after.V.Equal(dec("4.0375")), "V %s", after.V)
	assert.Equal(t, int64(4), after.KStar)
	assert.True(t, after.Lambda.Equal(dec("0.2")), "lambda %s", after.Lambda)
	assert.True(t, after.Inside.Equal(dec("0.06")), "inside %s", after.Inside)
	assert.True(t, after.Bid.Equal(dec("0.92")), "bid %s", after.Bid)
	assert.True(t, after.Ask.Equal(dec("0.98")), "ask %s", after.Ask)
}

// Recomputing from unchanged inputs yields identical quotes: nothing is
// cached or path-dependent.
func TestComputeIsPureFunctionOfInputs(t *testing.T) {
	cfg := unitConfig()
	anchor := anchorAt("0.92", "0.08")

	a := dealer.Compute(cfg, 5, dec("3.14"), anchor)
	for i := 0; i < 3; i++ {
		b := dealer.Compute(cfg, 5, dec("3.14"), anchor)
		assert.Equal(t, a, b)
	}
}

func TestGuardRegimeOnThinMid(t *testing.T) {
	q := dealer.Compute(unitConfig(), 2, dec("10"), anchorAt("0.05", "0.30"))

	assert.True(t, q.Guard)
	assert.Equal(t, int64(0), q.KStar)
	assert.True(t, q.Lambda.Equal(dec("1")))
	assert.True(t, q.Bid.Equal(q.OutsideBid))
	assert.True(t, q.Ask.Equal(q.OutsideAsk))
	assert.True(t, q.PinnedBid)
	assert.True(t, q.PinnedAsk)
	assert.False(t, q.CanInteriorBuy(unitConfig(), 2, dec("10")))
	assert.False(t, q.CanInteriorSell(2))
}

func TestGuardRegimeOnZeroCapacity(t *testing.T) {
	// No tickets and less cash than one mid: V/M floors to zero.
	q := dealer.Compute(unitConfig(), 0, dec("0.5"), anchorAt("1.0", "0.30"))

	assert.True(t, q.Guard)
	assert.Equal(t, int64(0), q.KStar)
	assert.True(t, q.PinnedBid)
	assert.True(t, q.PinnedAsk)
}

// A wide spread against a thin mid pushes the raw bid below the clamped
// outside bid; the quote pins instead of going negative.
func TestBidPinsToOutsideWhenMidlineCollapses(t *testing.T) {
	q := dealer.Compute(unitConfig(), 1, dec("0.1"), anchorAt("0.2", "1.0"))

	require.False(t, q.Guard)
	require.Equal(t, int64(1), q.KStar)
	assert.True(t, q.PinnedBid)
	assert.True(t, q.Bid.Equal(q.OutsideBid))
	assert.True(t, q.Bid.IsZero()) // outside bid clamped at zero
	assert.False(t, q.PinnedAsk)
	assert.True(t, q.Ask.LessThan(q.OutsideAsk))
}

func TestQuotesNeverCrossOutsideBand(t *testing.T) {
	cfg := unitConfig()
	anchor := anchorAt("0.92", "0.08")
	for tickets := int64(0); tickets <= 8; tickets++ {
		for _, cash := range []string{"0", "0.5", "2", "10"} {
			q := dealer.Compute(cfg, tickets, dec(cash), anchor)
			assert.True(t, q.Bid.GreaterThanOrEqual(q.OutsideBid), "tickets=%d cash=%s bid=%s", tickets, cash, q.Bid)
			assert.True(t, q.Ask.LessThanOrEqual(q.OutsideAsk), "tickets=%d cash=%s ask=%s", tickets, cash, q.Ask)
			assert.True(t, q.Bid.LessThanOrEqual(q.Ask), "tickets=%d cash=%s", tickets, cash)
		}
	}
}

func TestInteriorFeasibility(t *testing.T) {
	cfg := unitConfig()
	anchor := anchorAt("1.0", "0.30")

	q := dealer.Compute(cfg, 2, dec("1.97"), anchor)
	// Room for one more ticket (3 <= X*=3) and bid is funded.
	assert.True(t, q.CanInteriorBuy(cfg, 2, dec("1.97")))
	assert.True(t, q.CanInteriorSell(2))

	// At full capacity the next buy must lay off.
	full := dealer.Compute(cfg, 3, dec("0.97"), anchor)
	require.Equal(t, int64(3), full.KStar)
	assert.False(t, full.CanInteriorBuy(cfg, 3, dec("0.97")))

	// Funded capacity but empty book cannot sell interior.
	empty := dealer.Compute(cfg, 0, dec("5"), anchor)
	assert.False(t, empty.CanInteriorSell(0))
	assert.True(t, empty.CanInteriorBuy(cfg, 0, dec("5")))
}
