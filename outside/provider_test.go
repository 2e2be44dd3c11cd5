package outside_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"ticket-dealer-go/outside"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testParams() outside.Params {
	return outside.Params{
		GuardFloor:     dec("0.05"),
		PhiMid:         dec("0.5"),
		PhiSpread:      dec("0.2"),
		NonNegativeBid: true,
	}
}

func TestAnchorQuotesAreSymmetricAroundMid(t *testing.T) {
	a := outside.NewAnchor("short", dec("1.0"), dec("0.30"), testParams())
	assert.True(t, a.Bid().Equal(dec("0.85")))
	assert.True(t, a.Ask().Equal(dec("1.15")))
}

func TestAnchorBidClampedAtZero(t *testing.T) {
	a := outside.NewAnchor("long", dec("0.05"), dec("0.30"), testParams())
	assert.True(t, a.Bid().IsZero())
	assert.True(t, a.Ask().Equal(dec("0.20")))

	p := testParams()
	p.NonNegativeBid = false
	b := outside.NewAnchor("long", dec("0.05"), dec("0.30"), p)
	assert.True(t, b.Bid().Equal(dec("-0.10")))
}

func TestApplyLossMovesMidAndSpread(t *testing.T) {
	a := outside.NewAnchor("mid", dec("0.92"), dec("0.08"), testParams())
	a.ApplyLoss(dec("0.4"))

	assert.True(t, a.Mid.Equal(dec("0.72")), "mid %s", a.Mid)
	assert.True(t, a.Spread.Equal(dec("0.16")), "spread %s", a.Spread)
}

func TestApplyLossRespectsGuardFloor(t *testing.T) {
	a := outside.NewAnchor("long", dec("0.10"), dec("0.12"), testParams())
	a.ApplyLoss(dec("1"))
	assert.True(t, a.Mid.Equal(dec("0.05")))
}

func TestApplyZeroLossIsNoOp(t *testing.T) {
	a := outside.NewAnchor("short", dec("0.98"), dec("0.04"), testParams())
	a.ApplyLoss(decimal.Zero)
	assert.True(t, a.Mid.Equal(dec("0.98")))
	assert.True(t, a.Spread.Equal(dec("0.04")))
}
