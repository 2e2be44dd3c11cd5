package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDeskMetrics(t *testing.T) {
	DealerTickets.Reset()
	DealerCash.Reset()
	OutsideMid.Reset()
	OutsideSpread.Reset()

	UpdateDeskMetrics("mid", 3, 1.0375, 0.92, 0.08)

	if got := testutil.ToFloat64(DealerTickets.WithLabelValues("mid")); got != 3 {
		t.Errorf("Expected DealerTickets[mid] to be 3, got %f", got)
	}
	if got := testutil.ToFloat64(DealerCash.WithLabelValues("mid")); got != 1.0375 {
		t.Errorf("Expected DealerCash[mid] to be 1.0375, got %f", got)
	}
	if got := testutil.ToFloat64(OutsideMid.WithLabelValues("mid")); got != 0.92 {
		t.Errorf("Expected OutsideMid[mid] to be 0.92, got %f", got)
	}
	if got := testutil.ToFloat64(OutsideSpread.WithLabelValues("mid")); got != 0.08 {
		t.Errorf("Expected OutsideSpread[mid] to be 0.08, got %f", got)
	}
}

func TestIncrementTrades(t *testing.T) {
	TradesExecuted.Reset()

	IncrementTrades("short", "sell", true)
	IncrementTrades("short", "sell", true)
	IncrementTrades("short", "sell", false)

	if got := testutil.ToFloat64(TradesExecuted.WithLabelValues("short", "sell", "interior")); got != 2 {
		t.Errorf("Expected interior trades to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(TradesExecuted.WithLabelValues("short", "sell", "passthrough")); got != 1 {
		t.Errorf("Expected passthrough trades to be 1, got %f", got)
	}
}

func TestSettlementMetrics(t *testing.T) {
	RecoveryRate.Reset()
	DefaultsTotal.Reset()

	UpdateSettlementMetrics("long", 0.6, true)

	if got := testutil.ToFloat64(RecoveryRate.WithLabelValues("long")); got != 0.6 {
		t.Errorf("Expected RecoveryRate[long] to be 0.6, got %f", got)
	}
	if got := testutil.ToFloat64(DefaultsTotal.WithLabelValues("long")); got != 1 {
		t.Errorf("Expected DefaultsTotal[long] to be 1, got %f", got)
	}

	// A clean settlement must not bump the default counter.
	UpdateSettlementMetrics("long", 1, false)
	if got := testutil.ToFloat64(DefaultsTotal.WithLabelValues("long")); got != 1 {
		t.Errorf("Expected DefaultsTotal[long] to stay 1, got %f", got)
	}
}
