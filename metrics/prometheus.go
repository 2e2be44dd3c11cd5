package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesExecuted counts executed trades by bucket, customer side,
	// and execution path (interior vs passthrough).
	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_trades_total",
		Help: "Executed trades by bucket, side and path",
	}, []string{"bucket", "side", "path"})

	// OutsideMid tracks the outside provider's mid anchor per bucket.
	OutsideMid = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_outside_mid",
		Help: "Outside provider mid anchor per bucket",
	}, []string{"bucket"})

	// OutsideSpread tracks the outside provider's spread anchor per bucket.
	OutsideSpread = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_outside_spread",
		Help: "Outside provider spread anchor per bucket",
	}, []string{"bucket"})

	// DealerTickets tracks dealer inventory in tickets per bucket.
	DealerTickets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_dealer_tickets",
		Help: "Dealer ticket inventory per bucket",
	}, []string{"bucket"})

	// DealerCash tracks dealer cash per bucket.
	DealerCash = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_dealer_cash",
		Help: "Dealer cash per bucket",
	}, []string{"bucket"})

	// RecoveryRate tracks the latest settlement recovery rate per bucket.
	RecoveryRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_recovery_rate",
		Help: "Latest settlement recovery rate per bucket",
	}, []string{"bucket"})

	// DefaultsTotal counts issuer defaults per bucket.
	DefaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_defaults_total",
		Help: "Issuer defaults per bucket",
	}, []string{"bucket"})

	// SimDay tracks the current simulation day.
	SimDay = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_day",
		Help: "Current simulation day",
	})
)

// IncrementTrades bumps the trade counter for one execution.
func IncrementTrades(bucket, side string, interior bool) {
	path := "passthrough"
	if interior {
		path = "interior"
	}
	TradesExecuted.WithLabelValues(bucket, side, path).Inc()
}

// UpdateDeskMetrics refreshes the per-bucket book and anchor gauges.
func UpdateDeskMetrics(bucket string, tickets float64, cash, mid, spread float64) {
	DealerTickets.WithLabelValues(bucket).Set(tickets)
	DealerCash.WithLabelValues(bucket).Set(cash)
	OutsideMid.WithLabelValues(bucket).Set(mid)
	OutsideSpread.WithLabelValues(bucket).Set(spread)
}

// UpdateSettlementMetrics records a settlement batch outcome.
func UpdateSettlementMetrics(bucket string, recovery float64, defaulted bool) {
	RecoveryRate.WithLabelValues(bucket).Set(recovery)
	if defaulted {
		DefaultsTotal.WithLabelValues(bucket).Inc()
	}
}
