// Package sim drives the day-stepped simulation: a fixed phase order per
// day, no background execution, fully reproducible from the seed.
package sim

import (
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"ticket-dealer-go/bank"
	"ticket-dealer-go/config"
	"ticket-dealer-go/dealer"
	"ticket-dealer-go/journal"
	"ticket-dealer-go/ledger"
	"ticket-dealer-go/metrics"
	"ticket-dealer-go/outside"
	"ticket-dealer-go/policy"
	"ticket-dealer-go/settlement"
	"ticket-dealer-go/trading"
)

// Runner wires the ledger, desks, and engines together and advances the
// simulation one day at a time.
type Runner struct {
	cfg config.AppConfig
	log *zap.Logger
	rng *rand.Rand

	led     *ledger.Ledger
	jr      *journal.Journal
	pol     *policy.Policy
	exec    *trading.Executor
	settle  *settlement.Engine
	anchors map[string]*outside.Anchor
	desks   []*trading.Desk
	ranges  []policy.BucketRange
	banks   map[ledger.AgentID]*bank.BalanceSheet
}

// NewRunner builds a runner from config and scenario. The scenario is
// applied as a batch before day 1.
func NewRunner(cfg config.AppConfig, sc config.Scenario, jr *journal.Journal, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		cfg:     cfg,
		log:     log,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		led:     ledger.New(),
		jr:      jr,
		anchors: make(map[string]*outside.Anchor),
		banks:   make(map[ledger.AgentID]*bank.BalanceSheet),
	}
	r.led.AttachJournal(jr)
	if err := r.setup(sc); err != nil {
		return nil, fmt.Errorf("scenario setup: %w", err)
	}
	kernelCfg := dealer.Config{Face: cfg.TicketFace.Decimal, MinMid: cfg.GuardMid.Decimal}
	r.exec = trading.NewExecutor(r.led, jr, kernelCfg, ledger.KindCash, r.desks, log)
	r.settle = settlement.New(r.led, jr, ledger.KindCash, cfg.MinUnit.Decimal, log)
	return r, nil
}

// Ledger exposes the ledger for post-run inspection.
func (r *Runner) Ledger() *ledger.Ledger { return r.led }

// Executor exposes the trade executor.
func (r *Runner) Executor() *trading.Executor { return r.exec }

// Anchor returns a bucket's outside anchor.
func (r *Runner) Anchor(bucket string) *outside.Anchor { return r.anchors[bucket] }

// Run advances the full configured horizon. A returned
// *ledger.InvariantViolation means the run aborted on a logic defect.
func (r *Runner) Run() error {
	for day := 1; day <= r.cfg.Days; day++ {
		if err := r.RunDay(day); err != nil {
			return err
		}
	}
	return nil
}

// RunDay executes one day in the fixed phase order: re-bucketing,
// settlement, eligibility classification, order flow and trading, then
// anchor updates, then the invariant oracle.
func (r *Runner) RunDay(day int) error {
	r.led.SetDay(day)
	metrics.SimDay.Set(float64(day))

	if err := r.pol.Rebucket(day); err != nil {
		return err
	}

	settled, err := r.settle.RunDay(day)
	if err != nil {
		return err
	}

	if err := r.runOrderFlow(day); err != nil {
		return err
	}

	r.updateAnchors(day, settled)
	r.runBanks(day)
	r.publishDeskMetrics()

	if err := r.led.AssertInvariants(); err != nil {
		r.log.Error("invariant violation, aborting run", zap.Int("day", day), zap.Error(err))
		return err
	}
	r.log.Info("day complete",
		zap.Int("day", day),
		zap.Int("settled_issuers", len(settled.Outcomes)),
		zap.Int("events", r.eventCount()),
	)
	return nil
}

func (r *Runner) eventCount() int {
	if r.jr == nil {
		return 0
	}
	return r.jr.Len()
}

// runOrderFlow classifies agents and presents up to MaxOrdersPerDay
// orders in seeded random order. Infeasible orders are normal branches,
// not errors; invariant violations abort.
func (r *Runner) runOrderFlow(day int) error {
	type order struct {
		agent ledger.AgentID
		side  trading.Side
	}
	var orders []order
	for _, a := range r.customers() {
		if r.pol.SellEligible(a.ID, day) {
			orders = append(orders, order{agent: a.ID, side: trading.SideSell})
		} else if r.pol.BuyEligible(a.ID, day) {
			orders = append(orders, order{agent: a.ID, side: trading.SideBuy})
		}
	}
	r.rng.Shuffle(len(orders), func(i, j int) { orders[i], orders[j] = orders[j], orders[i] })
	if limit := r.cfg.OrderFlow.MaxOrdersPerDay; limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}

	for _, o := range orders {
		var err error
		switch o.side {
		case trading.SideSell:
			bucket, ok := r.sellBucketFor(o.agent, day)
			if !ok {
				continue
			}
			_, err = r.exec.Sell(o.agent, bucket)
		case trading.SideBuy:
			bucket := r.desks[r.rng.Intn(len(r.desks))].Bucket
			_, err = r.exec.Buy(o.agent, bucket)
		}
		if err == nil {
			continue
		}
		var iv *ledger.InvariantViolation
		if errors.As(err, &iv) {
			return iv
		}
		// An unfinanceable or unfillable order just does not execute.
		r.log.Debug("order not executed",
			zap.Int("day", day),
			zap.String("agent", string(o.agent)),
			zap.String("side", string(o.side)),
			zap.Error(err),
		)
	}
	return nil
}

// sellBucketFor picks the bucket of the agent's shortest-maturity
// ticket, lowest serial on ties.
func (r *Runner) sellBucketFor(agent ledger.AgentID, day int) (string, bool) {
	holdings := r.led.HoldingsOf(agent, ledger.KindTicket)
	if len(holdings) == 0 {
		return "", false
	}
	best := holdings[0]
	for _, in := range holdings[1:] {
		ti, tb := in.RemainingTau(day), best.RemainingTau(day)
		if ti < tb || (ti == tb && in.ID < best.ID) {
			best = in
		}
	}
	return best.Bucket, true
}

// updateAnchors applies the once-per-day loss-driven anchor update.
// This is the only place anchors move.
func (r *Runner) updateAnchors(day int, settled settlement.DayResult) {
	for _, d := range r.desks {
		loss, ok := settled.Loss[d.Bucket]
		if !ok || !loss.IsPositive() {
			continue
		}
		anchor := r.anchors[d.Bucket]
		anchor.ApplyLoss(loss)
		if r.jr != nil {
			r.jr.Append(journal.Event{
				Kind:   journal.EventAnchorUpdate,
				Day:    day,
				Bucket: d.Bucket,
				Loss:   loss.String(),
				Mid:    anchor.Mid.String(),
				Spread: anchor.Spread.String(),
			})
		}
	}
}

// runBanks matures today's cohorts and publishes corridor rate quotes.
func (r *Runner) runBanks(day int) {
	if !r.cfg.Bank.DealSize.IsPositive() {
		return
	}
	corridor := bank.CorridorConfig{
		DealSize:        r.cfg.Bank.DealSize.Decimal,
		PolicyRate:      r.cfg.Bank.PolicyRate.Decimal,
		DepositFacility: r.cfg.Bank.DepositFacility.Decimal,
		LendingFacility: r.cfg.Bank.LendingFacility.Decimal,
		MinPolicyRate:   r.cfg.Bank.MinPolicyRate.Decimal,
		Horizon:         r.cfg.Bank.Horizon,
	}
	for _, a := range r.led.Agents() {
		sheet, ok := r.banks[a.ID]
		if !ok {
			continue
		}
		sheet.Mature(day)
		q := bank.ComputeRates(corridor, sheet, day)
		if r.jr != nil {
			r.jr.Append(journal.Event{
				Kind:        journal.EventBankRates,
				Day:         day,
				From:        string(a.ID),
				DepositRate: q.DepositRate.String(),
				LoanRate:    q.LoanRate.String(),
			})
		}
	}
}

func (r *Runner) publishDeskMetrics() {
	for _, d := range r.desks {
		tickets, cash := r.exec.Book(d)
		cashF, _ := cash.Float64()
		midF, _ := d.Anchor.Mid.Float64()
		spreadF, _ := d.Anchor.Spread.Float64()
		metrics.UpdateDeskMetrics(d.Bucket, float64(tickets), cashF, midF, spreadF)
	}
}
