// Package trading executes customer orders against either the dealer's
// own book (interior) or the outside provider (pass-through). A trade
// always moves a specific, previously existing ticket instance between
// two parties; no generic instrument is ever materialized.
package trading

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ticket-dealer-go/dealer"
	"ticket-dealer-go/journal"
	"ticket-dealer-go/ledger"
	"ticket-dealer-go/metrics"
	"ticket-dealer-go/outside"
)

var (
	// ErrNoTicket means the selling customer holds no ticket in the
	// bucket. Not a trade failure, just nothing to do.
	ErrNoTicket = errors.New("no ticket to sell in bucket")
	// ErrNoOutsideInventory means a pass-through buy found the outside
	// provider with no ticket instance in the bucket. Materializing one
	// is forbidden, so the order goes unfilled.
	ErrNoOutsideInventory = errors.New("outside provider holds no ticket in bucket")
)

// Side is the customer's side of the order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Desk is one bucket's dealer/outside pair.
type Desk struct {
	Bucket  string
	Dealer  ledger.AgentID
	Outside ledger.AgentID
	Anchor  *outside.Anchor
}

// Result describes one executed trade. Ephemeral: logged, not persisted.
type Result struct {
	Side       Side
	Price      decimal.Decimal
	Interior   bool
	Instrument ledger.InstrumentID
	Quotes     dealer.Quotes
}

// Executor routes customer orders for all desks.
type Executor struct {
	led   *ledger.Ledger
	jr    *journal.Journal
	cfg   dealer.Config
	cash  ledger.InstrumentKind
	desks map[string]*Desk
	log   *zap.Logger
}

// NewExecutor creates an executor trading in the given money kind.
func NewExecutor(led *ledger.Ledger, jr *journal.Journal, cfg dealer.Config, cash ledger.InstrumentKind, desks []*Desk, log *zap.Logger) *Executor {
	byBucket := make(map[string]*Desk, len(desks))
	for _, d := range desks {
		byBucket[d.Bucket] = d
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{led: led, jr: jr, cfg: cfg, cash: cash, desks: byBucket, log: log}
}

// Desk returns the desk for a bucket.
func (e *Executor) Desk(bucket string) (*Desk, bool) {
	d, ok := e.desks[bucket]
	return d, ok
}

// Book returns the dealer's current (ticket count, cash) for a desk.
func (e *Executor) Book(d *Desk) (int64, decimal.Decimal) {
	return e.bookOf(d.Dealer, d.Bucket)
}

func (e *Executor) bookOf(agent ledger.AgentID, bucket string) (int64, decimal.Decimal) {
	var tickets int64
	for _, in := range e.led.HoldingsOf(agent, ledger.KindTicket) {
		if in.Bucket == bucket {
			tickets++
		}
	}
	return tickets, e.led.BalanceOf(agent, e.cash)
}

// QuotesFor recomputes the desk's quote ladder from the live book.
func (e *Executor) QuotesFor(d *Desk) dealer.Quotes {
	tickets, cash := e.Book(d)
	return dealer.Compute(e.cfg, tickets, cash, d.Anchor)
}

// Sell executes a customer SELL of one ticket in the bucket: the dealer
// buys at its bid if feasible, otherwise the order passes through to the
// outside provider at the outside bid.
func (e *Executor) Sell(customer ledger.AgentID, bucket string) (Result, error) {
	d, ok := e.desks[bucket]
	if !ok {
		return Result{}, fmt.Errorf("sell in %s: unknown bucket", bucket)
	}
	ticket, ok := pickTicket(e.led.HoldingsOf(customer, ledger.KindTicket), bucket, e.led.Day())
	if !ok {
		return Result{}, fmt.Errorf("sell by %s in %s: %w", customer, bucket, ErrNoTicket)
	}

	tickets, cash := e.Book(d)
	q := dealer.Compute(e.cfg, tickets, cash, d.Anchor)

	if q.CanInteriorBuy(e.cfg, tickets, cash) {
		res := Result{Side: SideSell, Price: q.Bid, Interior: true, Instrument: ticket.ID, Quotes: q}
		if err := e.swap(d.Dealer, customer, ticket.ID, q.Bid); err != nil {
			return Result{}, err
		}
		e.record(d, res, d.Dealer, customer)
		return res, nil
	}

	// Pass-through: route to the outside provider, dealer untouched.
	res := Result{Side: SideSell, Price: q.OutsideBid, Interior: false, Instrument: ticket.ID, Quotes: q}
	if err := e.passThrough(d, func() error {
		return e.swap(d.Outside, customer, ticket.ID, q.OutsideBid)
	}); err != nil {
		return Result{}, err
	}
	e.record(d, res, d.Outside, customer)
	return res, nil
}

// Buy executes a customer BUY of one ticket in the bucket: the dealer
// sells from inventory at its ask if feasible, otherwise the customer
// buys from the outside provider at the outside ask.
func (e *Executor) Buy(customer ledger.AgentID, bucket string) (Result, error) {
	d, ok := e.desks[bucket]
	if !ok {
		return Result{}, fmt.Errorf("buy in %s: unknown bucket", bucket)
	}

	tickets, cash := e.Book(d)
	q := dealer.Compute(e.cfg, tickets, cash, d.Anchor)

	if q.CanInteriorSell(tickets) {
		ticket, ok := pickTicket(e.led.HoldingsOf(d.Dealer, ledger.KindTicket), bucket, e.led.Day())
		if !ok {
			return Result{}, &ledger.InvariantViolation{
				Invariant: "dealer_inventory",
				Detail:    fmt.Sprintf("desk %s reports %d tickets but none found", bucket, tickets),
			}
		}
		res := Result{Side: SideBuy, Price: q.Ask, Interior: true, Instrument: ticket.ID, Quotes: q}
		if err := e.swap(customer, d.Dealer, ticket.ID, q.Ask); err != nil {
			return Result{}, err
		}
		e.record(d, res, d.Dealer, customer)
		return res, nil
	}

	ticket, ok := pickTicket(e.led.HoldingsOf(d.Outside, ledger.KindTicket), bucket, e.led.Day())
	if !ok {
		return Result{}, fmt.Errorf("buy by %s in %s: %w", customer, bucket, ErrNoOutsideInventory)
	}
	res := Result{Side: SideBuy, Price: q.OutsideAsk, Interior: false, Instrument: ticket.ID, Quotes: q}
	if err := e.passThrough(d, func() error {
		return e.swap(customer, d.Outside, ticket.ID, q.OutsideAsk)
	}); err != nil {
		return Result{}, err
	}
	e.record(d, res, d.Outside, customer)
	return res, nil
}

// swap atomically pays price from buyer to seller and re-homes the
// ticket from seller to buyer, then checks double-entry balance: cash
// deltas across the two counterparties sum to zero and exactly one
// instrument changed hands.
func (e *Executor) swap(buyer, seller ledger.AgentID, ticket ledger.InstrumentID, price decimal.Decimal) error {
	buyerCash := e.led.BalanceOf(buyer, e.cash)
	sellerCash := e.led.BalanceOf(seller, e.cash)

	err := e.led.Tx(func() error {
		if price.IsPositive() {
			if err := e.led.Transfer(buyer, seller, price, e.cash); err != nil {
				return err
			}
		}
		return e.led.MoveInstrument(ticket, buyer)
	})
	if err != nil {
		return err
	}

	buyerDelta := e.led.BalanceOf(buyer, e.cash).Sub(buyerCash)
	sellerDelta := e.led.BalanceOf(seller, e.cash).Sub(sellerCash)
	if !buyerDelta.Add(sellerDelta).IsZero() {
		return &ledger.InvariantViolation{
			Invariant: "trade_cash_conservation",
			Detail:    fmt.Sprintf("buyer %s delta %s, seller %s delta %s", buyer, buyerDelta, seller, sellerDelta),
		}
	}
	in, ok := e.led.Instrument(ticket)
	if !ok || in.Holder != buyer {
		return &ledger.InvariantViolation{
			Invariant: "trade_instrument_conservation",
			Detail:    fmt.Sprintf("ticket %d not held by buyer %s after trade", ticket, buyer),
		}
	}
	return nil
}

// passThrough runs a pass-through execution and asserts the dealer's
// (x, C) is bit-identical before and after.
func (e *Executor) passThrough(d *Desk, fn func() error) error {
	ticketsBefore, cashBefore := e.Book(d)
	if err := fn(); err != nil {
		return err
	}
	ticketsAfter, cashAfter := e.Book(d)
	if ticketsAfter != ticketsBefore || !cashAfter.Equal(cashBefore) {
		return &ledger.InvariantViolation{
			Invariant: "pass_through_neutrality",
			Detail: fmt.Sprintf("desk %s dealer book moved from (%d, %s) to (%d, %s)",
				d.Bucket, ticketsBefore, cashBefore, ticketsAfter, cashAfter),
		}
	}
	return nil
}

func (e *Executor) record(d *Desk, res Result, counterparty, customer ledger.AgentID) {
	if e.jr != nil {
		e.jr.Append(journal.Event{
			Kind:       journal.EventTrade,
			Day:        e.led.Day(),
			From:       string(customer),
			To:         string(counterparty),
			Bucket:     d.Bucket,
			Instrument: uint64(res.Instrument),
			Price:      res.Price.String(),
			Side:       string(res.Side),
			Interior:   res.Interior,
			PinnedBid:  res.Quotes.PinnedBid,
			PinnedAsk:  res.Quotes.PinnedAsk,
		})
	}
	metrics.IncrementTrades(d.Bucket, string(res.Side), res.Interior)
	e.log.Debug("trade executed",
		zap.String("bucket", d.Bucket),
		zap.String("customer", string(customer)),
		zap.String("side", string(res.Side)),
		zap.Bool("interior", res.Interior),
		zap.String("price", res.Price.String()),
		zap.Uint64("instrument", uint64(res.Instrument)),
	)
}

// pickTicket selects the concrete instance to move: shortest remaining
// time-to-maturity first, then lowest serial.
func pickTicket(holdings []ledger.Instrument, bucket string, day int) (ledger.Instrument, bool) {
	var inBucket []ledger.Instrument
	for _, in := range holdings {
		if in.Bucket == bucket {
			inBucket = append(inBucket, in)
		}
	}
	if len(inBucket) == 0 {
		return ledger.Instrument{}, false
	}
	sort.Slice(inBucket, func(i, j int) bool {
		ti, tj := inBucket[i].RemainingTau(day), inBucket[j].RemainingTau(day)
		if ti != tj {
			return ti < tj
		}
		return inBucket[i].ID < inBucket[j].ID
	})
	return inBucket[0], true
}
