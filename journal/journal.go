// Package journal is the append-only event log produced by the
// simulation core. It is the only audit trail: the ordered event
// sequence must be rebuildable into the exact sequence of ledger
// operations. External reporting consumes it read-only.
package journal

import "sync"

// EventKind identifies the operation an event records.
type EventKind string

const (
	EventMint         EventKind = "mint"
	EventTransfer     EventKind = "transfer"
	EventSplit        EventKind = "split"
	EventMerge        EventKind = "merge"
	EventSettle       EventKind = "settle"
	EventRetire       EventKind = "retire"
	EventTicketIssued EventKind = "ticket_issued"
	EventClaimIssued  EventKind = "claim_issued"
	EventMove         EventKind = "move"
	EventTrade        EventKind = "trade"
	EventRebucket     EventKind = "rebucket"
	EventRecovery     EventKind = "recovery"
	EventDefault      EventKind = "default"
	EventAnchorUpdate EventKind = "anchor_update"
	EventBankRates    EventKind = "bank_rates"
)

// Event is one structured journal record. Amount-like fields are decimal
// strings so the log round-trips without float drift. Only the fields
// relevant to the kind are set.
type Event struct {
	Seq  uint64    `json:"seq"`
	Day  int       `json:"day"`
	Kind EventKind `json:"kind"`

	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Holder string `json:"holder,omitempty"`

	Instrument      uint64 `json:"instrument,omitempty"`
	OtherInstrument uint64 `json:"other_instrument,omitempty"`
	InstrumentKind  string `json:"instrument_kind,omitempty"`
	Bucket          string `json:"bucket,omitempty"`
	Maturity        int    `json:"maturity,omitempty"`

	Amount string `json:"amount,omitempty"`
	Price  string `json:"price,omitempty"`

	// Trade fields.
	Side      string `json:"side,omitempty"`
	Interior  bool   `json:"interior,omitempty"`
	PinnedBid bool   `json:"pinned_bid,omitempty"`
	PinnedAsk bool   `json:"pinned_ask,omitempty"`

	// Settlement fields.
	Recovery string `json:"recovery,omitempty"`
	Loss     string `json:"loss,omitempty"`

	// Anchor fields.
	Mid    string `json:"mid,omitempty"`
	Spread string `json:"spread,omitempty"`

	// Bank corridor fields.
	DepositRate string `json:"deposit_rate,omitempty"`
	LoanRate    string `json:"loan_rate,omitempty"`
}

// Sink receives committed events in order. Sink failures are reported to
// the journal's error hook; they never roll back ledger state.
type Sink interface {
	Append(Event) error
}

// Journal fans committed events out to its sinks and keeps the full
// in-memory sequence for tests and post-run analysis.
type Journal struct {
	mu     sync.Mutex
	seq    uint64
	events []Event
	sinks  []Sink
	onErr  func(error)
}

// New creates a journal writing to the given sinks.
func New(sinks ...Sink) *Journal {
	return &Journal{sinks: sinks}
}

// OnError installs a hook called when a sink append fails.
func (j *Journal) OnError(fn func(error)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onErr = fn
}

// Append assigns the next sequence number and records the event.
func (j *Journal) Append(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	e.Seq = j.seq
	j.events = append(j.events, e)
	for _, s := range j.sinks {
		if err := s.Append(e); err != nil && j.onErr != nil {
			j.onErr(err)
		}
	}
}

// Events returns a copy of the committed event sequence.
func (j *Journal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Event(nil), j.events...)
}

// Len returns the number of committed events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.events)
}
