// Package ledger is the double-entry core of the simulation: the single
// source of truth for who owns what. All mutation goes through the
// primitives below, each wrapped in an atomic scope that commits fully
// or restores the pre-operation snapshot.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"ticket-dealer-go/journal"
)

// Ledger owns the agent and instrument registries. It is not safe for
// concurrent use; the simulation is strictly single-threaded.
type Ledger struct {
	agents      map[AgentID]*Agent
	agentOrder  []AgentID
	instruments map[InstrumentID]*Instrument
	nextID      InstrumentID

	authority   AgentID
	outstanding map[InstrumentKind]decimal.Decimal

	day     int
	journal *journal.Journal

	snaps   []*snapshot
	pending []journal.Event
}

type snapshot struct {
	agents      map[AgentID]*Agent
	agentOrder  []AgentID
	instruments map[InstrumentID]*Instrument
	nextID      InstrumentID
	authority   AgentID
	outstanding map[InstrumentKind]decimal.Decimal
	pendingLen  int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		agents:      make(map[AgentID]*Agent),
		instruments: make(map[InstrumentID]*Instrument),
		outstanding: make(map[InstrumentKind]decimal.Decimal),
	}
}

// AttachJournal wires the append-only event log. Events raised inside a
// transaction are buffered and flushed only on commit.
func (l *Ledger) AttachJournal(j *journal.Journal) { l.journal = j }

// SetDay advances the ledger clock used to stamp journal events.
func (l *Ledger) SetDay(day int) { l.day = day }

// Day returns the current ledger day.
func (l *Ledger) Day() int { return l.day }

// CreateAgent registers a new agent. The first agent of kind authority
// becomes the monetary authority for the whole run.
func (l *Ledger) CreateAgent(id AgentID, kind AgentKind) (*Agent, error) {
	if _, ok := l.agents[id]; ok {
		return nil, fmt.Errorf("create agent %s: %w", id, ErrDuplicateAgent)
	}
	a := &Agent{ID: id, Kind: kind}
	l.agents[id] = a
	l.agentOrder = append(l.agentOrder, id)
	if kind == AgentAuthority && l.authority == "" {
		l.authority = id
	}
	return a, nil
}

// Authority returns the monetary authority captured at setup.
func (l *Ledger) Authority() AgentID { return l.authority }

// Agent looks up an agent by id.
func (l *Ledger) Agent(id AgentID) (*Agent, bool) {
	a, ok := l.agents[id]
	return a, ok
}

// Agents returns all agents in creation order.
func (l *Ledger) Agents() []*Agent {
	out := make([]*Agent, 0, len(l.agentOrder))
	for _, id := range l.agentOrder {
		out = append(out, l.agents[id])
	}
	return out
}

// Instrument looks up an instrument by id, returning a copy.
func (l *Ledger) Instrument(id InstrumentID) (Instrument, bool) {
	in, ok := l.instruments[id]
	if !ok {
		return Instrument{}, false
	}
	return *in, true
}

// Tx runs fn inside an atomic scope. On error every mutation made inside
// the scope is undone and buffered journal events are discarded. Nested
// calls snapshot independently, so an inner failure restores its own
// slice of work even if the outer scope swallows the error.
func (l *Ledger) Tx(fn func() error) error {
	l.snaps = append(l.snaps, l.snapshot())
	err := fn()
	snap := l.snaps[len(l.snaps)-1]
	l.snaps = l.snaps[:len(l.snaps)-1]
	if err != nil {
		l.restore(snap)
		return err
	}
	if len(l.snaps) == 0 {
		l.flushPending()
	}
	return nil
}

func (l *Ledger) snapshot() *snapshot {
	s := &snapshot{
		agents:      make(map[AgentID]*Agent, len(l.agents)),
		agentOrder:  append([]AgentID(nil), l.agentOrder...),
		instruments: make(map[InstrumentID]*Instrument, len(l.instruments)),
		nextID:      l.nextID,
		authority:   l.authority,
		outstanding: make(map[InstrumentKind]decimal.Decimal, len(l.outstanding)),
		pendingLen:  len(l.pending),
	}
	for id, a := range l.agents {
		s.agents[id] = a.clone()
	}
	for id, in := range l.instruments {
		cp := *in
		s.instruments[id] = &cp
	}
	for k, v := range l.outstanding {
		s.outstanding[k] = v
	}
	return s
}

func (l *Ledger) restore(s *snapshot) {
	l.agents = s.agents
	l.agentOrder = s.agentOrder
	l.instruments = s.instruments
	l.nextID = s.nextID
	l.authority = s.authority
	l.outstanding = s.outstanding
	l.pending = l.pending[:s.pendingLen]
}

func (l *Ledger) emit(e journal.Event) {
	if l.journal == nil {
		return
	}
	e.Day = l.day
	if len(l.snaps) == 0 {
		l.journal.Append(e)
		return
	}
	l.pending = append(l.pending, e)
}

func (l *Ledger) flushPending() {
	if l.journal == nil {
		l.pending = nil
		return
	}
	for _, e := range l.pending {
		l.journal.Append(e)
	}
	l.pending = nil
}

// Mint creates a new money-like instrument held by to, issued by the
// monetary authority, and bumps the authority's outstanding counter.
func (l *Ledger) Mint(to AgentID, amount decimal.Decimal, kind InstrumentKind) (InstrumentID, error) {
	var id InstrumentID
	err := l.Tx(func() error {
		if l.authority == "" {
			return fmt.Errorf("mint: %w", ErrNoAuthority)
		}
		if !kind.MoneyLike() {
			return fmt.Errorf("mint %s: %w", kind, ErrNotMoneyLike)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("mint %s: %w", amount, ErrInvalidAmount)
		}
		holder, ok := l.agents[to]
		if !ok {
			return fmt.Errorf("mint to %s: %w", to, ErrUnknownAgent)
		}
		auth := l.agents[l.authority]
		in := l.register(&Instrument{Kind: kind, Amount: amount, Holder: to, Issuer: l.authority})
		holder.Assets = append(holder.Assets, in.ID)
		auth.Liabilities = append(auth.Liabilities, in.ID)
		l.outstanding[kind] = l.outstandingOf(kind).Add(amount)
		id = in.ID
		l.emit(journal.Event{
			Kind:           journal.EventMint,
			To:             string(to),
			Issuer:         string(l.authority),
			Instrument:     uint64(in.ID),
			InstrumentKind: string(kind),
			Amount:         amount.String(),
		})
		return nil
	})
	return id, err
}

// Transfer moves amount of the given money-like kind from one agent to
// another. Holdings are consumed greedily in asset-list order, the last
// piece is split if it exceeds the needed remainder, and same-key pieces
// in the destination are merged afterwards to bound list growth. On
// ErrInsufficientFunds the ledger is left byte-for-byte unchanged.
func (l *Ledger) Transfer(from, to AgentID, amount decimal.Decimal, kind InstrumentKind) error {
	return l.Tx(func() error {
		if from == to {
			return fmt.Errorf("transfer %s: %w", from, ErrSelfTransfer)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("transfer %s: %w", amount, ErrInvalidAmount)
		}
		src, ok := l.agents[from]
		if !ok {
			return fmt.Errorf("transfer from %s: %w", from, ErrUnknownAgent)
		}
		if _, ok := l.agents[to]; !ok {
			return fmt.Errorf("transfer to %s: %w", to, ErrUnknownAgent)
		}
		if l.BalanceOf(from, kind).LessThan(amount) {
			return fmt.Errorf("transfer %s %s from %s: %w", amount, kind, from, ErrInsufficientFunds)
		}

		remaining := amount
		// Collect candidate ids first; moving mutates the asset list.
		var candidates []InstrumentID
		for _, id := range src.Assets {
			if l.instruments[id].Kind == kind {
				candidates = append(candidates, id)
			}
		}
		for _, id := range candidates {
			if remaining.IsZero() {
				break
			}
			in := l.instruments[id]
			if in.Amount.GreaterThan(remaining) {
				piece, err := l.splitLocked(in, remaining)
				if err != nil {
					return err
				}
				l.rehome(piece, to)
				remaining = decimal.Zero
				break
			}
			remaining = remaining.Sub(in.Amount)
			l.rehome(in, to)
		}
		l.coalesce(to, kind)
		l.emit(journal.Event{
			Kind:           journal.EventTransfer,
			From:           string(from),
			To:             string(to),
			InstrumentKind: string(kind),
			Amount:         amount.String(),
		})
		return nil
	})
}

// Split replaces one instrument of amount a with two instruments of
// amount and a-amount under the same holder and issuer, returning the
// new piece's id.
func (l *Ledger) Split(id InstrumentID, amount decimal.Decimal) (InstrumentID, error) {
	var pieceID InstrumentID
	err := l.Tx(func() error {
		in, ok := l.instruments[id]
		if !ok {
			return fmt.Errorf("split %d: %w", id, ErrUnknownInstrument)
		}
		piece, err := l.splitLocked(in, amount)
		if err != nil {
			return err
		}
		pieceID = piece.ID
		l.emit(journal.Event{
			Kind:            journal.EventSplit,
			Holder:          string(in.Holder),
			Instrument:      uint64(id),
			OtherInstrument: uint64(piece.ID),
			InstrumentKind:  string(in.Kind),
			Amount:          amount.String(),
		})
		return nil
	})
	return pieceID, err
}

func (l *Ledger) splitLocked(in *Instrument, amount decimal.Decimal) (*Instrument, error) {
	if !amount.IsPositive() || amount.GreaterThanOrEqual(in.Amount) {
		return nil, fmt.Errorf("split %d by %s of %s: %w", in.ID, amount, in.Amount, ErrInvalidSplit)
	}
	piece := l.register(&Instrument{
		Kind:     in.Kind,
		Amount:   amount,
		Holder:   in.Holder,
		Issuer:   in.Issuer,
		Maturity: in.Maturity,
		Bucket:   in.Bucket,
	})
	in.Amount = in.Amount.Sub(amount)
	l.agents[piece.Holder].Assets = append(l.agents[piece.Holder].Assets, piece.ID)
	l.agents[piece.Issuer].Liabilities = append(l.agents[piece.Issuer].Liabilities, piece.ID)
	return piece, nil
}

// Merge folds other into keep and deletes other. Both must share holder,
// issuer, kind, and maturity.
func (l *Ledger) Merge(keepID, otherID InstrumentID) error {
	return l.Tx(func() error {
		keep, ok := l.instruments[keepID]
		if !ok {
			return fmt.Errorf("merge keep %d: %w", keepID, ErrUnknownInstrument)
		}
		other, ok := l.instruments[otherID]
		if !ok {
			return fmt.Errorf("merge other %d: %w", otherID, ErrUnknownInstrument)
		}
		if keep.key() != other.key() {
			return fmt.Errorf("merge %d into %d: %w", otherID, keepID, ErrMergeKeyMismatch)
		}
		l.mergeLocked(keep, other)
		l.emit(journal.Event{
			Kind:            journal.EventMerge,
			Holder:          string(keep.Holder),
			Instrument:      uint64(keepID),
			OtherInstrument: uint64(otherID),
			InstrumentKind:  string(keep.Kind),
			Amount:          keep.Amount.String(),
		})
		return nil
	})
}

func (l *Ledger) mergeLocked(keep, other *Instrument) {
	keep.Amount = keep.Amount.Add(other.Amount)
	l.unregister(other)
}

// SettleObligation removes a fully discharged bilateral claim from both
// parties' books and deletes it from the registry.
func (l *Ledger) SettleObligation(id InstrumentID) error {
	return l.Tx(func() error {
		in, ok := l.instruments[id]
		if !ok {
			return fmt.Errorf("settle %d: %w", id, ErrUnknownInstrument)
		}
		if in.Kind.MoneyLike() {
			return fmt.Errorf("settle %d (%s): money-like instruments are retired, not settled: %w", id, in.Kind, ErrInvalidAmount)
		}
		l.unregister(in)
		l.emit(journal.Event{
			Kind:           journal.EventSettle,
			Holder:         string(in.Holder),
			Issuer:         string(in.Issuer),
			Instrument:     uint64(id),
			InstrumentKind: string(in.Kind),
			Amount:         in.Amount.String(),
		})
		return nil
	})
}

// MoveInstrument re-homes one concrete instrument instance to a new
// holder without touching the liability side. This is the only way a
// claim changes hands: trades never materialize a generic instrument.
func (l *Ledger) MoveInstrument(id InstrumentID, to AgentID) error {
	return l.Tx(func() error {
		in, ok := l.instruments[id]
		if !ok {
			return fmt.Errorf("move %d: %w", id, ErrUnknownInstrument)
		}
		if _, ok := l.agents[to]; !ok {
			return fmt.Errorf("move %d to %s: %w", id, to, ErrUnknownAgent)
		}
		if in.Holder == to {
			return fmt.Errorf("move %d to %s: %w", id, to, ErrSelfTransfer)
		}
		from := in.Holder
		l.rehome(in, to)
		l.emit(journal.Event{
			Kind:           journal.EventMove,
			From:           string(from),
			To:             string(to),
			Instrument:     uint64(id),
			InstrumentKind: string(in.Kind),
			Amount:         in.Amount.String(),
		})
		return nil
	})
}

// IssueTicket creates one standardized claim of the given face value.
func (l *Ledger) IssueTicket(issuer, holder AgentID, face decimal.Decimal, maturity int, bucket string) (InstrumentID, error) {
	return l.issueClaim(KindTicket, journal.EventTicketIssued, issuer, holder, face, maturity, bucket)
}

// IssuePayable creates a bilateral claim between two agents.
func (l *Ledger) IssuePayable(issuer, holder AgentID, amount decimal.Decimal, maturity int) (InstrumentID, error) {
	return l.issueClaim(KindPayable, journal.EventClaimIssued, issuer, holder, amount, maturity, "")
}

func (l *Ledger) issueClaim(kind InstrumentKind, ev journal.EventKind, issuer, holder AgentID, amount decimal.Decimal, maturity int, bucket string) (InstrumentID, error) {
	var id InstrumentID
	err := l.Tx(func() error {
		if !amount.IsPositive() {
			return fmt.Errorf("issue %s %s: %w", kind, amount, ErrInvalidAmount)
		}
		iss, ok := l.agents[issuer]
		if !ok {
			return fmt.Errorf("issue %s by %s: %w", kind, issuer, ErrUnknownAgent)
		}
		hld, ok := l.agents[holder]
		if !ok {
			return fmt.Errorf("issue %s to %s: %w", kind, holder, ErrUnknownAgent)
		}
		in := l.register(&Instrument{
			Kind:     kind,
			Amount:   amount,
			Holder:   holder,
			Issuer:   issuer,
			Maturity: maturity,
			Bucket:   bucket,
		})
		hld.Assets = append(hld.Assets, in.ID)
		iss.Liabilities = append(iss.Liabilities, in.ID)
		id = in.ID
		l.emit(journal.Event{
			Kind:           ev,
			Issuer:         string(issuer),
			Holder:         string(holder),
			Instrument:     uint64(in.ID),
			InstrumentKind: string(kind),
			Amount:         amount.String(),
			Maturity:       maturity,
			Bucket:         bucket,
		})
		return nil
	})
	return id, err
}

// Retire destroys all of an agent's money-like holdings of the given
// kind and decrements the authority's outstanding counter. Settlement
// uses this for the seizure of a defaulting issuer's residual cash.
func (l *Ledger) Retire(agent AgentID, kind InstrumentKind) (decimal.Decimal, error) {
	total := decimal.Zero
	err := l.Tx(func() error {
		if !kind.MoneyLike() {
			return fmt.Errorf("retire %s: %w", kind, ErrNotMoneyLike)
		}
		a, ok := l.agents[agent]
		if !ok {
			return fmt.Errorf("retire from %s: %w", agent, ErrUnknownAgent)
		}
		var doomed []*Instrument
		for _, id := range a.Assets {
			if in := l.instruments[id]; in.Kind == kind {
				doomed = append(doomed, in)
			}
		}
		for _, in := range doomed {
			total = total.Add(in.Amount)
			l.unregister(in)
		}
		if total.IsPositive() {
			l.outstanding[kind] = l.outstandingOf(kind).Sub(total)
			l.emit(journal.Event{
				Kind:           journal.EventRetire,
				From:           string(agent),
				InstrumentKind: string(kind),
				Amount:         total.String(),
			})
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SetBucket rewrites an instrument's bucket tag. Ownership is untouched;
// this is pure bookkeeping for the daily re-bucketing pass.
func (l *Ledger) SetBucket(id InstrumentID, bucket string) error {
	return l.Tx(func() error {
		in, ok := l.instruments[id]
		if !ok {
			return fmt.Errorf("rebucket %d: %w", id, ErrUnknownInstrument)
		}
		if in.Bucket == bucket {
			return nil
		}
		from := in.Bucket
		in.Bucket = bucket
		l.emit(journal.Event{
			Kind:       journal.EventRebucket,
			Instrument: uint64(id),
			From:       from,
			Bucket:     bucket,
		})
		return nil
	})
}

// BalanceOf sums the agent's holdings of one instrument kind.
func (l *Ledger) BalanceOf(agent AgentID, kind InstrumentKind) decimal.Decimal {
	a, ok := l.agents[agent]
	if !ok {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, id := range a.Assets {
		if in := l.instruments[id]; in.Kind == kind {
			total = total.Add(in.Amount)
		}
	}
	return total
}

// HoldingsOf returns copies of the agent's asset instruments of one
// kind, in asset-list order.
func (l *Ledger) HoldingsOf(agent AgentID, kind InstrumentKind) []Instrument {
	a, ok := l.agents[agent]
	if !ok {
		return nil
	}
	var out []Instrument
	for _, id := range a.Assets {
		if in := l.instruments[id]; in.Kind == kind {
			out = append(out, *in)
		}
	}
	return out
}

// LiabilitiesOf returns copies of the agent's liability instruments of
// one kind.
func (l *Ledger) LiabilitiesOf(agent AgentID, kind InstrumentKind) []Instrument {
	a, ok := l.agents[agent]
	if !ok {
		return nil
	}
	var out []Instrument
	for _, id := range a.Liabilities {
		if in := l.instruments[id]; in.Kind == kind {
			out = append(out, *in)
		}
	}
	return out
}

// MaturingOn returns copies of all claim instruments falling due on the
// given day, ordered by serial for deterministic settlement.
func (l *Ledger) MaturingOn(day int) []Instrument {
	var out []Instrument
	for _, in := range l.instruments {
		if in.Kind.Claim() && in.Maturity == day {
			out = append(out, *in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Outstanding returns the authority's tracked outstanding total for a
// money-like kind.
func (l *Ledger) Outstanding(kind InstrumentKind) decimal.Decimal {
	return l.outstandingOf(kind)
}

func (l *Ledger) outstandingOf(kind InstrumentKind) decimal.Decimal {
	if v, ok := l.outstanding[kind]; ok {
		return v
	}
	return decimal.Zero
}

func (l *Ledger) register(in *Instrument) *Instrument {
	l.nextID++
	in.ID = l.nextID
	l.instruments[in.ID] = in
	return in
}

func (l *Ledger) unregister(in *Instrument) {
	holder := l.agents[in.Holder]
	issuer := l.agents[in.Issuer]
	holder.Assets = removeID(holder.Assets, in.ID)
	issuer.Liabilities = removeID(issuer.Liabilities, in.ID)
	delete(l.instruments, in.ID)
}

func (l *Ledger) rehome(in *Instrument, to AgentID) {
	old := l.agents[in.Holder]
	old.Assets = removeID(old.Assets, in.ID)
	in.Holder = to
	l.agents[to].Assets = append(l.agents[to].Assets, in.ID)
}

// coalesce merges same-key pieces in an agent's holdings of one kind so
// repeated transfers do not grow the asset list without bound.
func (l *Ledger) coalesce(agent AgentID, kind InstrumentKind) {
	a := l.agents[agent]
	firstByKey := make(map[mergeKey]*Instrument)
	var dup []*Instrument
	for _, id := range a.Assets {
		in := l.instruments[id]
		if in.Kind != kind {
			continue
		}
		if _, ok := firstByKey[in.key()]; ok {
			dup = append(dup, in)
		} else {
			firstByKey[in.key()] = in
		}
	}
	for _, in := range dup {
		l.mergeLocked(firstByKey[in.key()], in)
	}
}
