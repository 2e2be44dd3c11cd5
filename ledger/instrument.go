package ledger

import "github.com/shopspring/decimal"

// AgentID identifies an agent. IDs come from scenario setup and are
// stable for the whole run.
type AgentID string

// InstrumentID is a monotonically increasing serial assigned at creation.
// Serial order is the tie-break for deterministic instrument selection.
type InstrumentID uint64

// Instrument is an exclusively-owned claim or money unit: exactly one
// holder (asset side) and one issuer (liability side). Ownership is
// recorded as agent IDs, never embedded pointers, so the agent and
// instrument registries stay acyclic.
type Instrument struct {
	ID     InstrumentID
	Kind   InstrumentKind
	Amount decimal.Decimal
	Holder AgentID
	Issuer AgentID

	// Claim fields. Maturity is the absolute day the claim falls due;
	// Bucket is the current maturity-bucket tag, rewritten by the daily
	// re-bucketing pass without touching ownership.
	Maturity int
	Bucket   string
}

// RemainingTau returns days until maturity as of the given day.
func (in *Instrument) RemainingTau(day int) int {
	return in.Maturity - day
}

// mergeKey groups instruments that may be merged into one another:
// identical holder, issuer, kind, and maturity.
type mergeKey struct {
	holder   AgentID
	issuer   AgentID
	kind     InstrumentKind
	maturity int
}

func (in *Instrument) key() mergeKey {
	return mergeKey{holder: in.Holder, issuer: in.Issuer, kind: in.Kind, maturity: in.Maturity}
}

// Agent is an economic actor. Asset and liability lists are ordered;
// greedy consumption in Transfer walks Assets front to back.
type Agent struct {
	ID          AgentID
	Kind        AgentKind
	Assets      []InstrumentID
	Liabilities []InstrumentID
}

func (a *Agent) clone() *Agent {
	cp := &Agent{ID: a.ID, Kind: a.Kind}
	cp.Assets = append([]InstrumentID(nil), a.Assets...)
	cp.Liabilities = append([]InstrumentID(nil), a.Liabilities...)
	return cp
}

func removeID(list []InstrumentID, id InstrumentID) []InstrumentID {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func containsID(list []InstrumentID, id InstrumentID) int {
	n := 0
	for _, v := range list {
		if v == id {
			n++
		}
	}
	return n
}
