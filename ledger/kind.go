package ledger

// AgentKind classifies the economic role of an agent.
type AgentKind string

const (
	AgentHousehold AgentKind = "household"
	AgentDealer    AgentKind = "dealer"
	AgentOutside   AgentKind = "outside"
	AgentIssuer    AgentKind = "issuer"
	AgentBank      AgentKind = "bank"
	AgentAuthority AgentKind = "authority"
)

// InstrumentKind classifies an instrument. The set is closed; code that
// branches on kind must switch exhaustively over these values.
type InstrumentKind string

const (
	// Money-like instruments, issued by the monetary authority.
	KindCash    InstrumentKind = "cash"
	KindReserve InstrumentKind = "reserve"

	// Claim instruments, issued by ordinary agents.
	KindPayable     InstrumentKind = "payable"
	KindTicket      InstrumentKind = "ticket"
	KindDeliverable InstrumentKind = "deliverable"
)

// MoneyLike reports whether the kind is a money-like instrument whose
// outstanding total is tracked by the issuing authority.
func (k InstrumentKind) MoneyLike() bool {
	switch k {
	case KindCash, KindReserve:
		return true
	case KindPayable, KindTicket, KindDeliverable:
		return false
	}
	return false
}

// Claim reports whether the kind carries a maturity day.
func (k InstrumentKind) Claim() bool {
	switch k {
	case KindPayable, KindTicket, KindDeliverable:
		return true
	case KindCash, KindReserve:
		return false
	}
	return false
}

// Valid reports whether k is one of the known instrument kinds.
func (k InstrumentKind) Valid() bool {
	return k.MoneyLike() || k.Claim()
}
