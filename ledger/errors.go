package ledger

import (
	"errors"
	"fmt"
)

// Validation errors. These are expected, recoverable conditions: the
// enclosing transaction rolls the ledger back and the caller decides
// what to do (a trade that cannot be financed simply does not execute).
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAgent      = errors.New("unknown agent")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidSplit      = errors.New("invalid split amount")
	ErrSelfTransfer      = errors.New("transfer to self")
	ErrMergeKeyMismatch  = errors.New("merge key mismatch")
	ErrNotMoneyLike      = errors.New("kind is not money-like")
	ErrDuplicateAgent    = errors.New("duplicate agent id")
	ErrNoAuthority       = errors.New("monetary authority not set")
)

// InvariantViolation reports a broken ledger invariant. It indicates a
// logic defect, not a data condition: callers must abort the run, never
// suppress it.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("ledger invariant %q violated: %s", e.Invariant, e.Detail)
}

func violation(invariant, format string, args ...interface{}) *InvariantViolation {
	return &InvariantViolation{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}
