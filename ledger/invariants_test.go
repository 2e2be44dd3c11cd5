package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corruptedLedger(t *testing.T) (*Ledger, InstrumentID) {
	t.Helper()
	l := newTestLedger(t)
	id, err := l.Mint("alice", dec("5"), KindCash)
	require.NoError(t, err)
	return l, id
}

func requireViolation(t *testing.T, err error, invariant string) {
	t.Helper()
	var iv *InvariantViolation
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, invariant, iv.Invariant)
}

func TestInvariantsNegativeAmount(t *testing.T) {
	l, id := corruptedLedger(t)
	in := l.instruments[id]
	in.Amount = dec("-1")
	requireViolation(t, l.AssertInvariants(), "non_negative_amount")
}

func TestInvariantsUnknownHolder(t *testing.T) {
	l, id := corruptedLedger(t)
	l.instruments[id].Holder = "ghost"
	requireViolation(t, l.AssertInvariants(), "holder_exists")
}

func TestInvariantsDanglingAssetEntry(t *testing.T) {
	l, id := corruptedLedger(t)
	// The holder still lists the id after the record is gone.
	issuer := l.instruments[id].Issuer
	l.agents[issuer].Liabilities = removeID(l.agents[issuer].Liabilities, id)
	delete(l.instruments, id)
	// Counter still claims the minted cash exists.
	err := l.AssertInvariants()
	require.Error(t, err)
	var iv *InvariantViolation
	require.ErrorAs(t, err, &iv)
	assert.Contains(t, []string{"asset_resolves", "outstanding_counter"}, iv.Invariant)
}

func TestInvariantsDuplicateAssetReference(t *testing.T) {
	l, id := corruptedLedger(t)
	a := l.agents["alice"]
	a.Assets = append(a.Assets, id)
	requireViolation(t, l.AssertInvariants(), "asset_cross_reference")
}

func TestInvariantsMissingLiabilityEntry(t *testing.T) {
	l, id := corruptedLedger(t)
	cb := l.agents[l.authority]
	cb.Liabilities = removeID(cb.Liabilities, id)
	requireViolation(t, l.AssertInvariants(), "liability_cross_reference")
}

func TestInvariantsOutstandingCounterDrift(t *testing.T) {
	l, _ := corruptedLedger(t)
	l.outstanding[KindCash] = dec("4")
	requireViolation(t, l.AssertInvariants(), "outstanding_counter")
}

func TestInvariantViolationIsNotRecoverable(t *testing.T) {
	l, _ := corruptedLedger(t)
	l.outstanding[KindCash] = dec("4")
	err := l.AssertInvariants()
	require.Error(t, err)
	// Violations are a distinct type, never one of the operational sentinels.
	assert.False(t, errors.Is(err, ErrInsufficientFunds))
}
