package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-dealer-go/journal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New()
	_, err := l.CreateAgent("cb", AgentAuthority)
	require.NoError(t, err)
	for _, id := range []AgentID{"alice", "bob", "firm"} {
		_, err := l.CreateAgent(id, AgentHousehold)
		require.NoError(t, err)
	}
	return l
}

func TestMintTracksOutstanding(t *testing.T) {
	l := newTestLedger(t)

	id, err := l.Mint("alice", dec("10"), KindCash)
	require.NoError(t, err)

	in, ok := l.Instrument(id)
	require.True(t, ok)
	assert.Equal(t, AgentID("alice"), in.Holder)
	assert.Equal(t, AgentID("cb"), in.Issuer)
	assert.True(t, l.BalanceOf("alice", KindCash).Equal(dec("10")))
	assert.True(t, l.Outstanding(KindCash).Equal(dec("10")))
	require.NoError(t, l.AssertInvariants())
}

func TestMintRejectsClaimKinds(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Mint("alice", dec("1"), KindTicket)
	assert.ErrorIs(t, err, ErrNotMoneyLike)
}

func TestMintRequiresAuthority(t *testing.T) {
	l := New()
	_, err := l.CreateAgent("alice", AgentHousehold)
	require.NoError(t, err)
	_, err = l.Mint("alice", dec("1"), KindCash)
	assert.ErrorIs(t, err, ErrNoAuthority)
}

func TestTransferGreedyConsumptionAndSplit(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Mint("alice", dec("3"), KindCash)
	require.NoError(t, err)
	_, err = l.Mint("alice", dec("4"), KindCash)
	require.NoError(t, err)

	// 5 = first piece of 3 whole + 2 split off the 4.
	require.NoError(t, l.Transfer("alice", "bob", dec("5"), KindCash))

	assert.True(t, l.BalanceOf("alice", KindCash).Equal(dec("2")))
	assert.True(t, l.BalanceOf("bob", KindCash).Equal(dec("5")))
	// Bob's pieces were coalesced into a single instrument.
	assert.Len(t, l.HoldingsOf("bob", KindCash), 1)
	assert.True(t, l.Outstanding(KindCash).Equal(dec("7")))
	require.NoError(t, l.AssertInvariants())
}

func TestTransferInsufficientFundsRollsBack(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Mint("alice", dec("3"), KindCash)
	require.NoError(t, err)

	before := l.HoldingsOf("alice", KindCash)
	err = l.Transfer("alice", "bob", dec("5"), KindCash)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	after := l.HoldingsOf("alice", KindCash)
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.True(t, before[i].Amount.Equal(after[i].Amount))
	}
	assert.True(t, l.BalanceOf("bob", KindCash).IsZero())
	require.NoError(t, l.AssertInvariants())
}

func TestTransferToSelfRejected(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Mint("alice", dec("3"), KindCash)
	require.NoError(t, err)
	assert.ErrorIs(t, l.Transfer("alice", "alice", dec("1"), KindCash), ErrSelfTransfer)
}

func TestSplitAndMerge(t *testing.T) {
	l := newTestLedger(t)
	id, err := l.Mint("alice", dec("10"), KindCash)
	require.NoError(t, err)

	piece, err := l.Split(id, dec("4"))
	require.NoError(t, err)
	orig, _ := l.Instrument(id)
	cut, _ := l.Instrument(piece)
	assert.True(t, orig.Amount.Equal(dec("6")))
	assert.True(t, cut.Amount.Equal(dec("4")))
	require.NoError(t, l.AssertInvariants())

	require.NoError(t, l.Merge(id, piece))
	merged, _ := l.Instrument(id)
	assert.True(t, merged.Amount.Equal(dec("10")))
	_, ok := l.Instrument(piece)
	assert.False(t, ok)
	require.NoError(t, l.AssertInvariants())
}

func TestSplitRejectsOutOfRangeAmounts(t *testing.T) {
	l := newTestLedger(t)
	id, err := l.Mint("alice", dec("10"), KindCash)
	require.NoError(t, err)

	for _, bad := range []string{"0", "10", "11", "-1"} {
		_, err := l.Split(id, dec(bad))
		assert.ErrorIs(t, err, ErrInvalidSplit, "split by %s", bad)
	}
}

func TestMergeRequiresIdenticalKey(t *testing.T) {
	l := newTestLedger(t)
	a, err := l.Mint("alice", dec("1"), KindCash)
	require.NoError(t, err)
	b, err := l.Mint("bob", dec("1"), KindCash)
	require.NoError(t, err)

	assert.ErrorIs(t, l.Merge(a, b), ErrMergeKeyMismatch)
}

func TestSettleObligationRemovesBothSides(t *testing.T) {
	l := newTestLedger(t)
	id, err := l.IssueTicket("firm", "alice", dec("1"), 5, "short")
	require.NoError(t, err)

	require.NoError(t, l.SettleObligation(id))
	_, ok := l.Instrument(id)
	assert.False(t, ok)
	assert.Empty(t, l.HoldingsOf("alice", KindTicket))
	assert.Empty(t, l.LiabilitiesOf("firm", KindTicket))
	require.NoError(t, l.AssertInvariants())
}

func TestMoveInstrumentKeepsIdentity(t *testing.T) {
	l := newTestLedger(t)
	id, err := l.IssueTicket("firm", "alice", dec("1"), 5, "short")
	require.NoError(t, err)

	require.NoError(t, l.MoveInstrument(id, "bob"))
	in, ok := l.Instrument(id)
	require.True(t, ok)
	assert.Equal(t, AgentID("bob"), in.Holder)
	assert.Equal(t, AgentID("firm"), in.Issuer)
	assert.Empty(t, l.HoldingsOf("alice", KindTicket))
	require.NoError(t, l.AssertInvariants())
}

func TestRetireDestroysMoneyAndCounter(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Mint("firm", dec("7"), KindCash)
	require.NoError(t, err)
	_, err = l.Mint("alice", dec("2"), KindCash)
	require.NoError(t, err)

	seized, err := l.Retire("firm", KindCash)
	require.NoError(t, err)
	assert.True(t, seized.Equal(dec("7")))
	assert.True(t, l.BalanceOf("firm", KindCash).IsZero())
	assert.True(t, l.Outstanding(KindCash).Equal(dec("2")))
	require.NoError(t, l.AssertInvariants())
}

func TestNestedTxInnerFailureRestored(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Mint("alice", dec("3"), KindCash)
	require.NoError(t, err)

	// Outer scope swallows the inner failure; the inner op must still
	// be rolled back while the outer mutation commits.
	err = l.Tx(func() error {
		if err := l.Transfer("alice", "bob", dec("1"), KindCash); err != nil {
			return err
		}
		_ = l.Transfer("alice", "bob", dec("100"), KindCash) // fails, restored
		return nil
	})
	require.NoError(t, err)
	assert.True(t, l.BalanceOf("bob", KindCash).Equal(dec("1")))
	assert.True(t, l.BalanceOf("alice", KindCash).Equal(dec("2")))
	require.NoError(t, l.AssertInvariants())
}

func TestJournalEventsBufferedUntilCommit(t *testing.T) {
	l := newTestLedger(t)
	jr := journal.New()
	l.AttachJournal(jr)

	_, err := l.Mint("alice", dec("3"), KindCash)
	require.NoError(t, err)
	require.Equal(t, 1, jr.Len())

	// A failing transaction leaves no trace in the journal.
	_ = l.Tx(func() error {
		if err := l.Transfer("alice", "bob", dec("1"), KindCash); err != nil {
			return err
		}
		return ErrInsufficientFunds
	})
	assert.Equal(t, 1, jr.Len())
	assert.True(t, l.BalanceOf("bob", KindCash).IsZero())

	require.NoError(t, l.Transfer("alice", "bob", dec("1"), KindCash))
	events := jr.Events()
	require.Equal(t, 2, jr.Len())
	assert.Equal(t, journal.EventTransfer, events[1].Kind)
	assert.Equal(t, "alice", events[1].From)
}
