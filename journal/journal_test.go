package journal_test

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-dealer-go/journal"
)

type failingSink struct{ err error }

func (s failingSink) Append(journal.Event) error { return s.err }

func TestJournalAssignsMonotonicSequence(t *testing.T) {
	jr := journal.New()
	jr.Append(journal.Event{Day: 1, Kind: journal.EventMint, Amount: "10"})
	jr.Append(journal.Event{Day: 1, Kind: journal.EventTransfer, Amount: "3"})
	jr.Append(journal.Event{Day: 2, Kind: journal.EventTrade, Price: "0.9325"})

	events := jr.Events()
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
	assert.Equal(t, journal.EventTrade, events[2].Kind)
	assert.Equal(t, 3, jr.Len())
}

func TestJournalEventsReturnsCopy(t *testing.T) {
	jr := journal.New()
	jr.Append(journal.Event{Kind: journal.EventMint})

	events := jr.Events()
	events[0].Kind = journal.EventRetire
	assert.Equal(t, journal.EventMint, jr.Events()[0].Kind)
}

func TestJournalSinkErrorsHitHookNotCaller(t *testing.T) {
	sinkErr := errors.New("disk full")
	jr := journal.New(failingSink{err: sinkErr})

	var seen []error
	jr.OnError(func(err error) { seen = append(seen, err) })

	jr.Append(journal.Event{Kind: journal.EventMint})
	jr.Append(journal.Event{Kind: journal.EventTransfer})

	// Appends still commit to the in-memory sequence.
	assert.Equal(t, 2, jr.Len())
	require.Len(t, seen, 2)
	assert.ErrorIs(t, seen[0], sinkErr)
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	sink, err := journal.NewFileSink(path)
	require.NoError(t, err)

	jr := journal.New(sink)
	jr.Append(journal.Event{Day: 3, Kind: journal.EventTrade, Bucket: "short", Side: "buy", Price: "0.9325", Interior: true})
	jr.Append(journal.Event{Day: 3, Kind: journal.EventRecovery, Issuer: "firm1", Recovery: "0.6"})
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []journal.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e journal.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e)
	}
	require.NoError(t, sc.Err())

	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, journal.EventTrade, got[0].Kind)
	assert.Equal(t, "0.9325", got[0].Price)
	assert.True(t, got[0].Interior)
	assert.Equal(t, "0.6", got[1].Recovery)
}
