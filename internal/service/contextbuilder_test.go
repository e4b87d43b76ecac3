package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/types"
)

type fixedSplits struct {
	splits map[string]market.Splits
}

func (f fixedSplits) FetchSplits(ctx context.Context, eventID string) (market.Splits, error) {
	s, ok := f.splits[eventID]
	if !ok {
		return market.Splits{}, market.ErrUnavailable
	}
	return s, nil
}

func gameCandidate() types.Candidate {
	odds := -110
	return types.Candidate{
		Event: types.Event{
			EventID:   "e_9",
			Sport:     types.SportNBA,
			Home:      "Nuggets",
			Away:      "Suns",
			StartTime: time.Date(2026, 1, 29, 23, 30, 0, 0, time.UTC),
			Status:    types.GameScheduled,
		},
		Market:       types.MarketTotal,
		Side:         "Over",
		Line:         233.5,
		Book:         "draftkings",
		OddsAmerican: &odds,
	}
}

func TestSnapshotBuilder_PopulatesGameLinesAndSplits(t *testing.T) {
	md := fakeMarketData{odds: market.OddsSnapshot{Sport: types.SportNBA, Lines: []market.BookLine{
		{Book: "fanduel", EventID: "e_9", Market: "SPREAD", Side: "Nuggets", Line: -6.5},
		{Book: "draftkings", EventID: "e_9", Market: "SPREAD", Side: "Nuggets", Line: -7.0},
		{Book: "draftkings", EventID: "e_9", Market: "TOTAL", Side: "Over", Line: 233.5},
		{Book: "draftkings", EventID: "other", Market: "TOTAL", Side: "Over", Line: 210.0},
	}}}
	splits := fixedSplits{splits: map[string]market.Splits{
		"e_9": {TicketPct: 35, MoneyPct: 65, SharpSide: "Under", Strength: market.SplitsModerate},
	}}

	b := NewSnapshotBuilder(md, splits, true)
	snap, opts, err := b.Build(context.Background(), gameCandidate())
	require.NoError(t, err)

	require.NotNil(t, snap.Spread)
	assert.InDelta(t, -7.0, *snap.Spread, 1e-9, "highest-preference book's spread wins")
	require.NotNil(t, snap.Total)
	assert.InDelta(t, 233.5, *snap.Total, 1e-9)
	assert.True(t, snap.HasJarvisIn)

	assert.True(t, snap.SplitsFound)
	assert.Equal(t, market.SplitsModerate, snap.Splits.Strength)

	assert.Equal(t, "2026-01-29T23:30:00Z", snap.EventTime)
	assert.True(t, opts.SERPShadowMode)
}

func TestSnapshotBuilder_SplitsUnavailableDegradesNotFails(t *testing.T) {
	md := fakeMarketData{}
	b := NewSnapshotBuilder(md, fixedSplits{}, true)

	snap, _, err := b.Build(context.Background(), gameCandidate())
	require.NoError(t, err)

	assert.False(t, snap.SplitsFound)
	assert.Equal(t, market.Splits{}, snap.Splits)
	assert.Nil(t, snap.Spread)
	assert.Nil(t, snap.Total)
	// A prop-less game candidate still has its own line as a Jarvis input.
	assert.True(t, snap.HasJarvisIn)
}

func TestBookAgreement_TightLinesScoreHigh(t *testing.T) {
	c := gameCandidate()
	snap := market.OddsSnapshot{Lines: []market.BookLine{
		{Book: "draftkings", EventID: "e_9", Market: "TOTAL", Side: "Over", Line: 233.5},
		{Book: "fanduel", EventID: "e_9", Market: "TOTAL", Side: "Over", Line: 233.5},
	}}
	assert.InDelta(t, 1.0, bookAgreement(snap, c), 1e-9)

	snap.Lines[1].Line = 210.0
	loose := bookAgreement(snap, c)
	assert.Less(t, loose, 1.0)
	assert.GreaterOrEqual(t, loose, 0.0)

	assert.Zero(t, bookAgreement(market.OddsSnapshot{}, c), "fewer than two books is no signal")
}
