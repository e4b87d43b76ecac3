package slate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/types"
)

// fakeSource is a hand-rolled market.MarketDataSource for tests; concrete
// vendor adapters live outside this module, so every test supplies its
// own minimal stand-in rather than reaching for a generated mock.
type fakeSource struct {
	events []types.Event
	props  []types.Candidate
	odds   market.OddsSnapshot
}

func (f fakeSource) FetchEvents(ctx context.Context, sport types.Sport) ([]types.Event, error) {
	return f.events, nil
}

func (f fakeSource) FetchProps(ctx context.Context, sport types.Sport) ([]types.Candidate, error) {
	return f.props, nil
}

func (f fakeSource) GetOddsSnapshot(ctx context.Context, sport types.Sport) (market.OddsSnapshot, error) {
	return f.odds, nil
}

func mustLoadET(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestBuildSlate_ETDayGateRejectsNextDayEvent(t *testing.T) {
	loc := mustLoadET(t)
	admitted := time.Date(2026, 1, 29, 23, 0, 0, 0, loc).UTC() // 11 PM ET on 01-29
	rejected := time.Date(2026, 1, 30, 1, 0, 0, 0, loc).UTC()  // 1 AM ET on 01-30

	source := fakeSource{
		events: []types.Event{
			{EventID: "e_in", Sport: types.SportNHL, StartTime: admitted},
			{EventID: "e_out", Sport: types.SportNHL, StartTime: rejected},
		},
	}

	b := NewBuilder(source)
	result := b.BuildSlate(context.Background(), types.SportNHL, "2026-01-29")

	assert.Equal(t, 2, result.Telemetry.EventsBefore)
	assert.Equal(t, 1, result.Telemetry.EventsAfter)
	assert.Equal(t, 1, result.Telemetry.DroppedOutOfWindow)
}

func TestBuildSlate_EmptyUpstreamsYieldEmptySlate(t *testing.T) {
	b := NewBuilder(fakeSource{})
	result := b.BuildSlate(context.Background(), types.SportNHL, "2026-01-29")
	assert.Empty(t, result.Candidates)
	assert.Equal(t, 0, result.Telemetry.EventsBefore)
}

func TestBuildSlate_MaterializesGameCandidatesFromOddsSnapshot(t *testing.T) {
	loc := mustLoadET(t)
	start := time.Date(2026, 1, 29, 20, 0, 0, 0, loc).UTC()
	odds := -110

	source := fakeSource{
		events: []types.Event{
			{EventID: "e_123", Sport: types.SportNBA, Home: "Lakers", Away: "Celtics", StartTime: start},
		},
		odds: market.OddsSnapshot{
			Sport: types.SportNBA,
			Lines: []market.BookLine{
				{Book: "fanduel", EventID: "e_123", Market: "TOTAL", Side: "Over", Line: 246.5, OddsAmerican: &odds},
				{Book: "draftkings", EventID: "e_123", Market: "TOTAL", Side: "Over", Line: 246.5, OddsAmerican: &odds},
				{Book: "fanduel", EventID: "e_123", Market: "TOTAL", Side: "Under", Line: 246.5, OddsAmerican: &odds},
				{Book: "betmgm", EventID: "e_999", Market: "TOTAL", Side: "Over", Line: 200, OddsAmerican: &odds},
			},
		},
	}

	b := NewBuilder(source)
	result := b.BuildSlate(context.Background(), types.SportNBA, "2026-01-29")

	require.Len(t, result.Candidates, 2, "one candidate per quoted side, e_999 excluded (not in gated events)")
	byside := map[string]types.Candidate{}
	for _, c := range result.Candidates {
		byside[c.Side] = c
	}
	require.Contains(t, byside, "Over")
	require.Contains(t, byside, "Under")
	assert.Equal(t, "draftkings", byside["Over"].Book, "higher book-preference line wins for the Over side")
	assert.Equal(t, "fanduel", byside["Under"].Book)
}

func TestBuildSlate_DedupesByFingerprintPreferringHigherRankedBook(t *testing.T) {
	loc := mustLoadET(t)
	start := time.Date(2026, 1, 29, 20, 0, 0, 0, loc).UTC()
	odds := -105

	source := fakeSource{
		events: []types.Event{
			{EventID: "e_123", Sport: types.SportNBA, Home: "Lakers", Away: "Celtics", StartTime: start},
		},
		props: []types.Candidate{
			{Event: types.Event{EventID: "e_123"}, Market: types.MarketPlayer, Stat: "POINTS", PlayerID: "p1", Side: "Over", Line: 24.5, Book: "caesars", OddsAmerican: &odds},
			{Event: types.Event{EventID: "e_123"}, Market: types.MarketPlayer, Stat: "POINTS", PlayerID: "p1", Side: "Over", Line: 24.5, Book: "draftkings", OddsAmerican: &odds},
		},
	}

	b := NewBuilder(source)
	result := b.BuildSlate(context.Background(), types.SportNBA, "2026-01-29")

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "draftkings", result.Candidates[0].Book)
}
