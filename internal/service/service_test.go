package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pickengine/internal/config"
	"github.com/sawpanic/pickengine/internal/etclock"
	"github.com/sawpanic/pickengine/internal/grader"
	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/pickstore"
	"github.com/sawpanic/pickengine/internal/scheduler"
	"github.com/sawpanic/pickengine/internal/scoring"
	"github.com/sawpanic/pickengine/internal/slate"
	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/telemetry"
	"github.com/sawpanic/pickengine/internal/types"
	"github.com/sawpanic/pickengine/internal/weights"
)

// fakeMarketData is a hand-rolled market.MarketDataSource; concrete vendor
// adapters live outside this module.
type fakeMarketData struct {
	events []types.Event
	props  []types.Candidate
	odds   market.OddsSnapshot
}

func (f fakeMarketData) FetchEvents(ctx context.Context, sport types.Sport) ([]types.Event, error) {
	return f.events, nil
}

func (f fakeMarketData) FetchProps(ctx context.Context, sport types.Sport) ([]types.Candidate, error) {
	return f.props, nil
}

func (f fakeMarketData) GetOddsSnapshot(ctx context.Context, sport types.Sport) (market.OddsSnapshot, error) {
	return f.odds, nil
}

// richBuilder hands every candidate a strong, fully-populated context so
// the end-to-end tests exercise the emit path rather than watching every
// candidate die at the 7.0/6.5 output thresholds.
type richBuilder struct {
	odds market.OddsSnapshot
}

func (b richBuilder) Build(ctx context.Context, c types.Candidate) (snapshot.Context, scoring.Options, error) {
	spread := 7.0
	snap := snapshot.Context{
		DefensiveRank: 1,
		Pace:          120,
		UsageVacuum:   1,
		RestDays:      5,
		RecentForm:    1,

		Splits:       market.Splits{TicketPct: 30, MoneyPct: 72, SharpSide: "Under", Strength: market.SplitsStrong},
		SplitsFound:  true,
		OddsSnapshot: b.odds,

		EventTime:   c.Event.StartTime.UTC().Format(time.RFC3339),
		Spread:      &spread,
		HasJarvisIn: true,
		GameStatus:  c.Event.Status,
	}
	opts := scoring.Options{
		SERPShadowMode:     true,
		EnsembleAdjustment: 0.5,
		ExpertConsensusRaw: 0.35,
	}
	return snap, opts, nil
}

func newTestService(t *testing.T, md market.MarketDataSource, builder ContextBuilder) (*Service, *pickstore.Store) {
	t.Helper()
	store, err := pickstore.Open(t.TempDir())
	require.NoError(t, err)
	wm, err := weights.Load(store)
	require.NoError(t, err)

	g := grader.New(store, NoopResultsSource{}, wm)
	svc := New(
		store,
		slate.NewBuilder(md),
		wm,
		g,
		scheduler.New(),
		telemetry.NewRegistry(),
		config.DefaultThresholds(),
		config.NewRegistry(),
		builder,
		DefaultConfig(),
	)
	return svc, store
}

func TestGenerateBestBets_EmptySlateIsWellFormed(t *testing.T) {
	svc, _ := newTestService(t, NoopMarketDataSource{}, DefaultContextBuilder{})

	result := svc.GenerateBestBets(context.Background(), types.SportNHL)

	assert.Equal(t, 0, result.Props.Count)
	assert.Equal(t, 0, result.Games.Count)
	require.NotNil(t, result.Props.Picks)
	require.NotNil(t, result.Games.Picks)
	assert.Len(t, result.Props.Picks, 0)
	assert.Len(t, result.Games.Picks, 0)
	assert.NotEmpty(t, result.Meta.RequestID)
	assert.Equal(t, etclock.Date(etclock.Now()), result.Meta.ETDate)
}

// totalsFixture builds one today-ET event quoted Over and Under across two
// books, i.e. a guaranteed contradiction pair once both sides score above
// the game threshold.
func totalsFixture() fakeMarketData {
	odds := -110
	now := time.Now().UTC()
	event := types.Event{
		EventID:   "e_123",
		Sport:     types.SportNBA,
		Home:      "Celtics",
		Away:      "Knicks",
		StartTime: now,
		Status:    types.GameScheduled,
	}
	lines := []market.BookLine{
		{Book: "draftkings", EventID: "e_123", Market: "TOTAL", Side: "Over", Line: 246.5, OddsAmerican: &odds},
		{Book: "fanduel", EventID: "e_123", Market: "TOTAL", Side: "Over", Line: 247.0, OddsAmerican: &odds},
		{Book: "draftkings", EventID: "e_123", Market: "TOTAL", Side: "Under", Line: 246.5, OddsAmerican: &odds},
		{Book: "fanduel", EventID: "e_123", Market: "TOTAL", Side: "Under", Line: 247.0, OddsAmerican: &odds},
	}
	return fakeMarketData{
		events: []types.Event{event},
		odds:   market.OddsSnapshot{Sport: types.SportNBA, Lines: lines},
	}
}

func TestGenerateBestBets_ContradictionGateRetainsOneSide(t *testing.T) {
	md := totalsFixture()
	svc, store := newTestService(t, md, richBuilder{odds: md.odds})

	result := svc.GenerateBestBets(context.Background(), types.SportNBA)

	// Both sides scored above threshold, but only one survives the gate.
	require.Equal(t, 1, result.Games.Count)
	assert.Equal(t, 0, result.Props.Count)

	pick := result.Games.Picks[0]
	assert.Equal(t, "TOTAL", pick.Market)
	assert.Contains(t, []string{"Over", "Under"}, pick.Side)

	// The survivor was persisted; the blocked side was not.
	stored, err := store.LoadPredictions("", "")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, pick.PickID, stored[0].PickID)
}

func TestGenerateBestBets_EmittedPickInvariants(t *testing.T) {
	md := totalsFixture()
	svc, _ := newTestService(t, md, richBuilder{odds: md.odds})

	result := svc.GenerateBestBets(context.Background(), types.SportNBA)
	require.NotEmpty(t, result.Games.Picks)

	for _, p := range result.Games.Picks {
		assert.GreaterOrEqual(t, p.FinalScore, 7.0, "game picks must clear the output threshold")
		assert.LessOrEqual(t, p.FinalScore, 10.0)
		assert.False(t, p.Tier.Hidden(), "MONITOR/PASS must never be emitted")

		for _, score := range []float64{p.AIScore, p.ResearchScore, p.EsotericScore, p.JarvisScore} {
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 10.0)
		}
		assert.GreaterOrEqual(t, p.ContextModifier, -0.35)
		assert.LessOrEqual(t, p.ContextModifier, 0.35)

		boosts := p.ConfluenceBoost + p.MSRFBoost + p.JasonSimBoost + p.SERPBoost
		assert.LessOrEqual(t, boosts, 1.5+1e-9, "boost sum must respect TOTAL_BOOST_CAP")

		// Titanium transparency is internally consistent.
		count := 0
		for _, score := range []float64{p.AIScore, p.ResearchScore, p.EsotericScore, p.JarvisScore} {
			if score >= 8.0 {
				count++
			}
		}
		assert.Equal(t, count, p.TitaniumCount)
		assert.Equal(t, count >= 3 && p.FinalScore >= 8.0, p.TitaniumTriggered)

		// The event admitted by the slate started within today's ET day.
		assert.Equal(t, etclock.Date(etclock.Now()), p.ETDate)
		assert.NotContains(t, p.EventStartTimeET, "Z", "consumer-facing times are ET display strings")
	}
}

func TestGenerateBestBets_PropThresholdAndGrouping(t *testing.T) {
	md := totalsFixture()
	odds := -115
	md.props = []types.Candidate{{
		Event:        md.events[0],
		Market:       types.MarketPlayer,
		Stat:         "POINTS",
		Side:         "Over",
		Line:         27.5,
		PlayerID:     "p_77",
		PlayerName:   "J. Tatum",
		Book:         "draftkings",
		OddsAmerican: &odds,
	}}
	svc, _ := newTestService(t, md, richBuilder{odds: md.odds})

	result := svc.GenerateBestBets(context.Background(), types.SportNBA)

	require.Equal(t, 1, result.Props.Count)
	prop := result.Props.Picks[0]
	assert.Equal(t, "PLAYER_POINTS", prop.Market)
	assert.GreaterOrEqual(t, prop.FinalScore, 6.5)
	assert.Equal(t, "p_77", prop.PlayerID)
	assert.Zero(t, prop.TotalsCalibrationAdj, "totals calibration never applies to props")
}

func TestDedupPicksByID_PrefersScoreThenBookPreference(t *testing.T) {
	picks := []types.Pick{
		{PickID: "a", FinalScore: 7.2, Book: "fanduel"},
		{PickID: "a", FinalScore: 7.8, Book: "caesars"},
		{PickID: "a", FinalScore: 7.8, Book: "draftkings"},
		{PickID: "b", FinalScore: 7.0, Book: "betmgm"},
	}

	out := dedupPicksByID(picks)

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].PickID)
	assert.Equal(t, "draftkings", out[0].Book)
	assert.InDelta(t, 7.8, out[0].FinalScore, 1e-9)
	assert.Equal(t, "b", out[1].PickID)
}

func TestSplitAndTrim_OrdersByTierThenScoreThenID(t *testing.T) {
	picks := []types.Pick{
		{PickID: "c", Market: "SPREAD", FinalScore: 9.0, Tier: types.TierGoldStar},
		{PickID: "a", Market: "TOTAL", FinalScore: 8.2, Tier: types.TierTitaniumSmash},
		{PickID: "b", Market: "MONEYLINE", FinalScore: 8.2, Tier: types.TierTitaniumSmash},
	}

	_, games := splitAndTrim(picks, 10)

	require.Len(t, games, 3)
	assert.Equal(t, "a", games[0].PickID, "titanium outranks a higher gold-star score")
	assert.Equal(t, "b", games[1].PickID, "pick_id breaks the score tie")
	assert.Equal(t, "c", games[2].PickID)
}

func TestRegisterDefaultJobs_RegistersFullJobTable(t *testing.T) {
	svc, _ := newTestService(t, NoopMarketDataSource{}, DefaultContextBuilder{})

	require.NoError(t, svc.RegisterDefaultJobs(""))

	status := svc.SchedulerStatus()
	names := make([]string, 0, len(status))
	for _, entry := range status {
		assert.True(t, entry.Registered)
		assert.NotEmpty(t, entry.NextRunET)
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{
		"grade_and_tune", "smoke_test", "jsonl_grading", "trap_evaluation",
		"daily_audit", "team_model_train", "training_verify",
		"props_fetch_morning", "props_fetch_noon", "props_fetch_afternoon",
		"props_fetch_evening",
	}, names)
}
