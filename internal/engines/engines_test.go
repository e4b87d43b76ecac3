package engines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

func TestScoreJarvis_SevenFieldContract_NoInputs(t *testing.T) {
	result := ScoreJarvis(types.Candidate{}, snapshot.Context{HasJarvisIn: false})
	assert.Equal(t, 4.5, result.RS)
	assert.False(t, result.Active)
	assert.Equal(t, 0, result.HitsCount)
	assert.Nil(t, result.TriggersHit)
	assert.NotEmpty(t, result.Reasons)
	assert.NotEmpty(t, result.FailReasons)
	assert.NotNil(t, result.InputsUsed)
}

func TestScoreJarvis_BaselineWhenNoTriggerFires(t *testing.T) {
	// 10 is not a sacred number and its digit sum (1) is not either.
	spread := 10.0
	result := ScoreJarvis(types.Candidate{}, snapshot.Context{HasJarvisIn: true, Spread: &spread})
	assert.Equal(t, 4.5, result.RS, "no trigger fired, jarvis_rs stays at baseline")
	assert.False(t, result.Active)
	assert.NotEmpty(t, result.FailReasons)
}

func TestScoreJarvis_TriggerFiresOnSacredNumber(t *testing.T) {
	spread := 7.0 // sacred number
	result := ScoreJarvis(types.Candidate{}, snapshot.Context{HasJarvisIn: true, Spread: &spread})
	assert.True(t, result.Active)
	assert.Equal(t, 1, result.HitsCount)
	assert.Greater(t, result.RS, 4.5)
	assert.LessOrEqual(t, result.RS, 10.0)
}

func TestScoreJarvis_StackedTriggersDecayAndClampAtTen(t *testing.T) {
	spread := 7.0  // sacred
	total := 33.0  // sacred
	result := ScoreJarvis(types.Candidate{}, snapshot.Context{HasJarvisIn: true, Spread: &spread, Total: &total})
	assert.Equal(t, 2, result.HitsCount)
	// baseline 4.5 + 2.5 + 2.5*0.7 = 4.5 + 2.5 + 1.75 = 8.75
	assert.InDelta(t, 8.75, result.RS, 1e-9)
	assert.LessOrEqual(t, result.RS, 10.0)
}

func TestScoreAI_FallsBackToHeuristicWhenModelUnfitted(t *testing.T) {
	ctx := snapshot.Context{ModelFitted: false, DefensiveRank: 10, Pace: 100, UsageVacuum: 0.2, RestDays: 1, RecentForm: 0.5}
	result := ScoreAI(types.Candidate{}, ctx)
	assert.Equal(t, "HEURISTIC_FALLBACK", result.Mode)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 10.0)
}

func TestScoreAI_FallsBackOnFeatureSignatureMismatch(t *testing.T) {
	ctx := snapshot.Context{ModelFitted: true, FeatureCount: 4, TrainedFeatureSignature: 5}
	result := ScoreAI(types.Candidate{}, ctx)
	assert.Equal(t, "HEURISTIC_FALLBACK", result.Mode)
}

func TestScoreAI_UsesEnsemblePathWhenFitted(t *testing.T) {
	ctx := snapshot.Context{ModelFitted: true, FeatureCount: 5, TrainedFeatureSignature: 5, DefensiveRank: 10, Pace: 100, UsageVacuum: 0.2, RestDays: 1, RecentForm: 0.5}
	result := ScoreAI(types.Candidate{}, ctx)
	assert.Empty(t, result.Mode)
}

func TestScoreResearch_SharpUnavailableForcesNoneNotInferredFromLine(t *testing.T) {
	ctx := snapshot.Context{
		SplitsFound: false,
		OddsSnapshot: market.OddsSnapshot{
			Lines: []market.BookLine{
				{EventID: "e1", Market: "TOTAL", Side: "Over", Line: 220, Book: "draftkings"},
				{EventID: "e1", Market: "TOTAL", Side: "Over", Line: 230, Book: "fanduel"},
			},
		},
	}
	c := types.Candidate{Event: types.Event{EventID: "e1"}, Market: types.MarketTotal, Side: "Over"}
	result := ScoreResearch(c, ctx)
	assert.Equal(t, string(market.SplitsNone), result.SharpStrength, "unavailable splits provider must never infer strength from line variance")
	assert.Equal(t, "NO_DATA", result.SharpStatus)
}

func TestScoreResearch_SharpSuccessPopulatesRawInputs(t *testing.T) {
	ctx := snapshot.Context{
		SplitsFound: true,
		Splits:      market.Splits{TicketPct: 0.7, MoneyPct: 0.85, SharpSide: "Under", Strength: market.SplitsStrong},
	}
	result := ScoreResearch(types.Candidate{Event: types.Event{EventID: "e1"}}, ctx)
	assert.Equal(t, "SUCCESS", result.SharpStatus)
	assert.Equal(t, string(market.SplitsStrong), result.SharpStrength)
	require.NotNil(t, result.SharpRawInputs)
	assert.Equal(t, 0.7, result.SharpRawInputs["ticket_pct"])
}

func TestEsotericWeights_SumTo1_05(t *testing.T) {
	sum := esotericWeights.numerology + esotericWeights.moon + esotericWeights.fibonacci +
		esotericWeights.vortex + esotericWeights.dailyEdge
	assert.InDelta(t, 1.05, sum, 1e-9)
}

func TestScoreEsoteric_ScoreWithinBounds(t *testing.T) {
	ctx := snapshot.Context{EventTime: "2026-01-29T20:00:00Z", SeasonLow: 200, SeasonHigh: 260}
	result := ScoreEsoteric(types.Candidate{Market: types.MarketTotal, Line: 230}, ctx)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 10.0)
	assert.Len(t, result.Reasons, 5)
}

func TestEngineScoresAtLeast8_CountsAndNames(t *testing.T) {
	count, qualified := EngineScoresAtLeast8(8.0, 7.99, 8.5, 4.0)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{"ai", "esoteric"}, qualified)
}
