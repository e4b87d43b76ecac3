package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/pickengine/internal/config"
	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

func TestConfluenceBoost_HarmonicConvergence(t *testing.T) {
	boost, level := ConfluenceBoost(8.5, 8.2, false)
	assert.Equal(t, 1.5, boost)
	assert.Equal(t, ConfluenceHarmonic, level)
}

func TestConfluenceBoost_StrongRequiresActiveSignal(t *testing.T) {
	boost, level := ConfluenceBoost(7.0, 7.5, true)
	assert.Equal(t, 0.3, boost)
	assert.Equal(t, ConfluenceStrong, level)

	boost, level = ConfluenceBoost(7.0, 7.5, false)
	assert.Equal(t, 0.1, boost)
	assert.Equal(t, ConfluenceModerate, level)
}

func TestConfluenceBoost_Divergent(t *testing.T) {
	boost, level := ConfluenceBoost(2.0, 9.0, true)
	assert.Equal(t, 0.0, boost)
	assert.Equal(t, ConfluenceDivergent, level)
}

func TestMSRFBoost_Ladder(t *testing.T) {
	assert.Equal(t, 1.0, MSRFBoost(0.97))
	assert.Equal(t, 0.5, MSRFBoost(0.90))
	assert.Equal(t, 0.25, MSRFBoost(0.75))
	assert.Equal(t, 0.0, MSRFBoost(0.50))
}

func TestJasonSimBoost_SpreadBlocksLowConfidence(t *testing.T) {
	c := types.Candidate{Market: types.MarketSpread}
	ctx := snapshot.Context{JasonSimHasWinPct: true, JasonSimWinPct: 50.0}
	assert.Equal(t, -1.5, JasonSimBoost(c, 6.0, ctx))

	ctx.JasonSimWinPct = 60.0
	assert.Equal(t, 0.0, JasonSimBoost(c, 6.0, ctx))
}

func TestJasonSimBoost_TotalHighVariancePenalty(t *testing.T) {
	c := types.Candidate{Market: types.MarketTotal}
	ctx := snapshot.Context{ProjectedVarianceHigh: true}
	assert.Equal(t, -0.5, JasonSimBoost(c, 8.0, ctx))
}

func TestJasonSimBoost_PlayerPropClampedAt1_5(t *testing.T) {
	c := types.Candidate{Market: types.MarketPlayer, Stat: "POINTS"}
	ctx := snapshot.Context{BasePropScore: 10.0, PropEnvironmentSupport: true}
	assert.Equal(t, 1.5, JasonSimBoost(c, 0, ctx))
}

func TestSERPBoost_ShadowModeForcesZero(t *testing.T) {
	ctx := snapshot.Context{SERPAvailable: true, SERPBoostRaw: 3.0}
	assert.Equal(t, 0.0, SERPBoost(ctx, true))
	assert.Equal(t, 3.0, SERPBoost(ctx, false))
}

func TestSERPBoost_ClampedAt4_3(t *testing.T) {
	ctx := snapshot.Context{SERPAvailable: true, SERPBoostRaw: 10.0}
	assert.Equal(t, 4.3, SERPBoost(ctx, false))
}

func TestCombineBoosts_RespectsTotalBoostCap(t *testing.T) {
	thresholds := config.DefaultThresholds()
	got := CombineBoosts(1.5, 1.0, 1.5, 4.3, thresholds)
	assert.Equal(t, thresholds.TotalBoostCap, got)
}
