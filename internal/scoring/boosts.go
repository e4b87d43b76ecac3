// Package scoring assembles the four engine outputs into a final Pick:
// the additive boosts, the final-score formula, and tier assignment with
// hard gates. The shape throughout is a weighted base plus capped additive
// boosts, clamped to a bounded range.
package scoring

import (
	"math"

	"github.com/sawpanic/pickengine/internal/config"
	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ConfluenceLevel is the alignment tier between research and esoteric.
type ConfluenceLevel string

const (
	ConfluenceHarmonic  ConfluenceLevel = "HARMONIC_CONVERGENCE"
	ConfluenceStrong    ConfluenceLevel = "STRONG"
	ConfluenceModerate  ConfluenceLevel = "MODERATE"
	ConfluenceDivergent ConfluenceLevel = "DIVERGENT"
)

// ConfluenceBoost computes the alignment-based additive boost from research
// and esoteric scores, plus whatever active-signal gate applies.
// hasActiveSignal is true when jarvis_active, or research.sharp.status ==
// SUCCESS, or jason_sim_boost != 0.
func ConfluenceBoost(research, esoteric float64, hasActiveSignal bool) (float64, ConfluenceLevel) {
	alignment := 1 - math.Abs(research-esoteric)/10

	if research >= 8.0 && esoteric >= 8.0 {
		return 1.5, ConfluenceHarmonic
	}
	if alignment >= 0.80 {
		if hasActiveSignal {
			return 0.3, ConfluenceStrong
		}
		return 0.1, ConfluenceModerate
	}
	return 0, ConfluenceDivergent
}

// MSRFBoost is the market-structure resonance factor: a discrete boost
// driven by cross-book line agreement. Deliberately a lookup over a small
// fixed ladder, not a continuous formula.
func MSRFBoost(bookAgreementRatio float64) float64 {
	switch {
	case bookAgreementRatio >= 0.95:
		return 1.0
	case bookAgreementRatio >= 0.85:
		return 0.5
	case bookAgreementRatio >= 0.70:
		return 0.25
	default:
		return 0
	}
}

// JasonSimBoost is the post-pick confluence layer: signed,
// capped at +-1.5, and capable of blocking low-confidence picks outright by
// returning a large negative value for spreads/moneylines under the 52%/7.2
// thresholds.
func JasonSimBoost(c types.Candidate, base4 float64, ctx snapshot.Context) float64 {
	switch {
	case c.Market == types.MarketSpread || c.Market == types.MarketMoneyline:
		if ctx.JasonSimHasWinPct && ctx.JasonSimWinPct <= 52.0 && base4 < 7.2 {
			return -1.5
		}
		return 0
	case c.Market == types.MarketTotal:
		if ctx.ProjectedVarianceHigh {
			return -0.5
		}
		return 0
	case c.Market.IsPlayerProp():
		if ctx.BasePropScore >= 6.8 && ctx.PropEnvironmentSupport {
			return clamp(ctx.BasePropScore-6.8, 0, 1.5)
		}
		return 0
	default:
		return 0
	}
}

// SERPBoost is the optional per-call external-intelligence boost.
// Individually capped at +4.3; the TOTAL_BOOST_CAP clamp in CombineBoosts
// is the real backstop against inflation. shadowMode forces this to 0
// before summing.
func SERPBoost(ctx snapshot.Context, shadowMode bool) float64 {
	if shadowMode || !ctx.SERPAvailable {
		return 0
	}
	return clamp(ctx.SERPBoostRaw, 0, 4.3)
}

// CombineBoosts sums the four additive boosts and applies TOTAL_BOOST_CAP,
// the primary defense against score inflation.
func CombineBoosts(confluence, msrf, jasonSim, serp float64, thresholds config.ThresholdsConfig) float64 {
	raw := confluence + msrf + jasonSim + serp
	return math.Min(raw, thresholds.TotalBoostCap)
}
