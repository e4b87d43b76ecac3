package scoring

import (
	"strings"

	"github.com/sawpanic/pickengine/internal/config"
	"github.com/sawpanic/pickengine/internal/engines"
	"github.com/sawpanic/pickengine/internal/types"
)

// TitaniumResult carries the transparency fields emitted on every pick.
type TitaniumResult struct {
	Triggered        bool
	Count            int
	QualifiedEngines []string
}

// EvaluateTitanium is the single, strict implementation of the three-of-four
// rule. It delegates the
// >=8.0 counting to engines.EngineScoresAtLeast8 so the threshold check
// itself has exactly one home too.
func EvaluateTitanium(ai, research, esoteric, jarvis, finalScore float64) TitaniumResult {
	count, qualified := engines.EngineScoresAtLeast8(ai, research, esoteric, jarvis)
	return TitaniumResult{
		Triggered:        count >= 3 && finalScore >= 8.0,
		Count:            count,
		QualifiedEngines: qualified,
	}
}

// GoldStarGatesPass checks the four hard per-engine minimums.
func GoldStarGatesPass(gates config.GoldStarGates, ai, research, esoteric, jarvis float64) bool {
	return ai >= gates.AIMin && research >= gates.ResearchMin &&
		jarvis >= gates.JarvisMin && esoteric >= gates.EsotericMin
}

// AssignTier implements the internal tier ladder. Tiering happens before
// the hidden-tier filter and output-threshold filter; both are separate
// passes applied by the pipeline, not folded in here, so each stage stays
// independently testable.
func AssignTier(thresholds config.TierThresholds, gates config.GoldStarGates, finalScore float64, titanium TitaniumResult, ai, research, esoteric, jarvis float64) types.Tier {
	if titanium.Triggered && finalScore >= thresholds.TitaniumSmash {
		return types.TierTitaniumSmash
	}
	if finalScore >= thresholds.GoldStar {
		if GoldStarGatesPass(gates, ai, research, esoteric, jarvis) {
			return types.TierGoldStar
		}
		return types.TierEdgeLean
	}
	if finalScore >= thresholds.EdgeLean {
		return types.TierEdgeLean
	}
	if finalScore >= thresholds.Monitor {
		return types.TierMonitor
	}
	return types.TierPass
}

// PassesOutputThreshold applies the final output minimums: games
// need final_score >= 7.0, player props need >= 6.5. This runs independently
// of tier assignment — a tier that is internally "valid" (EDGE_LEAN) can
// still fail this gate and never be returned.
func PassesOutputThreshold(thresholds config.OutputMinimums, c types.Candidate, finalScore float64) bool {
	if c.Market.IsPlayerProp() {
		return finalScore >= thresholds.PlayerProps
	}
	return finalScore >= thresholds.Games
}

// PassesOutputThresholdMarket is PassesOutputThreshold for call sites that
// only have a Pick's wire-format market label (e.g. "PLAYER_POINTS"), not
// the original Candidate — the post-scoring stages (dedup, contradiction
// gate) operate on Pick, not Candidate.
func PassesOutputThresholdMarket(thresholds config.OutputMinimums, market string, finalScore float64) bool {
	if strings.HasPrefix(market, string(types.MarketPlayer)+"_") {
		return finalScore >= thresholds.PlayerProps
	}
	return finalScore >= thresholds.Games
}
