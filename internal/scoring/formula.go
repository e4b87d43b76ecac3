package scoring

import "github.com/sawpanic/pickengine/internal/config"

// Adjustments bundles every additive adjustment the final-score formula
// clamps individually. Every field here becomes its own
// persisted Pick field — the auditability requirement forbids folding any
// of these into an opaque total before persistence.
type Adjustments struct {
	ContextModifier           float64
	TotalBoosts               float64
	EnsembleAdjustment        float64 // one of {-0.5, 0, +0.5}
	LiveAdjustment            float64 // applied only when game status == LIVE
	TotalsCalibrationAdj      float64
	HookPenalty               float64 // always <= 0
	ExpertConsensusBoost      float64 // always >= 0
	PropCorrelationAdjustment float64
}

// FinalScore implements the final-score formula. Every clamp call is
// part of the formula's contract, not an optional safety net — callers must
// never pre-clamp and pass already-bounded values expecting this function to
// no-op, since double-clamping the same bound is harmless but skipping a
// clamp here is the one way this contract can be violated.
func FinalScore(weights config.EngineWeights, ai, research, esoteric, jarvis float64, adj Adjustments, live bool) float64 {
	base4 := weights.AI*ai + weights.Research*research + weights.Esoteric*esoteric + weights.Jarvis*jarvis

	liveAdj := 0.0
	if live {
		liveAdj = clamp(adj.LiveAdjustment, -0.5, 0.5)
	}

	total := base4 +
		clamp(adj.ContextModifier, -0.35, 0.35) +
		adj.TotalBoosts + // already capped by CombineBoosts at TOTAL_BOOST_CAP
		adj.EnsembleAdjustment +
		liveAdj +
		clamp(adj.TotalsCalibrationAdj, -0.75, 0.75) +
		clamp(adj.HookPenalty, -0.25, 0) +
		clamp(adj.ExpertConsensusBoost, 0, 0.35) +
		clamp(adj.PropCorrelationAdjustment, -0.20, 0.20)

	return clamp(total, 0, 10)
}

// Base4 computes the weighted base-engine blend in isolation, used by
// JasonSimBoost's spread/moneyline gate.
func Base4(weights config.EngineWeights, ai, research, esoteric, jarvis float64) float64 {
	return weights.AI*ai + weights.Research*research + weights.Esoteric*esoteric + weights.Jarvis*jarvis
}
