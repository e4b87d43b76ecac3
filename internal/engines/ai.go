package engines

import (
	"fmt"

	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

// ScoreAI consumes features assembled from ctx (defensive rank, pace, usage
// vacuum, rest, recent form). When the ensemble model is unfitted or the
// feature count doesn't match the trained signature, it falls back to a
// heuristic weighted average and records Mode = HEURISTIC_FALLBACK. Never
// raises.
func ScoreAI(_ types.Candidate, ctx snapshot.Context) AIResult {
	if !ctx.ModelFitted || ctx.FeatureCount != ctx.TrainedFeatureSignature {
		return heuristicAI(ctx)
	}
	return ensembleAI(ctx)
}

// ensembleAI is the trained-model path: a weighted blend of the five
// features, each individually normalized to a 0-10 contribution.
func ensembleAI(ctx snapshot.Context) AIResult {
	defRankScore := clamp(10-float64(ctx.DefensiveRank)/3.0, 0, 10)
	paceScore := clamp(ctx.Pace/12.0, 0, 10)
	usageScore := clamp(ctx.UsageVacuum*10, 0, 10)
	restScore := clamp(float64(ctx.RestDays)*2.0, 0, 10)
	formScore := clamp(ctx.RecentForm*10, 0, 10)

	score := 0.30*defRankScore + 0.20*paceScore + 0.20*usageScore + 0.10*restScore + 0.20*formScore
	score = clamp(score, 0, 10)

	reasons := []string{
		fmt.Sprintf("defensive_rank_component=%.2f", defRankScore),
		fmt.Sprintf("usage_vacuum_component=%.2f", usageScore),
		fmt.Sprintf("recent_form_component=%.2f", formScore),
	}
	return AIResult{Score: score, Reasons: reasons, Mode: ""}
}

// heuristicAI is the fallback path when the ensemble can't be trusted: a
// simple average of the same inputs, unweighted by a trained model.
func heuristicAI(ctx snapshot.Context) AIResult {
	defRankScore := clamp(10-float64(ctx.DefensiveRank)/3.0, 0, 10)
	paceScore := clamp(ctx.Pace/12.0, 0, 10)
	usageScore := clamp(ctx.UsageVacuum*10, 0, 10)
	restScore := clamp(float64(ctx.RestDays)*2.0, 0, 10)
	formScore := clamp(ctx.RecentForm*10, 0, 10)

	score := clamp((defRankScore+paceScore+usageScore+restScore+formScore)/5.0, 0, 10)
	return AIResult{
		Score:   score,
		Reasons: []string{"heuristic fallback: unweighted feature average"},
		Mode:    "HEURISTIC_FALLBACK",
	}
}
