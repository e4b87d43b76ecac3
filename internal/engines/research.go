package engines

import (
	"fmt"
	"math"

	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

// sharpStrengthScore maps the splits provider's strength enum to a 0-10
// contribution. Kept as a lookup, not a formula, since the enum is
// deliberately coarse.
var sharpStrengthScore = map[market.SplitsStrength]float64{
	market.SplitsNone:     0,
	market.SplitsMild:     3.5,
	market.SplitsModerate: 6.5,
	market.SplitsStrong:   9.0,
}

// ScoreResearch computes the Research engine from two sub-signals that must
// stay unconflated: sharp (splits provider) and line (cross-book odds
// variance). When the splits provider is unavailable, sharp_strength is
// forced to NONE rather than inferred from line variance — the fallback
// path is permitted to compute a score from line data alone, but it may
// never backfill sharp_* fields from it.
func ScoreResearch(c types.Candidate, ctx snapshot.Context) ResearchResult {
	lineScore, lineReason := lineVarianceScore(c, ctx.OddsSnapshot)

	if !ctx.SplitsFound {
		return ResearchResult{
			Score:          clamp(lineScore, 0, 10),
			Reasons:        []string{"sharp unavailable: NO_DATA", lineReason},
			SharpStrength:  string(market.SplitsNone),
			SharpSourceAPI: "",
			SharpStatus:    "NO_DATA",
			SharpRawInputs: nil,
			LineSourceAPI:  "odds_snapshot",
		}
	}

	sharpScore := sharpStrengthScore[ctx.Splits.Strength]
	blended := clamp(0.6*sharpScore+0.4*lineScore, 0, 10)

	return ResearchResult{
		Score: blended,
		Reasons: []string{
			fmt.Sprintf("sharp %s on %s", ctx.Splits.Strength, ctx.Splits.SharpSide),
			lineReason,
		},
		SharpStrength:  string(ctx.Splits.Strength),
		SharpSourceAPI: "splits_provider",
		SharpStatus:    "SUCCESS",
		SharpRawInputs: map[string]interface{}{
			"ticket_pct": ctx.Splits.TicketPct,
			"money_pct":  ctx.Splits.MoneyPct,
			"sharp_side": ctx.Splits.SharpSide,
		},
		LineSourceAPI: "odds_snapshot",
	}
}

// lineVarianceScore derives a 0-10 score from the spread of lines offered
// across books for this candidate's key. Higher variance reads as sharper
// disagreement among books, which this pipeline treats as signal.
func lineVarianceScore(c types.Candidate, snap market.OddsSnapshot) (float64, string) {
	var lines []float64
	for _, bl := range snap.Lines {
		if bl.EventID == c.Event.EventID && bl.Market == c.MarketLabel() && bl.Side == c.Side {
			lines = append(lines, bl.Line)
		}
	}
	if len(lines) < 2 {
		return 0, "line variance: insufficient book coverage"
	}
	min, max := lines[0], lines[0]
	for _, l := range lines {
		min = math.Min(min, l)
		max = math.Max(max, l)
	}
	spread := max - min
	score := clamp(spread*10, 0, 10)
	return score, fmt.Sprintf("line variance %.2f across %d books", spread, len(lines))
}
