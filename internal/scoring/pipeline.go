package scoring

import (
	"time"

	"github.com/sawpanic/pickengine/internal/config"
	"github.com/sawpanic/pickengine/internal/engines"
	"github.com/sawpanic/pickengine/internal/etclock"
	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

// Options bundles the tunables ScoreCandidate needs beyond the candidate and
// context: threshold constants and the SERP shadow-mode flag.
type Options struct {
	Thresholds     config.ThresholdsConfig
	SERPShadowMode bool

	// Inputs whose sourcing varies by deployment; the pipeline takes them
	// as precomputed scalars rather than reaching back into ctx itself,
	// keeping ScoreCandidate's signature the single seam callers use to
	// inject book-agreement ratios, ensemble adjustments, etc.
	BookAgreementRatio float64
	EnsembleAdjustment float64
	LiveAdjustment     float64
	TotalsCalibration  float64
	HookPenalty        float64
	ExpertConsensusRaw float64
	PropCorrelation    float64

	// ContextModifier is the caller-supplied context_modifier input.
	ContextModifier float64
}

// ScoreCandidate runs a Candidate through the four engines and every
// additive adjustment, producing a fully-populated Pick. It never raises: every engine is
// pure and every adjustment is clamped, so the only way a candidate produces
// no Pick is by failing a later pipeline stage (threshold filter, hidden
// tier, contradiction gate), not this function.
func ScoreCandidate(c types.Candidate, ctx snapshot.Context, opts Options) types.Pick {
	ai := engines.ScoreAI(c, ctx)
	research := engines.ScoreResearch(c, ctx)
	esoteric := engines.ScoreEsoteric(c, ctx)
	jarvis := engines.ScoreJarvis(c, ctx)

	base4 := Base4(opts.Thresholds.EngineWeights, ai.Score, research.Score, esoteric.Score, jarvis.RS)

	hasActiveSignal := jarvis.Active || research.SharpStatus == "SUCCESS"
	confluence, _ := ConfluenceBoost(research.Score, esoteric.Score, hasActiveSignal)
	jasonSim := JasonSimBoost(c, base4, ctx)
	if !hasActiveSignal && jasonSim != 0 {
		hasActiveSignal = true
		confluence, _ = ConfluenceBoost(research.Score, esoteric.Score, hasActiveSignal)
	}
	msrf := MSRFBoost(opts.BookAgreementRatio)
	serp := SERPBoost(ctx, opts.SERPShadowMode)
	totalBoosts := CombineBoosts(confluence, msrf, jasonSim, serp, opts.Thresholds)

	// Market-scoped adjustments are zeroed for markets they don't apply to:
	// totals calibration is totals-only, prop correlation is props-only.
	// The zero is recorded on the Pick, so the audit trail
	// shows "not applicable" rather than a raw input that never entered the
	// formula.
	totalsCal := opts.TotalsCalibration
	if c.Market != types.MarketTotal {
		totalsCal = 0
	}
	propCorr := opts.PropCorrelation
	if !c.Market.IsPlayerProp() {
		propCorr = 0
	}
	live := ctx.GameStatus == types.GameLive
	liveAdj := opts.LiveAdjustment
	if !live {
		liveAdj = 0
	}

	adj := Adjustments{
		ContextModifier:           opts.ContextModifier,
		TotalBoosts:               totalBoosts,
		EnsembleAdjustment:        opts.EnsembleAdjustment,
		LiveAdjustment:            liveAdj,
		TotalsCalibrationAdj:      totalsCal,
		HookPenalty:               opts.HookPenalty,
		ExpertConsensusBoost:      opts.ExpertConsensusRaw,
		PropCorrelationAdjustment: propCorr,
	}
	finalScore := FinalScore(opts.Thresholds.EngineWeights, ai.Score, research.Score, esoteric.Score, jarvis.RS, adj, live)

	titanium := EvaluateTitanium(ai.Score, research.Score, esoteric.Score, jarvis.RS, finalScore)
	tier := AssignTier(opts.Thresholds.TierThresholds, opts.Thresholds.GoldStarGates, finalScore, titanium, ai.Score, research.Score, esoteric.Score, jarvis.RS)

	pickID := types.FingerprintID(c.Event.Sport, c.Event.EventID, c.MarketLabel(), c.Side, c.Line, c.PlayerID)
	etDate := etclock.Date(c.Event.StartTime)

	return types.Pick{
		PickID:       pickID,
		Sport:        c.Event.Sport,
		EventID:      c.Event.EventID,
		Market:       c.MarketLabel(),
		Side:         c.Side,
		Line:         c.Line,
		PlayerID:     c.PlayerID,
		PlayerName:   c.PlayerName,
		Book:         c.Book,
		OddsAmerican: c.OddsAmerican,
		HomeTeam:     c.Event.Home,
		AwayTeam:     c.Event.Away,

		AIScore:         ai.Score,
		ResearchScore:   research.Score,
		EsotericScore:   esoteric.Score,
		JarvisScore:     jarvis.RS,
		ContextModifier: clamp(adj.ContextModifier, -0.35, 0.35),
		FinalScore:      finalScore,
		Tier:            tier,

		ConfluenceBoost:           confluence,
		MSRFBoost:                 msrf,
		JasonSimBoost:             jasonSim,
		SERPBoost:                 serp,
		EnsembleAdjustment:        adj.EnsembleAdjustment,
		LiveAdjustment:            clamp(adj.LiveAdjustment, -0.5, 0.5),
		TotalsCalibrationAdj:      clamp(adj.TotalsCalibrationAdj, -0.75, 0.75),
		HookPenalty:               clamp(adj.HookPenalty, -0.25, 0),
		ExpertConsensusBoost:      clamp(adj.ExpertConsensusBoost, 0, 0.35),
		PropCorrelationAdjustment: clamp(adj.PropCorrelationAdjustment, -0.20, 0.20),

		AIReasons:       ai.Reasons,
		ResearchReasons: research.Reasons,
		EsotericReasons: esoteric.Reasons,
		JarvisReasons:   jarvis.Reasons,

		AIMode: ai.Mode,

		SharpStrength:  research.SharpStrength,
		SharpSourceAPI: research.SharpSourceAPI,
		SharpStatus:    research.SharpStatus,
		SharpRawInputs: research.SharpRawInputs,
		LineSourceAPI:  research.LineSourceAPI,

		JarvisRS:          jarvis.RS,
		JarvisActive:      jarvis.Active,
		JarvisHitsCount:   jarvis.HitsCount,
		JarvisTriggersHit: jarvis.TriggersHit,
		JarvisFailReasons: jarvis.FailReasons,
		JarvisInputsUsed:  jarvis.InputsUsed,

		TitaniumTriggered:        titanium.Triggered,
		TitaniumCount:            titanium.Count,
		TitaniumQualifiedEngines: titanium.QualifiedEngines,

		CreatedAt:        time.Now().UTC(),
		EventStartTimeET: etclock.DisplayString(c.Event.StartTime),
		ETDate:           etDate,

		Result: nil,
	}
}
