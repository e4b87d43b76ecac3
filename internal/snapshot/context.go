// Package snapshot holds the Context type: the request-scoped, pre-fetched
// view of the world handed alongside a Candidate to every scoring engine.
// It is its own package (rather than living in types or market) because it
// depends on both without either depending back on it, avoiding an import
// cycle between types and market.
package snapshot

import (
	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/types"
)

// Context is the request-scoped snapshot passed alongside a Candidate to
// every engine. It is assembled per candidate by the caller's
// ContextBuilder and never mutated by an engine; no engine reads another
// engine's output, so Context never grows an engine-result field.
type Context struct {
	// AI features.
	DefensiveRank int
	Pace          float64
	UsageVacuum   float64
	RestDays      int
	RecentForm    float64

	// Ensemble model fitness. When false or FeatureCount mismatches
	// TrainedFeatureSignature, the AI engine falls back to a heuristic.
	ModelFitted             bool
	FeatureCount            int
	TrainedFeatureSignature int

	// Research: sharp splits and cross-book odds variance are independent
	// sub-signals and must never be conflated.
	Splits       market.Splits
	SplitsFound  bool
	OddsSnapshot market.OddsSnapshot

	// Esoteric inputs. SeasonHigh/SeasonLow bound the Fibonacci retracement;
	// EventTime feeds moon phase and vortex/cycle alignment.
	SeasonHigh float64
	SeasonLow  float64
	EventTime  string // RFC3339, the event's UTC start_time

	// Jarvis inputs: numeric line/total presence drives the seven-field
	// contract.
	Spread      *float64
	Total       *float64
	HasJarvisIn bool

	// Game/live state.
	GameStatus types.GameStatus

	// Additive-boost inputs.
	JasonSimWinPct         float64
	JasonSimHasWinPct      bool
	ProjectedVarianceHigh  bool
	BasePropScore          float64
	PropEnvironmentSupport bool

	// SERP / expert consensus.
	SERPBoostRaw         float64
	SERPAvailable        bool
	ExpertConsensusRaw   float64
	ExpertConsensusFound bool

	// Prop correlation (player-prop only; e.g. teammate usage correlation).
	PropCorrelationRaw float64
}
