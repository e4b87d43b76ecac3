// Package engines implements the four independent base-scoring engines:
// AI, Research, Esoteric, Jarvis. Each is a pure function
// (Candidate, Context) -> (score, reasons, diagnostic); engines never read
// one another's output and never raise, falling back to a documented
// default and recording why when inputs are missing.
package engines

import "github.com/sawpanic/pickengine/internal/types"

// clamp bounds v to [lo, hi]. Every engine score and every additive
// adjustment in the final-score formula is a clamp contract; this is the
// one place that implements it.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AIResult is the AI engine's diagnostic output.
type AIResult struct {
	Score   float64
	Reasons []string
	Mode    string // "" or "HEURISTIC_FALLBACK"
}

// ResearchResult is the Research engine's diagnostic output. Sharp and line
// sub-signals are kept on separate fields deliberately.
type ResearchResult struct {
	Score   float64
	Reasons []string

	SharpStrength  string // NONE|MILD|MODERATE|STRONG
	SharpSourceAPI string
	SharpStatus    string // SUCCESS|NO_DATA|ERROR|DISABLED
	SharpRawInputs map[string]interface{}

	LineSourceAPI string
}

// EsotericResult is the Esoteric engine's diagnostic output.
type EsotericResult struct {
	Score   float64
	Reasons []string
}

// JarvisResult carries the seven diagnostic fields that are always
// emitted, even when zero triggers fire.
type JarvisResult struct {
	RS          float64
	Active      bool
	HitsCount   int
	TriggersHit []string
	Reasons     []string
	FailReasons []string
	InputsUsed  map[string]float64
}

// EngineScoresAtLeast8 reports which of the four base engines scored >= 8.0,
// the single function the Titanium three-of-four rule must
// route through. It lives here, next to the engines it inspects, so scoring
// never reimplements the threshold check.
func EngineScoresAtLeast8(ai, research, esoteric, jarvis float64) (count int, qualified []string) {
	scores := []struct {
		name  string
		score float64
	}{
		{"ai", ai},
		{"research", research},
		{"esoteric", esoteric},
		{"jarvis", jarvis},
	}
	for _, s := range scores {
		if s.score >= 8.0 {
			count++
			qualified = append(qualified, s.name)
		}
	}
	return count, qualified
}

// isPlayerProp lets engines branch on player-prop vs game candidates
// without importing types directly in every file.
func isPlayerProp(c types.Candidate) bool { return c.Market.IsPlayerProp() }
