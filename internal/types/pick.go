package types

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

// Pick is a scored, persisted recommendation. Identity is the deterministic
// 12-character fingerprint computed by FingerprintID.
//
// Required fields are enforced at write time by pickstore's schema
// validator; optional fields are explicitly nil-able pointers so a partially
// graded record can still round-trip through JSON without fabricating zeros.
type Pick struct {
	// Identity
	PickID       string  `json:"pick_id"`
	Sport        Sport   `json:"sport"`
	EventID      string  `json:"event_id"`
	Market       string  `json:"market"` // wire label, e.g. "PLAYER_POINTS"
	Side         string  `json:"side"`
	Line         float64 `json:"line"`
	PlayerID     string  `json:"player_id,omitempty"`
	PlayerName   string  `json:"player_name,omitempty"`
	Book         string  `json:"book"`
	OddsAmerican *int    `json:"odds_american"`

	// HomeTeam/AwayTeam are a value copy of the scoring Event's team names,
	// not a pointer back to it. The Auto-Grader
	// needs them to resolve a spread/moneyline Side (a team name) against
	// ResultsSource.FetchFinalScore's home/away score pair, long after the
	// request-scoped Event itself has gone out of scope.
	HomeTeam string `json:"home_team,omitempty"`
	AwayTeam string `json:"away_team,omitempty"`

	// Scoring
	AIScore         float64 `json:"ai_score"`
	ResearchScore   float64 `json:"research_score"`
	EsotericScore   float64 `json:"esoteric_score"`
	JarvisScore     float64 `json:"jarvis_score"`
	ContextModifier float64 `json:"context_modifier"`
	FinalScore      float64 `json:"final_score"`
	Tier            Tier    `json:"tier"`

	// Additive adjustments, each persisted on its own field for audit
	ConfluenceBoost           float64 `json:"confluence_boost"`
	MSRFBoost                 float64 `json:"msrf_boost"`
	JasonSimBoost             float64 `json:"jason_sim_boost"`
	SERPBoost                 float64 `json:"serp_boost"`
	EnsembleAdjustment        float64 `json:"ensemble_adjustment"`
	LiveAdjustment            float64 `json:"live_adjustment"`
	TotalsCalibrationAdj      float64 `json:"totals_calibration_adjustment"`
	HookPenalty               float64 `json:"hook_penalty"`
	ExpertConsensusBoost      float64 `json:"expert_consensus_boost"`
	PropCorrelationAdjustment float64 `json:"prop_correlation_adjustment"`

	// Reasoning
	AIReasons       []string `json:"ai_reasons"`
	ResearchReasons []string `json:"research_reasons"`
	EsotericReasons []string `json:"esoteric_reasons"`
	JarvisReasons   []string `json:"jarvis_reasons"`

	// Engine diagnostics
	AIMode string `json:"ai_mode,omitempty"` // "" or "HEURISTIC_FALLBACK"

	SharpStrength  string                 `json:"sharp_strength,omitempty"`
	SharpSourceAPI string                 `json:"sharp_source_api,omitempty"`
	SharpStatus    string                 `json:"sharp_status,omitempty"`
	SharpRawInputs map[string]interface{} `json:"sharp_raw_inputs,omitempty"`
	LineSourceAPI  string                 `json:"line_source_api,omitempty"`

	JarvisRS          float64            `json:"jarvis_rs"`
	JarvisActive      bool               `json:"jarvis_active"`
	JarvisHitsCount   int                `json:"jarvis_hits_count"`
	JarvisTriggersHit []string           `json:"jarvis_triggers_hit"`
	JarvisFailReasons []string           `json:"jarvis_fail_reasons"`
	JarvisInputsUsed  map[string]float64 `json:"jarvis_inputs_used"`

	// Titanium transparency
	TitaniumTriggered        bool     `json:"titanium_triggered"`
	TitaniumCount            int      `json:"titanium_count"`
	TitaniumQualifiedEngines []string `json:"titanium_qualified_engines"`

	// Timestamps
	CreatedAt        time.Time `json:"created_at"`
	EventStartTimeET string    `json:"event_start_time_et"`
	ETDate           string    `json:"et_date"`

	// Grading (populated after game completion)
	Result       *Result    `json:"result"`
	ActualValue  *float64   `json:"actual_value,omitempty"`
	GradedAt     *time.Time `json:"graded_at,omitempty"`
	BeatCLV      *bool      `json:"beat_clv,omitempty"`
	ProcessGrade *string    `json:"process_grade,omitempty"`
}

// FingerprintID computes the 12-character idempotency key:
// SHA1(sport|event_id|market|UPPER(side)|round(line,2)|player_id)[0:12].
func FingerprintID(sport Sport, eventID, market, side string, line float64, playerID string) string {
	input := strings.Join([]string{
		string(sport),
		eventID,
		market,
		strings.ToUpper(side),
		fmt.Sprintf("%.2f", line),
		playerID,
	}, "|")
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:12]
}

// UniqueKey is the contradiction-gate grouping key:
// sport|et_date|event_id|market|prop_type|subject|abs(line).
func (p Pick) UniqueKey() string {
	subject := "Game"
	propType := ""
	if strings.HasPrefix(p.Market, "PLAYER_") {
		subject = p.PlayerID
		propType = strings.TrimPrefix(p.Market, "PLAYER_")
	}
	return strings.Join([]string{
		string(p.Sport),
		p.ETDate,
		p.EventID,
		p.Market,
		propType,
		subject,
		fmt.Sprintf("%.2f", math.Abs(p.Line)),
	}, "|")
}

// IsOppositeSide reports whether p and other are contradictory picks sharing
// a unique key: Over/Under markets disagree on Side, spreads
// disagree on signed Line, moneylines disagree on Side (team).
func (p Pick) IsOppositeSide(other Pick) bool {
	if p.UniqueKey() != other.UniqueKey() {
		return false
	}
	if p.Market == string(MarketSpread) {
		return p.Line != other.Line
	}
	return !strings.EqualFold(p.Side, other.Side)
}
