package engines

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

// esotericWeights sum to 1.05 exactly, a historical quirk enforced by
// assertion. Asserted once at package init rather than per-call, since the
// weights are constants.
var esotericWeights = struct {
	numerology float64
	moon       float64
	fibonacci  float64
	vortex     float64
	dailyEdge  float64
}{numerology: 0.25, moon: 0.20, fibonacci: 0.25, vortex: 0.20, dailyEdge: 0.15}

func init() {
	sum := esotericWeights.numerology + esotericWeights.moon + esotericWeights.fibonacci +
		esotericWeights.vortex + esotericWeights.dailyEdge
	if math.Abs(sum-1.05) > 1e-9 {
		panic(fmt.Sprintf("esoteric composite weights must sum to 1.05, got %.4f", sum))
	}
}

// magnitude picks the input used across the esoteric signals. Priority is
// prop_line -> spread -> total/10 for player props, reversed for games.
func magnitude(c types.Candidate, ctx snapshot.Context) float64 {
	if isPlayerProp(c) {
		if c.Line != 0 {
			return c.Line
		}
		if ctx.Spread != nil {
			return *ctx.Spread
		}
		if ctx.Total != nil {
			return *ctx.Total / 10
		}
		return 0
	}
	if ctx.Total != nil {
		return *ctx.Total / 10
	}
	if ctx.Spread != nil {
		return *ctx.Spread
	}
	return c.Line
}

// ScoreEsoteric composites five deterministic non-market signals: numerology,
// moon phase, Fibonacci retracement of the season range, vortex pattern, and
// daily edge. All are pure functions of the candidate and context; no
// network or clock access beyond the event's own timestamp.
func ScoreEsoteric(c types.Candidate, ctx snapshot.Context) EsotericResult {
	mag := magnitude(c, ctx)

	numerologyScore, numerologyReason := numerologySignal(mag)
	moonScore, moonReason := moonPhaseSignal(ctx.EventTime)
	fibScore, fibReason := fibonacciSignal(mag, ctx.SeasonLow, ctx.SeasonHigh)
	vortexScore, vortexReason := vortexSignal(mag)
	dailyScore, dailyReason := dailyEdgeSignal(ctx.EventTime)

	composite := esotericWeights.numerology*numerologyScore +
		esotericWeights.moon*moonScore +
		esotericWeights.fibonacci*fibScore +
		esotericWeights.vortex*vortexScore +
		esotericWeights.dailyEdge*dailyScore

	return EsotericResult{
		Score: clamp(composite, 0, 10),
		Reasons: []string{
			numerologyReason, moonReason, fibReason, vortexReason, dailyReason,
		},
	}
}

// numerologySignal reduces the magnitude to its digital root (1-9) and maps
// it against the classical "master numbers" 3, 7, 9 that score highest.
func numerologySignal(mag float64) (float64, string) {
	root := digitalRoot(mag)
	switch root {
	case 3, 7, 9:
		return 9.0, fmt.Sprintf("numerology: digital root %d (master number)", root)
	case 6:
		return 6.5, fmt.Sprintf("numerology: digital root %d", root)
	default:
		return 4.0, fmt.Sprintf("numerology: digital root %d", root)
	}
}

func digitalRoot(v float64) int {
	n := int(math.Round(math.Abs(v) * 100))
	if n == 0 {
		return 0
	}
	for n >= 10 {
		sum := 0
		for n > 0 {
			sum += n % 10
			n   /= 10
		}
		n = sum
	}
	return n
}

// referenceNewMoon is a known new-moon instant used to phase the synodic
// cycle; any reference instant on the cycle works since only the phase
// fraction matters.
var referenceNewMoon = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

const synodicMonthHours = 29.530588853 * 24

// moonPhaseSignal scores proximity to full moon (phase fraction 0.5) highest,
// new moon lowest, following the lunar-phase-alignment heuristic.
func moonPhaseSignal(eventTimeRFC3339 string) (float64, string) {
	t, err := time.Parse(time.RFC3339, eventTimeRFC3339)
	if err != nil {
		return 5.0, "moon phase: event time unavailable, neutral score"
	}
	hoursSince := t.Sub(referenceNewMoon).Hours()
	phase := math.Mod(hoursSince, synodicMonthHours) / synodicMonthHours
	if phase < 0 {
		phase += 1
	}
	distFromFull := math.Abs(phase - 0.5)
	score := clamp(10*(1-distFromFull*2), 0, 10)
	return score, fmt.Sprintf("moon phase fraction %.2f", phase)
}

// fibonacciSignal scores how close the magnitude's retracement within
// [seasonLow, seasonHigh] sits to a classical Fibonacci ratio (0.236, 0.382,
// 0.5, 0.618, 0.786).
func fibonacciSignal(mag, low, high float64) (float64, string) {
	if high <= low {
		return 5.0, "fibonacci: season range unavailable, neutral score"
	}
	retracement := clamp((mag-low)/(high-low), 0, 1)
	ratios := []float64{0.236, 0.382, 0.5, 0.618, 0.786}
	best := math.Inf(1)
	for _, r := range ratios {
		d := math.Abs(retracement - r)
		if d < best {
			best = d
		}
	}
	score := clamp(10*(1-best*4), 0, 10)
	return score, fmt.Sprintf("fibonacci retracement %.3f", retracement)
}

// vortexPattern is the 1-2-4-8-7-5 doubling sequence of Rodin/vortex math.
var vortexPattern = map[int]bool{1: true, 2: true, 4: true, 8: true, 7: true, 5: true}

// vortexSignal scores whether the magnitude's digital root falls on the
// vortex doubling sequence versus the 3-6-9 axis.
func vortexSignal(mag float64) (float64, string) {
	root := digitalRoot(mag)
	if vortexPattern[root] {
		return 7.5, fmt.Sprintf("vortex: digital root %d on doubling sequence", root)
	}
	return 4.5, fmt.Sprintf("vortex: digital root %d off doubling sequence", root)
}

// dailyEdgeSignal scores the event's ET-independent day-of-year cycle
// position; a lightweight deterministic tiebreaker among the five signals.
func dailyEdgeSignal(eventTimeRFC3339 string) (float64, string) {
	t, err := time.Parse(time.RFC3339, eventTimeRFC3339)
	if err != nil {
		return 5.0, "daily edge: event time unavailable, neutral score"
	}
	doy := t.YearDay()
	score := clamp(float64((doy*7)%11), 0, 10)
	return score, fmt.Sprintf("daily edge cycle position day %d", doy)
}
