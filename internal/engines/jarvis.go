package engines

import (
	"fmt"
	"math"

	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

// jarvisBaseline is the starting score before any gematria trigger fires.
const jarvisBaseline = 4.5

// jarvisTriggerContribution is the raw contribution of one fired trigger,
// before stack decay is applied.
const jarvisTriggerContribution = 2.5

// jarvisDecayFactor is applied per additional stacked trigger.
const jarvisDecayFactor = 0.70

// sacredNumbers is the gematria trigger set: numbers treated as
// numerologically significant for line/total/digit-sum matching.
var sacredNumbers = map[int]bool{
	3: true, 7: true, 9: true, 11: true, 13: true, 22: true, 33: true, 72: true,
}

// ScoreJarvis is additive-from-baseline scoring over sacred-number gematria
// triggers on the line, the total, and their digit sums. All seven
// diagnostic fields are emitted unconditionally, even when no
// trigger fires and jarvis_rs falls back to the untouched baseline.
func ScoreJarvis(c types.Candidate, ctx snapshot.Context) JarvisResult {
	if !ctx.HasJarvisIn {
		return JarvisResult{
			RS:          jarvisBaseline,
			Active:      false,
			HitsCount:   0,
			TriggersHit: nil,
			Reasons:     []string{fmt.Sprintf("baseline %.1f, no numeric inputs present", jarvisBaseline)},
			FailReasons: []string{"no spread/total input available"},
			InputsUsed:  map[string]float64{},
		}
	}

	inputsUsed := map[string]float64{}
	var triggers []string
	var failReasons []string

	checkValue := func(name string, v float64) {
		inputsUsed[name] = v
		n := int(math.Round(v))
		if sacredNumbers[n] {
			triggers = append(triggers, fmt.Sprintf("%s=%d", name, n))
		} else if sacredNumbers[digitSum(n)] {
			triggers = append(triggers, fmt.Sprintf("%s_digit_sum=%d", name, digitSum(n)))
		} else {
			failReasons = append(failReasons, fmt.Sprintf("%s=%d: no sacred number match", name, n))
		}
	}

	if ctx.Spread != nil {
		checkValue("line", *ctx.Spread)
	} else {
		checkValue("line", c.Line)
	}
	if ctx.Total != nil {
		checkValue("total", *ctx.Total)
	}

	contribution := 0.0
	decay := 1.0
	for range triggers {
		contribution += jarvisTriggerContribution * decay
		decay        *= jarvisDecayFactor
	}

	rs := math.Min(10, jarvisBaseline+contribution)

	reasons := []string{fmt.Sprintf("baseline %.1f", jarvisBaseline)}
	for _, t := range triggers {
		reasons = append(reasons, "trigger: "+t)
	}
	if len(failReasons) == 0 {
		failReasons = nil
	}

	return JarvisResult{
		RS:          rs,
		Active:      len(triggers) > 0,
		HitsCount:   len(triggers),
		TriggersHit: triggers,
		Reasons:     reasons,
		FailReasons: failReasons,
		InputsUsed:  inputsUsed,
	}
}

func digitSum(n int) int {
	n = int(math.Abs(float64(n)))
	sum := 0
	for n > 0 {
		sum += n % 10
		n   /= 10
	}
	return sum
}
