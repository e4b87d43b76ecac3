// Package gates implements the Contradiction Gate: the post-scoring,
// pre-output filter that groups picks by unique_key and resolves conflicts,
// plus a report type summarizing what it dropped.
package gates

import (
	"strings"

	"github.com/sawpanic/pickengine/internal/types"
)

// Report summarizes one Contradiction Gate pass, with blocked counts split
// by props vs games for telemetry.
type Report struct {
	Retained                  []types.Pick
	ContradictionBlockedProps int
	ContradictionBlockedGames int
}

// Resolve groups picks by UniqueKey and, for each group containing opposite
// sides, retains the higher-final_score pick, tiebreaking on book preference.
// Picks that don't collide with anything pass through
// untouched. Input order is not significant; output order is NOT sorted
// here — that's the pipeline's final ordering-guarantee step.
func Resolve(picks []types.Pick) Report {
	groups := make(map[string][]types.Pick)
	order := make([]string, 0, len(picks))
	for _, p := range picks {
		key := p.UniqueKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}

	var report Report
	for _, key := range order {
		group := groups[key]
		winner, blockedCount := resolveGroup(group)
		report.Retained = append(report.Retained, winner)
		if blockedCount > 0 {
			if strings.HasPrefix(winner.Market, "PLAYER") {
				report.ContradictionBlockedProps += blockedCount
			} else {
				report.ContradictionBlockedGames += blockedCount
			}
		}
	}
	return report
}

// resolveGroup picks the single surviving pick within a unique_key group
// and counts every other member as blocked; a group of one yields
// blockedCount 0. It does not inspect sides: a unique_key collision between
// agreeing picks is deduped upstream by pick_id, so by the time Resolve
// runs, any group of size > 1 is treated as a contradiction.
func resolveGroup(group []types.Pick) (winner types.Pick, blockedCount int) {
	winner = group[0]
	for _, p := range group[1:] {
		if betterPick(p, winner) {
			winner = p
		}
	}
	return winner, len(group) - 1
}

// betterPick reports whether candidate beats current on final_score, then
// book preference as the tiebreak.
func betterPick(candidate, current types.Pick) bool {
	if candidate.FinalScore != current.FinalScore {
		return candidate.FinalScore > current.FinalScore
	}
	return types.BookRank(candidate.Book) < types.BookRank(current.Book)
}
