// Package slate implements the Slate Builder: time-gated, deduplicated
// ingestion of today's events, props, and odds. The three upstream fetches
// run as parallel goroutines collected over a shared outcome channel, each
// under its own per-call timeout, with a batch-level wall-clock budget
// layered on top.
package slate

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/pickengine/internal/etclock"
	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/types"
)

// DefaultPerCallTimeout and DefaultBatchDeadline bound upstream calls: 3s
// per call, 15s wall-clock per request.
const (
	DefaultPerCallTimeout = 3 * time.Second
	DefaultBatchDeadline = 15 * time.Second
)

// Telemetry carries the gate counts the Slate Builder emits per build.
type Telemetry struct {
	EventsBefore       int
	EventsAfter        int
	DroppedOutOfWindow int
	DroppedMissingTime int
	TimedOutComponents []string
}

// Result is BuildSlate's output: the deduplicated, today-only candidate set
// plus telemetry and a note of which upstream components failed or timed
// out.
type Result struct {
	Candidates []types.Candidate
	Telemetry  Telemetry
	Failed     []string
}

// Builder constructs slates from an upstream MarketDataSource.
type Builder struct {
	Source         market.MarketDataSource
	PerCallTimeout time.Duration
	BatchDeadline  time.Duration
}

// NewBuilder returns a Builder with default timeouts.
func NewBuilder(source market.MarketDataSource) *Builder {
	return &Builder{
		Source:         source,
		PerCallTimeout: DefaultPerCallTimeout,
		BatchDeadline:  DefaultBatchDeadline,
	}
}

// fetchOutcome is one upstream call's result, collected over a shared
// channel so partial failures never block the batch.
type fetchOutcome struct {
	name   string
	events []types.Event
	props  []types.Candidate
	odds   market.OddsSnapshot
	err    error
}

// BuildSlate produces the de-duplicated, today-only Candidate list. Total
// failure of all three upstream calls yields an empty slate, not an error;
// partial failure yields a slate built from whatever arrived before its
// component's timeout.
func (b *Builder) BuildSlate(ctx context.Context, sport types.Sport, etDate string) Result {
	batchCtx, cancel := context.WithTimeout(ctx, b.BatchDeadline)
	defer cancel()

	outcomes := make(chan fetchOutcome, 3)

	go func() {
		callCtx, callCancel := context.WithTimeout(batchCtx, b.PerCallTimeout)
		defer callCancel()
		events, err := b.Source.FetchEvents(callCtx, sport)
		outcomes <- fetchOutcome{name: "events", events: events, err: err}
	}()

	go func() {
		callCtx, callCancel := context.WithTimeout(batchCtx, b.PerCallTimeout)
		defer callCancel()
		props, err := b.Source.FetchProps(callCtx, sport)
		outcomes <- fetchOutcome{name: "props", props: props, err: err}
	}()

	go func() {
		callCtx, callCancel := context.WithTimeout(batchCtx, b.PerCallTimeout)
		defer callCancel()
		odds, err := b.Source.GetOddsSnapshot(callCtx, sport)
		outcomes <- fetchOutcome{name: "odds", odds: odds, err: err}
	}()

	var events []types.Event
	var props []types.Candidate
	var odds market.OddsSnapshot
	var failed []string
	var timedOut []string

	for i := 0; i < 3; i++ {
		o := <-outcomes
		if o.err != nil {
			failed = append(failed, o.name)
			if errors.Is(o.err, context.DeadlineExceeded) {
				timedOut = append(timedOut, o.name)
			}
			continue
		}
		switch o.name {
		case "events":
			events = append(events, o.events...)
		case "props":
			props = append(props, o.props...)
		case "odds":
			odds = o.odds
		}
	}

	telemetry := Telemetry{EventsBefore: len(events), TimedOutComponents: timedOut}

	gated := make([]types.Event, 0, len(events))
	for _, e := range events {
		if e.StartTime.IsZero() {
			telemetry.DroppedMissingTime++
			continue
		}
		inDay, err := etclock.InDay(e.StartTime, etDate)
		if err != nil || !inDay {
			telemetry.DroppedOutOfWindow++
			continue
		}
		gated = append(gated, e)
	}
	telemetry.EventsAfter = len(gated)

	eventsByID := make(map[string]types.Event, len(gated))
	for _, e := range gated {
		eventsByID[e.EventID] = e
	}

	candidates := gameCandidatesFromOdds(gated, odds)
	for _, p := range props {
		ev, ok := eventsByID[p.Event.EventID]
		if !ok {
			continue // prop's event didn't pass the ET Day Gate
		}
		p.Event = ev
		candidates = append(candidates, p)
	}

	deduped := dedupByFingerprint(candidates)

	return Result{
		Candidates: deduped,
		Telemetry:  telemetry,
		Failed:     failed,
	}
}

// gameCandidatesFromOdds materializes one Candidate per (event, market, side)
// the odds snapshot actually quotes, keeping only the gated events' own
// lines and the highest-preference book per side.
func gameCandidatesFromOdds(gated []types.Event, odds market.OddsSnapshot) []types.Candidate {
	eventsByID := make(map[string]types.Event, len(gated))
	for _, e := range gated {
		eventsByID[e.EventID] = e
	}

	type sideKey struct {
		eventID string
		market  string
		side    string
	}
	best := make(map[sideKey]market.BookLine)
	order := make([]sideKey, 0, len(odds.Lines))
	for _, bl := range odds.Lines {
		if _, ok := eventsByID[bl.EventID]; !ok {
			continue // event didn't pass the ET Day Gate
		}
		if !isGameMarket(bl.Market) {
			continue // prop lines are sourced from FetchProps, not here
		}
		key := sideKey{eventID: bl.EventID, market: bl.Market, side: bl.Side}
		existing, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = bl
			continue
		}
		if types.BookRank(bl.Book) < types.BookRank(existing.Book) {
			best[key] = bl
		}
	}

	candidates := make([]types.Candidate, 0, len(order))
	for _, key := range order {
		bl := best[key]
		candidates = append(candidates, types.Candidate{
			Event:        eventsByID[key.eventID],
			Market:       types.Market(key.market),
			Side:         bl.Side,
			Line:         bl.Line,
			Book:         bl.Book,
			OddsAmerican: bl.OddsAmerican,
		})
	}
	return candidates
}

func isGameMarket(m string) bool {
	switch types.Market(m) {
	case types.MarketSpread, types.MarketMoneyline, types.MarketTotal:
		return true
	}
	return false
}

// dedupByFingerprint collapses candidates sharing a pick_id fingerprint,
// retaining the one from the higher book preference.
func dedupByFingerprint(candidates []types.Candidate) []types.Candidate {
	best := make(map[string]types.Candidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := types.FingerprintID(c.Event.Sport, c.Event.EventID, c.MarketLabel(), c.Side, c.Line, c.PlayerID)
		existing, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = c
			continue
		}
		if types.BookRank(c.Book) < types.BookRank(existing.Book) {
			best[key] = c
		}
	}
	out := make([]types.Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}
