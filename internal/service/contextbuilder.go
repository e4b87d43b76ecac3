package service

import (
	"context"
	"time"

	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/scoring"
	"github.com/sawpanic/pickengine/internal/snapshot"
	"github.com/sawpanic/pickengine/internal/types"
)

// SnapshotBuilder assembles the per-candidate snapshot.Context from the
// upstream sources. Callers wire
// it with cached sources (market.CachedMarketData, market.CachedSplits), so
// a slate of N candidates for one event hits the splits provider and the
// odds snapshot once per cache window, not N times.
type SnapshotBuilder struct {
	MarketData market.MarketDataSource
	Splits     market.SplitsSource

	// SERPShadow forces serp_boost to zero before summing; the Pick records
	// that zero, and the computed value is not kept.
	SERPShadow bool
}

// NewSnapshotBuilder constructs a SnapshotBuilder.
func NewSnapshotBuilder(md market.MarketDataSource, splits market.SplitsSource, serpShadow bool) *SnapshotBuilder {
	return &SnapshotBuilder{MarketData: md, Splits: splits, SERPShadow: serpShadow}
}

// Build implements ContextBuilder. Upstream unavailability degrades the
// Context rather than failing the candidate: a missing splits answer means
// sharp NO_DATA (never inferred from line data), a missing
// odds snapshot means the line sub-signal reports insufficient coverage.
func (b *SnapshotBuilder) Build(ctx context.Context, c types.Candidate) (snapshot.Context, scoring.Options, error) {
	snap := snapshot.Context{
		GameStatus: c.Event.Status,
		EventTime:  c.Event.StartTime.UTC().Format(time.RFC3339),
	}

	if b.MarketData != nil {
		if odds, err := b.MarketData.GetOddsSnapshot(ctx, c.Event.Sport); err == nil {
			snap.OddsSnapshot = odds
			spread, total := gameLines(odds, c.Event.EventID)
			snap.Spread = spread
			snap.Total = total
		}
	}

	if b.Splits != nil {
		splits, err := b.Splits.FetchSplits(ctx, c.Event.EventID)
		if err == nil {
			snap.Splits = splits
			snap.SplitsFound = true
		}
	}

	// Jarvis runs whenever any numeric input is present: a game line from
	// the odds snapshot, or the candidate's own prop line.
	snap.HasJarvisIn = snap.Spread != nil || snap.Total != nil || c.Line != 0

	opts := scoring.Options{
		SERPShadowMode:     b.SERPShadow,
		BookAgreementRatio: bookAgreement(snap.OddsSnapshot, c),
	}
	return snap, opts, nil
}

// gameLines extracts the consensus spread and total for an event from the
// odds snapshot: the highest-preference book's quote per market, matching
// the Slate Builder's own book-preference rule.
func gameLines(odds market.OddsSnapshot, eventID string) (spread, total *float64) {
	var bestSpread, bestTotal *market.BookLine
	for i := range odds.Lines {
		bl := &odds.Lines[i]
		if bl.EventID != eventID {
			continue
		}
		switch types.Market(bl.Market) {
		case types.MarketSpread:
			if bestSpread == nil || types.BookRank(bl.Book) < types.BookRank(bestSpread.Book) {
				bestSpread = bl
			}
		case types.MarketTotal:
			if bestTotal == nil || types.BookRank(bl.Book) < types.BookRank(bestTotal.Book) {
				bestTotal = bl
			}
		}
	}
	if bestSpread != nil {
		v := bestSpread.Line
		spread = &v
	}
	if bestTotal != nil {
		v := bestTotal.Line
		total = &v
	}
	return spread, total
}

// bookAgreement measures how tightly the books agree on this candidate's
// line, the MSRF input: 1.0 when every book quotes the same
// number, falling toward 0 as the widest disagreement grows relative to the
// line itself. Fewer than two books means no resonance signal.
func bookAgreement(odds market.OddsSnapshot, c types.Candidate) float64 {
	var lines []float64
	for _, bl := range odds.Lines {
		if bl.EventID == c.Event.EventID && bl.Market == c.MarketLabel() && bl.Side == c.Side {
			lines = append(lines, bl.Line)
		}
	}
	if len(lines) < 2 {
		return 0
	}
	min, max := lines[0], lines[0]
	for _, l := range lines {
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
	}
	span := max - min
	scale := max
	if scale < 0 {
		scale = -scale
	}
	if scale < 1 {
		scale = 1
	}
	agreement := 1 - span/scale
	if agreement < 0 {
		return 0
	}
	return agreement
}
