// Package market declares the opaque upstream interfaces —
// MarketDataSource, ResultsSource, SplitsSource — and the caching and
// resilience wrappers around them. The core never hard-codes vendor
// identity in business logic; concrete adapters for specific vendors live
// outside this module.
package market

import (
	"context"

	"github.com/sawpanic/pickengine/internal/types"
)

// MarketDataSource is the opaque upstream market-data collaborator.
type MarketDataSource interface {
	FetchEvents(ctx context.Context, sport types.Sport) ([]types.Event, error)
	FetchProps(ctx context.Context, sport types.Sport) ([]types.Candidate, error)
	GetOddsSnapshot(ctx context.Context, sport types.Sport) (OddsSnapshot, error)
}

// OddsSnapshot is the per-book odds view used for line-variance
// computation in the Research engine.
type OddsSnapshot struct {
	Sport types.Sport
	Lines []BookLine
}

// BookLine is one book's quote for one candidate key.
type BookLine struct {
	Book         string
	EventID      string
	Market       string
	Side         string
	Line         float64
	OddsAmerican *int
}

// FinalScore is the result of ResultsSource.FetchFinalScore.
type FinalScore struct {
	Home   int
	Away   int
	Status string // "FINAL", "NO_CONTEST", etc.
	Found  bool
}

// ResultsSource is the opaque upstream results collaborator.
type ResultsSource interface {
	FetchFinalScore(ctx context.Context, eventID string) (FinalScore, error)
	FetchPlayerStat(ctx context.Context, playerID, eventID, stat string) (value float64, found bool, err error)
}

// SplitsStrength is the Research engine's sharp_strength enum.
type SplitsStrength string

const (
	SplitsNone     SplitsStrength = "NONE"
	SplitsMild     SplitsStrength = "MILD"
	SplitsModerate SplitsStrength = "MODERATE"
	SplitsStrong   SplitsStrength = "STRONG"
)

// Splits is the result of SplitsSource.FetchSplits.
type Splits struct {
	TicketPct float64
	MoneyPct  float64
	SharpSide string
	Strength  SplitsStrength
}

// SplitsSource is the opaque upstream sharp-money splits collaborator.
// A provider returning ErrUnavailable MUST cause the Research
// engine to report sharp_strength=NONE — never to infer strength from line
// variance.
type SplitsSource interface {
	FetchSplits(ctx context.Context, eventID string) (Splits, error)
}

// ErrUnavailable is returned by SplitsSource when the provider has no data
// for the requested event; it is not a failure of the pipeline.
var ErrUnavailable = errUnavailable{}

type errUnavailable struct{}

func (errUnavailable) Error() string { return "splits source: unavailable" }
