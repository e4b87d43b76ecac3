package market

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/pickengine/internal/types"
)

// IntegrationStatus is the per-integration reachability state: a 429 or
// open circuit degrades the integration to UNREACHABLE without failing the
// whole request.
type IntegrationStatus string

const (
	StatusOK          IntegrationStatus = "OK"
	StatusUnreachable IntegrationStatus = "UNREACHABLE"
)

// Circuit wraps an upstream call with a circuit breaker and a rate
// limiter. Request-scoped callers pass a ctx with deadline; Execute never
// blocks past that deadline.
type Circuit struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewCircuit builds a circuit for one named upstream integration.
// failureThreshold consecutive failures trip the breaker open for
// openTimeout; rps/burst bound outbound call rate.
func NewCircuit(name string, failureThreshold uint32, openTimeout time.Duration, rps float64, burst int) *Circuit {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
	}
	return &Circuit{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Execute runs fn under rate limiting and circuit breaking. A tripped
// breaker or a context deadline both surface as (zero, StatusUnreachable,
// err) so callers can record the integration as UNREACHABLE and degrade
// gracefully instead of failing the whole request.
func (c *Circuit) Execute(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, IntegrationStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, StatusUnreachable, err
	}
	result, err := c.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, StatusUnreachable, err
		}
		return nil, StatusUnreachable, err
	}
	return result, StatusOK, nil
}

// Name returns the integration name this circuit guards.
func (c *Circuit) Name() string { return c.name }

// ResilientMarketData wraps a MarketDataSource so every upstream call runs
// under one shared circuit breaker and rate limiter. A tripped breaker or
// rate-limit rejection surfaces as an error the Slate Builder already
// treats as a failed component (partial slate, not a failed request), and
// Status exposes the integration's current reachability for health
// reporting.
type ResilientMarketData struct {
	Source  MarketDataSource
	Circuit *Circuit

	lastStatus IntegrationStatus
}

// NewResilientMarketData wraps source behind circuit.
func NewResilientMarketData(source MarketDataSource, circuit *Circuit) *ResilientMarketData {
	return &ResilientMarketData{Source: source, Circuit: circuit, lastStatus: StatusOK}
}

func (r *ResilientMarketData) FetchEvents(ctx context.Context, sport types.Sport) ([]types.Event, error) {
	result, status, err := r.Circuit.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.Source.FetchEvents(ctx, sport)
	})
	r.lastStatus = status
	if err != nil {
		return nil, err
	}
	return result.([]types.Event), nil
}

func (r *ResilientMarketData) FetchProps(ctx context.Context, sport types.Sport) ([]types.Candidate, error) {
	result, status, err := r.Circuit.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.Source.FetchProps(ctx, sport)
	})
	r.lastStatus = status
	if err != nil {
		return nil, err
	}
	return result.([]types.Candidate), nil
}

func (r *ResilientMarketData) GetOddsSnapshot(ctx context.Context, sport types.Sport) (OddsSnapshot, error) {
	result, status, err := r.Circuit.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.Source.GetOddsSnapshot(ctx, sport)
	})
	r.lastStatus = status
	if err != nil {
		return OddsSnapshot{}, err
	}
	return result.(OddsSnapshot), nil
}

// Status reports the integration's reachability as of its most recent call.
func (r *ResilientMarketData) Status() IntegrationStatus { return r.lastStatus }

// ResilientSplits is ResilientMarketData's analog for the splits provider.
// ErrUnavailable passes through untouched: "provider has no data for this
// event" is a domain answer, not an upstream failure, and must not count
// toward tripping the breaker's failure threshold as if the integration
// were down.
type ResilientSplits struct {
	Source  SplitsSource
	Circuit *Circuit
}

// NewResilientSplits wraps source behind circuit.
func NewResilientSplits(source SplitsSource, circuit *Circuit) *ResilientSplits {
	return &ResilientSplits{Source: source, Circuit: circuit}
}

// splitsAnswer carries an ErrUnavailable answer through the breaker as a
// success, so "no data for this event" never counts toward the failure
// threshold.
type splitsAnswer struct {
	splits      Splits
	unavailable bool
}

func (r *ResilientSplits) FetchSplits(ctx context.Context, eventID string) (Splits, error) {
	result, _, err := r.Circuit.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		splits, err := r.Source.FetchSplits(ctx, eventID)
		if err == ErrUnavailable {
			return splitsAnswer{unavailable: true}, nil
		}
		if err != nil {
			return nil, err
		}
		return splitsAnswer{splits: splits}, nil
	})
	if err != nil {
		return Splits{}, err
	}
	answer := result.(splitsAnswer)
	if answer.unavailable {
		return Splits{}, ErrUnavailable
	}
	return answer.splits, nil
}
