package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pickengine/internal/types"
)

type flakySource struct {
	countingSource
	err error
}

func (f *flakySource) FetchEvents(ctx context.Context, sport types.Sport) ([]types.Event, error) {
	f.eventCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func TestResilientMarketData_OpensCircuitAfterConsecutiveFailures(t *testing.T) {
	source := &flakySource{err: errors.New("upstream 503")}
	resilient := NewResilientMarketData(source, NewCircuit("test", 3, time.Minute, 100, 10))

	for i := 0; i < 3; i++ {
		_, err := resilient.FetchEvents(context.Background(), types.SportNBA)
		require.Error(t, err)
	}
	assert.Equal(t, StatusUnreachable, resilient.Status())

	// Breaker is open: the upstream is no longer called.
	callsBefore := source.eventCalls
	_, err := resilient.FetchEvents(context.Background(), types.SportNBA)
	require.Error(t, err)
	assert.Equal(t, callsBefore, source.eventCalls)
}

func TestResilientMarketData_SuccessReportsOK(t *testing.T) {
	source := &flakySource{}
	resilient := NewResilientMarketData(source, NewCircuit("test", 3, time.Minute, 100, 10))

	_, err := resilient.FetchEvents(context.Background(), types.SportNBA)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resilient.Status())
}

func TestResilientSplits_UnavailableDoesNotTripBreaker(t *testing.T) {
	source := &countingSplits{unavailable: true}
	resilient := NewResilientSplits(source, NewCircuit("splits", 2, time.Minute, 100, 10))

	for i := 0; i < 5; i++ {
		_, err := resilient.FetchSplits(context.Background(), "e_1")
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	// Five unavailable answers never opened the breaker: the source was
	// still consulted every time.
	assert.Equal(t, 5, source.calls)
}
