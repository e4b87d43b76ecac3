package market

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sawpanic/pickengine/internal/cache"
	"github.com/sawpanic/pickengine/internal/types"
)

// DefaultCacheTTL is the slate-warming cache lifetime. The props_fetch jobs
// re-warm on their own schedule, so a request between warmings reads the
// last fetched snapshot instead of hitting the upstream again.
const DefaultCacheTTL = 5 * time.Minute

// CachedMarketData wraps a MarketDataSource with the shared TTL cache,
// keyed per (call, sport). A cache hit skips the upstream entirely;
// a miss fetches, stores, and returns. Errors are never cached — the next
// caller retries the upstream.
type CachedMarketData struct {
	Source MarketDataSource
	Cache  cache.Cache
	TTL    time.Duration
}

// NewCachedMarketData wraps source with c at the default TTL.
func NewCachedMarketData(source MarketDataSource, c cache.Cache) *CachedMarketData {
	return &CachedMarketData{Source: source, Cache: c, TTL: DefaultCacheTTL}
}

func (m *CachedMarketData) FetchEvents(ctx context.Context, sport types.Sport) ([]types.Event, error) {
	key := "events:" + string(sport)
	if data, ok := m.Cache.Get(ctx, key); ok {
		var events []types.Event
		if err := json.Unmarshal(data, &events); err == nil {
			return events, nil
		}
	}
	events, err := m.Source.FetchEvents(ctx, sport)
	if err != nil {
		return nil, err
	}
	m.put(ctx, key, events)
	return events, nil
}

func (m *CachedMarketData) FetchProps(ctx context.Context, sport types.Sport) ([]types.Candidate, error) {
	key := "props:" + string(sport)
	if data, ok := m.Cache.Get(ctx, key); ok {
		var props []types.Candidate
		if err := json.Unmarshal(data, &props); err == nil {
			return props, nil
		}
	}
	props, err := m.Source.FetchProps(ctx, sport)
	if err != nil {
		return nil, err
	}
	m.put(ctx, key, props)
	return props, nil
}

func (m *CachedMarketData) GetOddsSnapshot(ctx context.Context, sport types.Sport) (OddsSnapshot, error) {
	key := "odds:" + string(sport)
	if data, ok := m.Cache.Get(ctx, key); ok {
		var snap OddsSnapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return snap, nil
		}
	}
	snap, err := m.Source.GetOddsSnapshot(ctx, sport)
	if err != nil {
		return OddsSnapshot{}, err
	}
	m.put(ctx, key, snap)
	return snap, nil
}

func (m *CachedMarketData) put(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.Cache.Set(ctx, key, data, m.TTL)
}

// CachedSplits wraps a SplitsSource with the same per-event TTL cache, so
// the splits provider is hit once per event per cache window no matter how
// many of that event's candidates are scored. An ErrUnavailable answer is
// cached too (as an explicit miss marker) — an unavailable provider stays
// unavailable for the window instead of being re-polled per candidate.
type CachedSplits struct {
	Source SplitsSource
	Cache  cache.Cache
	TTL    time.Duration
}

// NewCachedSplits wraps source with c at the default TTL.
func NewCachedSplits(source SplitsSource, c cache.Cache) *CachedSplits {
	return &CachedSplits{Source: source, Cache: c, TTL: DefaultCacheTTL}
}

type cachedSplitsEntry struct {
	Splits      Splits `json:"splits"`
	Unavailable bool   `json:"unavailable"`
}

func (s *CachedSplits) FetchSplits(ctx context.Context, eventID string) (Splits, error) {
	key := "splits:" + eventID
	if data, ok := s.Cache.Get(ctx, key); ok {
		var e cachedSplitsEntry
		if err := json.Unmarshal(data, &e); err == nil {
			if e.Unavailable {
				return Splits{}, ErrUnavailable
			}
			return e.Splits, nil
		}
	}

	splits, err := s.Source.FetchSplits(ctx, eventID)
	if err != nil {
		if err == ErrUnavailable {
			if data, merr := json.Marshal(cachedSplitsEntry{Unavailable: true}); merr == nil {
				s.Cache.Set(ctx, key, data, s.TTL)
			}
		}
		return Splits{}, err
	}
	if data, merr := json.Marshal(cachedSplitsEntry{Splits: splits}); merr == nil {
		s.Cache.Set(ctx, key, data, s.TTL)
	}
	return splits, nil
}
