// Package weights manages the per-(sport, market) WeightVector used by the
// Research and Jarvis engines: one vector per (sport, market) pair,
// adjusted incrementally by the Auto-Grader's audit loop rather than
// replaced wholesale.
package weights

import (
	"math"

	"github.com/sawpanic/pickengine/internal/types"
)

// AdjustStep and AdjustCap bound each signal's per-audit adjustment to
// +-min(AdjustStep, AdjustCap). Kept as named constants rather than inlined
// so the audit loop can't silently drift from them.
const (
	AdjustStep = 0.01
	AdjustCap  = 0.05
)

// Store is the minimal persistence seam weights.Manager needs; pickstore.Store
// satisfies it without weights importing pickstore directly (pickstore
// already imports types, and weights needn't also depend on the file-layout
// details pickstore owns).
type Store interface {
	ReadWeights() (map[string]map[string]types.WeightVector, error)
	WriteWeights(map[string]map[string]types.WeightVector) error
}

// Manager holds the in-memory table of WeightVectors, keyed by (sport,
// market), and persists changes through Store.
type Manager struct {
	store   Store
	vectors map[string]map[string]types.WeightVector // sport -> market -> vector
}

// Load reads the current weight table from the store. A (sport, market)
// missing from it gets Get's equal-weighted default vector on access.
func Load(store Store) (*Manager, error) {
	vectors, err := store.ReadWeights()
	if err != nil {
		return nil, err
	}
	if vectors == nil {
		vectors = map[string]map[string]types.WeightVector{}
	}
	return &Manager{store: store, vectors: vectors}, nil
}

// Get returns the current WeightVector for (sport, market), or a default
// vector with signal equal-weighted if none has been learned yet.
func (m *Manager) Get(sport types.Sport, market string, defaultSignals []string) types.WeightVector {
	if bySport, ok := m.vectors[string(sport)]; ok {
		if v, ok := bySport[market]; ok {
			return v
		}
	}
	return defaultVector(sport, market, defaultSignals)
}

func defaultVector(sport types.Sport, market string, signals []string) types.WeightVector {
	v := types.WeightVector{Sport: sport, Market: market, Weights: map[string]float64{}}
	if len(signals) == 0 {
		return v
	}
	equal := 1.0 / float64(len(signals))
	for _, s := range signals {
		v.Weights[s] = equal
	}
	return v
}

// SignalAdjustment is one signal's proposed delta for one audit cycle,
// before the bounded-step clamp and re-normalization are applied.
type SignalAdjustment struct {
	Signal string
	Delta  float64 // signed, proportional to observed correlation with outcome
}

// Adjust applies the weight-learning step to one (sport, market)
// vector: clamp each signal's delta to +-min(AdjustStep, AdjustCap), apply
// it, then re-normalize the group to sum to 1.0. Returns the updated vector
// without persisting it; callers batch several groups before calling Save.
func (m *Manager) Adjust(sport types.Sport, market string, defaultSignals []string, deltas []SignalAdjustment) types.WeightVector {
	v := m.Get(sport, market, defaultSignals)
	if v.Weights == nil {
		v.Weights = map[string]float64{}
	}

	bound := math.Min(AdjustStep, AdjustCap)
	for _, d := range deltas {
		clamped := clampSigned(d.Delta, bound)
		v.Weights[d.Signal] = math.Max(0, v.Weights[d.Signal]+clamped)
	}
	v.Normalize()

	m.setLocal(v)
	return v
}

func clampSigned(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

// setLocal updates the in-memory table without writing to the store, so a
// caller adjusting several groups can batch them into one atomic Save.
func (m *Manager) setLocal(v types.WeightVector) {
	bySport, ok := m.vectors[string(v.Sport)]
	if !ok {
		bySport = map[string]types.WeightVector{}
		m.vectors[string(v.Sport)] = bySport
	}
	bySport[v.Market] = v
}

// Save atomically persists the full weight table.
func (m *Manager) Save() error {
	return m.store.WriteWeights(m.vectors)
}

// All returns the full table, for reporting (e.g. weight diffs in an audit
// snapshot).
func (m *Manager) All() map[string]map[string]types.WeightVector {
	return m.vectors
}
