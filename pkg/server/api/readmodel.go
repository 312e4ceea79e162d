package api

import (
	"context"
	"sort"
	"sync"

	"github.com/StrathCole/oracle-watch/pkg/events"
)

// ReadModel keeps the latest price average per denom for the HTTP API.
type ReadModel struct {
	mu                sync.RWMutex
	prices            map[string]events.PriceAverage
	lastAverageHeight uint64
}

// NewReadModel creates an empty read model.
func NewReadModel() *ReadModel {
	return &ReadModel{prices: make(map[string]events.PriceAverage)}
}

// Run applies events from in until the channel closes or ctx is done.
func (m *ReadModel) Run(ctx context.Context, in <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			m.Apply(ev)
		}
	}
}

// Apply folds one event into the model. Anything but a price average is ignored.
func (m *ReadModel) Apply(ev events.Event) {
	avg, ok := ev.(events.PriceAverage)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, seen := m.prices[avg.Denom]; seen && cur.Height > avg.Height {
		return
	}
	m.prices[avg.Denom] = avg
	if avg.Height > m.lastAverageHeight {
		m.lastAverageHeight = avg.Height
	}
}

// Prices returns the latest averages sorted by denom.
func (m *ReadModel) Prices() []events.PriceAverage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]events.PriceAverage, 0, len(m.prices))
	for _, p := range m.prices {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out
}

// Price returns the latest average for denom.
func (m *ReadModel) Price(denom string) (events.PriceAverage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prices[denom]
	return p, ok
}

// LastAverageHeight is the highest height any average was computed at.
func (m *ReadModel) LastAverageHeight() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAverageHeight
}
