package watch

import (
	"sort"
	"sync"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"
)

// State holds the live inputs and the derived aggregate. The watch loop is
// the only writer; the mutex exists for presentation readers on other
// goroutines. Writers always replace whole structures, never mutate in place.
type State struct {
	mu sync.Mutex

	positions []model.Position
	held      map[string]struct{} // open symbols, for defensive tick filtering
	prices    map[string]model.PriceTick
	agg       model.AggregatePnL
	loading   bool
}

func NewState() *State {
	return &State{
		held:    make(map[string]struct{}),
		prices:  make(map[string]model.PriceTick),
		loading: true,
	}
}

// SetPositions replaces the position snapshot wholesale.
func (s *State) SetPositions(positions []model.Position) {
	cp := append([]model.Position(nil), positions...)
	held := make(map[string]struct{}, len(cp))
	for _, p := range cp {
		if p.IsOpen() {
			held[p.Symbol] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = cp
	s.held = held
}

// ApplyTick records a price update. Ticks for symbols no open position holds
// are dropped (no subscription should exist for them, but feeds and snapshots
// race). Returns whether the price map changed.
func (s *State) ApplyTick(t port.Tick) bool {
	if t.Symbol == "" || t.PriceNum <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.held[t.Symbol]; !ok {
		return false
	}
	if prev, ok := s.prices[t.Symbol]; ok && prev.Price == t.PriceNum {
		return false
	}
	s.prices[t.Symbol] = model.PriceTick{
		Symbol: t.Symbol,
		Price:  t.PriceNum,
		Source: t.Source,
		Ts:     t.Ts,
	}
	return true
}

func (s *State) Positions() []model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Position(nil), s.positions...)
}

// Prices returns a copy of the symbol -> last price map.
func (s *State) Prices() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.prices))
	for sym, t := range s.prices {
		out[sym] = t.Price
	}
	return out
}

// PricedSymbols returns the symbols with a live price, sorted, for rendering.
func (s *State) PricedSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.prices))
	for sym := range s.prices {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s *State) SetAggregate(agg model.AggregatePnL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg = agg
}

func (s *State) Aggregate() model.AggregatePnL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg
}

func (s *State) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Reset drops everything back to the zero state (session end).
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = nil
	s.held = make(map[string]struct{})
	s.prices = make(map[string]model.PriceTick)
	s.agg = model.AggregatePnL{}
	s.loading = true
}
