package model

import "strings"

// InstrumentClass decides which venue feed prices a position.
type InstrumentClass string

const (
	ClassSpot    InstrumentClass = "SPOT"
	ClassFutures InstrumentClass = "FUTURES"
	ClassOptions InstrumentClass = "OPTIONS"
)

// Classes lists all instrument classes in a stable order.
var Classes = []InstrumentClass{ClassSpot, ClassFutures, ClassOptions}

// Position lifecycle statuses as reported by the trading backend.
const (
	StatusOpen            = "OPEN"
	StatusPartiallyClosed = "PARTIALLY_CLOSED"
	StatusClosed          = "CLOSED"
)

// Position is one held exposure as reported by the trading backend.
// The monitor only reads snapshots; all lifecycle changes happen server-side.
type Position struct {
	Symbol            string          `json:"asset_symbol"`
	Class             InstrumentClass `json:"trade_type"`
	Status            string          `json:"status"`
	Direction         string          `json:"direction"` // "buy" / "sell", case varies upstream
	AvgEntryPrice     float64         `json:"average_price"`
	RemainingQuantity float64         `json:"remaining_quantity"`
	TotalInvested     float64         `json:"total_invested"`
	RealizedPnL       float64         `json:"realized_pnl"`
}

// IsOpen reports whether the position still contributes to live valuation.
func (p Position) IsOpen() bool {
	return p.Status == StatusOpen || p.Status == StatusPartiallyClosed
}

// IsLong treats any casing of "buy" as long; everything else is short.
func (p Position) IsLong() bool {
	return strings.EqualFold(strings.TrimSpace(p.Direction), "buy")
}

// NormalizeSymbol maps a backend or venue symbol to the canonical form used
// as the price-map key. Backend casing varies; the feeds always emit upper.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// SymbolsByClass groups the canonical symbols of open positions by class,
// deduplicated, preserving first-seen order.
func SymbolsByClass(positions []Position) map[InstrumentClass][]string {
	out := make(map[InstrumentClass][]string)
	seen := make(map[string]struct{})
	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}
		sym := NormalizeSymbol(p.Symbol)
		if sym == "" {
			continue
		}
		key := string(p.Class) + ":" + sym
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out[p.Class] = append(out[p.Class], sym)
	}
	return out
}
