package service

import (
	"pnlmon/internal/domain/model"
)

// ValuationEngine recomputes the portfolio aggregate from scratch on every
// call. It holds no state, so recomputing with identical inputs always yields
// identical output.
type ValuationEngine struct{}

func NewValuationEngine() *ValuationEngine {
	return &ValuationEngine{}
}

// Compute marks every open position to market and aggregates the result.
//
// With a live price, unrealized P&L is (px-entry)*qty for longs and
// (entry-px)*qty for shorts, added on top of the backend-reported realized
// P&L. Without a live price the backend-reported realized P&L stands in as
// the position's whole contribution. Closed positions and price entries for
// symbols nobody holds are ignored.
func (e *ValuationEngine) Compute(positions []model.Position, prices map[string]float64) model.AggregatePnL {
	var agg model.AggregatePnL

	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}

		agg.TotalInvested += p.TotalInvested

		px, ok := prices[p.Symbol]
		if !ok {
			agg.TotalPnL += p.RealizedPnL
			continue
		}

		var unrealized float64
		if p.IsLong() {
			unrealized = (px - p.AvgEntryPrice) * p.RemainingQuantity
		} else {
			unrealized = (p.AvgEntryPrice - px) * p.RemainingQuantity
		}
		agg.TotalPnL += p.RealizedPnL + unrealized
	}

	if agg.TotalInvested > 0 {
		agg.PnLPercent = agg.TotalPnL / agg.TotalInvested * 100
	}
	return agg
}
