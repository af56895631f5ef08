package model

// TickSource identifies which venue feed produced a price.
type TickSource string

const (
	SourceSpotTrade      TickSource = "SPOT_TRADE"
	SourceDerivativeMark TickSource = "DERIVATIVE_MARK"
)

// PriceTick is a normalized last/mark price for one canonical symbol.
// Ticks are ephemeral: each one overwrites the previous value for its symbol.
type PriceTick struct {
	Symbol string     `json:"symbol"`
	Price  float64    `json:"price"`
	Source TickSource `json:"source"`
	Ts     int64      `json:"ts_ms"`
}

// AggregatePnL is the derived portfolio-level result. It is always rebuilt
// from scratch over the open positions, never accumulated incrementally.
type AggregatePnL struct {
	TotalPnL      float64 `json:"total_pnl"`
	TotalInvested float64 `json:"total_invested"`
	PnLPercent    float64 `json:"pnl_percent"`
}
