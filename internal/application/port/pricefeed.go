package port

import (
	"context"

	"pnlmon/internal/domain/model"
)

type Tick struct {
	Class    model.InstrumentClass // feed partition the tick came from
	Symbol   string                // canonical symbol, e.g. "BTC"
	PriceStr string                // raw string
	PriceNum float64               // parsed float64 (best-effort)
	Source   model.TickSource
	Ts       int64 // unix ms
}

type PriceFeed interface {
	Name() string
	Class() model.InstrumentClass
	Subscribe(ctx context.Context, symbols []string) (<-chan Tick, error)
}

// FeedFactory builds the feed for one instrument class. The multiplexer calls
// it each time a class connection is (re)created.
type FeedFactory func(class model.InstrumentClass) PriceFeed
