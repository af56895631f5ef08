package watch

import (
	"testing"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"
)

func TestStateDropsUnheldTicks(t *testing.T) {
	st := NewState()
	st.SetPositions([]model.Position{
		{Symbol: "BTC", Class: model.ClassSpot, Status: model.StatusOpen},
	})

	if st.ApplyTick(port.Tick{Symbol: "ETH", PriceNum: 2000}) {
		t.Errorf("tick for unheld symbol must be dropped")
	}
	if !st.ApplyTick(port.Tick{Symbol: "BTC", PriceNum: 45000}) {
		t.Errorf("tick for held symbol must be applied")
	}
	if prices := st.Prices(); len(prices) != 1 || prices["BTC"] != 45000 {
		t.Errorf("unexpected price map %v", prices)
	}
}

func TestStateIgnoresDuplicatePrice(t *testing.T) {
	st := NewState()
	st.SetPositions([]model.Position{{Symbol: "BTC", Status: model.StatusOpen}})

	st.ApplyTick(port.Tick{Symbol: "BTC", PriceNum: 45000})
	if st.ApplyTick(port.Tick{Symbol: "BTC", PriceNum: 45000}) {
		t.Errorf("identical price must not report a change")
	}
	if !st.ApplyTick(port.Tick{Symbol: "BTC", PriceNum: 45001}) {
		t.Errorf("new price must report a change")
	}
}

func TestStateTickOverwrites(t *testing.T) {
	st := NewState()
	st.SetPositions([]model.Position{{Symbol: "BTC", Status: model.StatusOpen}})

	st.ApplyTick(port.Tick{Symbol: "BTC", PriceNum: 45000})
	st.ApplyTick(port.Tick{Symbol: "BTC", PriceNum: 46000})

	if prices := st.Prices(); prices["BTC"] != 46000 {
		t.Errorf("expected last tick to win, got %v", prices["BTC"])
	}
}

func TestStateClosedPositionNotHeld(t *testing.T) {
	st := NewState()
	st.SetPositions([]model.Position{{Symbol: "BTC", Status: model.StatusClosed}})

	if st.ApplyTick(port.Tick{Symbol: "BTC", PriceNum: 45000}) {
		t.Errorf("closed position must not hold a feed symbol")
	}
}

func TestStateReset(t *testing.T) {
	st := NewState()
	st.SetPositions([]model.Position{{Symbol: "BTC", Status: model.StatusOpen}})
	st.ApplyTick(port.Tick{Symbol: "BTC", PriceNum: 45000})
	st.SetAggregate(model.AggregatePnL{TotalPnL: 10, TotalInvested: 100, PnLPercent: 10})
	st.SetLoading(false)

	st.Reset()

	if agg := st.Aggregate(); agg != (model.AggregatePnL{}) {
		t.Errorf("expected zero aggregate after reset, got %+v", agg)
	}
	if len(st.Prices()) != 0 || len(st.Positions()) != 0 {
		t.Errorf("expected empty state after reset")
	}
	if !st.Loading() {
		t.Errorf("expected loading=true after reset")
	}
}
