package watch

import (
	"context"
	"testing"
	"time"

	"pnlmon/internal/application/port"
	"pnlmon/internal/application/service"
	"pnlmon/internal/domain/model"
)

type fakeClient struct {
	trades []model.Position
	err    error
}

func (c *fakeClient) ListTrades(ctx context.Context, token string) ([]model.Position, error) {
	return c.trades, c.err
}

type fakeSession struct {
	sess   port.Session
	active bool
}

func (s *fakeSession) Current() (port.Session, bool) { return s.sess, s.active }

type fakeFeed struct {
	class model.InstrumentClass
}

func (f *fakeFeed) Name() string                 { return "fake" }
func (f *fakeFeed) Class() model.InstrumentClass { return f.class }
func (f *fakeFeed) Subscribe(ctx context.Context, symbols []string) (<-chan port.Tick, error) {
	return make(chan port.Tick), nil
}

type recordingRepo struct {
	aggregates map[string]model.AggregatePnL
	cleared    []string
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{aggregates: make(map[string]model.AggregatePnL)}
}

func (r *recordingRepo) SaveAggregate(ctx context.Context, userID string, agg model.AggregatePnL, ts int64) error {
	r.aggregates[userID] = agg
	return nil
}

func (r *recordingRepo) LoadAggregate(ctx context.Context, userID string) (model.AggregatePnL, bool, error) {
	agg, ok := r.aggregates[userID]
	return agg, ok, nil
}

func (r *recordingRepo) SavePositions(ctx context.Context, userID string, payload string, ts int64) error {
	return nil
}

func (r *recordingRepo) ClearUser(ctx context.Context, userID string) error {
	delete(r.aggregates, userID)
	r.cleared = append(r.cleared, userID)
	return nil
}

func (r *recordingRepo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	return nil
}

func (r *recordingRepo) Close() error { return nil }

type nullSink struct{}

func (nullSink) WriteLive(line string) error                  { return nil }
func (nullSink) WriteSnapshot(ts time.Time, line string) error { return nil }
func (nullSink) NewLine() error                                { return nil }

func newTestService(client *fakeClient, session *fakeSession, repo *recordingRepo) *Service {
	mux := service.NewFeedMux(func(class model.InstrumentClass) port.PriceFeed {
		return &fakeFeed{class: class}
	})
	return NewService(ServiceDeps{
		Loader:    service.NewSnapshotLoader(client, session),
		Mux:       mux,
		Valuation: service.NewValuationEngine(),
		Cache:     service.NewCacheService(repo),
		Session:   session,
		Sink:      nullSink{},
	})
}

func TestServiceRefreshActivatesFeedsAndCache(t *testing.T) {
	client := &fakeClient{trades: []model.Position{{
		Symbol: "BTC", Class: model.ClassSpot, Status: model.StatusOpen,
		Direction: "buy", RealizedPnL: 10, TotalInvested: 100,
	}}}
	session := &fakeSession{sess: port.Session{UserID: "u1", Token: "tok"}, active: true}
	repo := newRecordingRepo()
	svc := newTestService(client, session, repo)

	svc.refresh(context.Background())

	if got := svc.deps.Mux.ActiveClasses(); len(got) != 1 || got[0] != model.ClassSpot {
		t.Errorf("expected SPOT feed active, got %v", got)
	}
	if agg := svc.Aggregate(); agg.TotalPnL != 10 {
		t.Errorf("expected fallback aggregate 10, got %+v", agg)
	}
	if repo.aggregates["u1"].TotalPnL != 10 {
		t.Errorf("expected aggregate cached for u1, got %+v", repo.aggregates)
	}
	if svc.Loading() {
		t.Errorf("expected loading=false after first refresh")
	}
}

func TestServiceSessionEndTearsDown(t *testing.T) {
	client := &fakeClient{trades: []model.Position{{
		Symbol: "BTC", Class: model.ClassFutures, Status: model.StatusOpen,
		Direction: "sell", TotalInvested: 100,
	}}}
	session := &fakeSession{sess: port.Session{UserID: "u1", Token: "tok"}, active: true}
	repo := newRecordingRepo()
	svc := newTestService(client, session, repo)

	ctx := context.Background()
	svc.refresh(ctx)
	if len(svc.deps.Mux.ActiveClasses()) != 1 {
		t.Fatalf("expected one active feed before logout")
	}

	session.active = false
	svc.refresh(ctx)

	if got := svc.deps.Mux.ActiveClasses(); len(got) != 0 {
		t.Errorf("expected no active feeds after logout, got %v", got)
	}
	if agg := svc.Aggregate(); agg != (model.AggregatePnL{}) {
		t.Errorf("expected zero aggregate after logout, got %+v", agg)
	}
	if len(repo.cleared) != 1 || repo.cleared[0] != "u1" {
		t.Errorf("expected cache cleared for u1, got %v", repo.cleared)
	}
}

func TestServiceAcceptsTicksForLowercaseSnapshot(t *testing.T) {
	// the backend reports symbols in varying case; the feeds emit canonical
	// upper case, and those ticks must still hit the held set
	client := &fakeClient{trades: []model.Position{{
		Symbol: "btc", Class: model.ClassSpot, Status: model.StatusOpen,
		Direction: "buy", AvgEntryPrice: 100, RemainingQuantity: 2, TotalInvested: 200,
	}}}
	session := &fakeSession{sess: port.Session{UserID: "u1", Token: "tok"}, active: true}
	repo := newRecordingRepo()
	svc := newTestService(client, session, repo)

	ctx := context.Background()
	svc.refresh(ctx)

	if !svc.st.ApplyTick(port.Tick{Class: model.ClassSpot, Symbol: "BTC", PriceNum: 110, PriceStr: "110"}) {
		t.Fatalf("tick for canonical symbol was dropped")
	}
	svc.recompute(ctx)

	if agg := svc.Aggregate(); agg.TotalPnL != 20 {
		t.Errorf("expected marked-to-market pnl 20, got %+v", agg)
	}
}

func TestServiceRefreshFailureKeepsState(t *testing.T) {
	client := &fakeClient{trades: []model.Position{{
		Symbol: "BTC", Class: model.ClassSpot, Status: model.StatusOpen,
		Direction: "buy", RealizedPnL: 10, TotalInvested: 100,
	}}}
	session := &fakeSession{sess: port.Session{UserID: "u1", Token: "tok"}, active: true}
	repo := newRecordingRepo()
	svc := newTestService(client, session, repo)

	ctx := context.Background()
	svc.refresh(ctx)

	// transient backend failure: previous snapshot stays available
	client.err = context.DeadlineExceeded
	svc.refresh(ctx)

	if agg := svc.Aggregate(); agg.TotalPnL != 10 {
		t.Errorf("expected stale aggregate retained, got %+v", agg)
	}
	if got := svc.deps.Mux.ActiveClasses(); len(got) != 1 {
		t.Errorf("expected feed kept across transient failure, got %v", got)
	}
}
