package watch

import (
	"context"
	"time"

	"pnlmon/internal/application/port"
	"pnlmon/internal/application/service"
	"pnlmon/internal/domain/model"

	"github.com/rs/zerolog/log"
)

type ServiceDeps struct {
	Loader        *service.SnapshotLoader
	Mux           *service.FeedMux
	Valuation     *service.ValuationEngine
	Cache         *service.CacheService
	Session       port.SessionSource
	Sink          port.Sink
	PollEvery     time.Duration
	SnapshotEvery time.Duration
}

// Service drives the whole pipeline: poll position snapshots, reconcile feed
// subscriptions, fold ticks into the price map, recompute the aggregate, and
// publish it to the sink and the cache.
type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter

	refreshCh chan struct{}

	// touched only from Run's goroutine
	activeUser string
}

func NewService(deps ServiceDeps) *Service {
	if deps.PollEvery <= 0 {
		deps.PollEvery = 30 * time.Second
	}
	if deps.SnapshotEvery <= 0 {
		deps.SnapshotEvery = 5 * time.Minute
	}
	return &Service{
		deps:      deps,
		st:        NewState(),
		fmt:       NewFormatter(),
		refreshCh: make(chan struct{}, 1),
	}
}

func (s *Service) Run(ctx context.Context) error {
	// cold-start: seed the published value from the cache so a returning
	// user doesn't see zeros while the first refresh is in flight
	if sess, ok := s.deps.Session.Current(); ok {
		s.st.SetAggregate(s.deps.Cache.LoadCached(ctx, sess.UserID))
	}
	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, RenderLive))

	pollTicker := time.NewTicker(s.deps.PollEvery)
	defer pollTicker.Stop()
	snapTicker := time.NewTicker(s.deps.SnapshotEvery)
	defer snapTicker.Stop()

	s.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			s.deps.Mux.Shutdown()
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case <-s.refreshCh:
			s.refresh(ctx)

		case <-pollTicker.C:
			s.refresh(ctx)

		case now := <-snapTicker.C:
			line := s.fmt.Render(s.st, RenderSnapshot)
			_ = s.deps.Sink.WriteSnapshot(now, line)
			if s.activeUser != "" {
				s.deps.Cache.SaveSnapshot(ctx, now.UnixMilli(), s.st.Aggregate())
			}

		case t := <-s.deps.Mux.Ticks():
			if s.st.ApplyTick(t) {
				s.recompute(ctx)
			}
		}
	}
}

// RefreshNow asks the watch loop for an out-of-band snapshot refresh.
func (s *Service) RefreshNow() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Aggregate exposes the latest published figures to presentation consumers.
func (s *Service) Aggregate() model.AggregatePnL { return s.st.Aggregate() }

// Loading reports whether a first snapshot for the current session is still
// outstanding.
func (s *Service) Loading() bool { return s.st.Loading() }

func (s *Service) refresh(ctx context.Context) {
	sess, ok := s.deps.Session.Current()
	if !ok {
		if s.activeUser != "" {
			s.teardown(ctx)
		}
		return
	}
	if s.activeUser != "" && s.activeUser != sess.UserID {
		// user switched between polls; drop the old user's state first
		s.teardown(ctx)
	}
	s.activeUser = sess.UserID

	positions, err := s.deps.Loader.Refresh(ctx)
	if err != nil {
		// stale-but-available: keep the previous snapshot, retry next tick
		log.Error().Err(err).Msg("position refresh failed")
		return
	}

	s.st.SetPositions(positions)
	s.st.SetLoading(false)
	s.deps.Mux.Reconcile(ctx, positions)
	s.recompute(ctx)
}

func (s *Service) teardown(ctx context.Context) {
	user := s.activeUser
	s.activeUser = ""
	s.deps.Mux.Shutdown()
	s.st.Reset()
	s.deps.Cache.ClearSession(ctx, user)
	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, RenderLive))
	log.Info().Str("user", user).Msg("session ended, state cleared")
}

func (s *Service) recompute(ctx context.Context) {
	agg := s.deps.Valuation.Compute(s.st.Positions(), s.st.Prices())
	s.st.SetAggregate(agg)
	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, RenderLive))
	if s.activeUser != "" {
		s.deps.Cache.Persist(ctx, s.activeUser, agg, s.st.Positions())
	}
}
