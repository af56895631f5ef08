package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// FeedMux keeps one live feed connection per instrument class with open
// positions and demuxes every venue tick into a single merged channel.
//
// Reconciliation is full-replace per class: when a class's symbol set
// changes, that class's connection is torn down and a fresh subscription is
// opened with the new set. Untouched classes keep their connection; classes
// without open positions hold none.
type FeedMux struct {
	factory port.FeedFactory
	out     chan port.Tick

	mu     sync.Mutex
	active map[model.InstrumentClass]*classConn
}

type classConn struct {
	cancel  context.CancelFunc
	symbols string // sorted, comma-joined; change detection key
}

func NewFeedMux(factory port.FeedFactory) *FeedMux {
	return &FeedMux{
		factory: factory,
		out:     make(chan port.Tick, 1024),
		active:  make(map[model.InstrumentClass]*classConn),
	}
}

// Ticks is the merged stream across all class connections.
func (m *FeedMux) Ticks() <-chan port.Tick { return m.out }

// Reconcile brings the connection set in line with the open positions.
func (m *FeedMux) Reconcile(ctx context.Context, positions []model.Position) {
	wanted := model.SymbolsByClass(positions)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, class := range model.Classes {
		symbols := wanted[class]
		key := joinSorted(symbols)
		conn := m.active[class]

		if conn != nil && conn.symbols == key {
			continue
		}
		if conn != nil {
			conn.cancel()
			delete(m.active, class)
			log.Info().Str("class", string(class)).Msg("feed torn down")
		}
		if len(symbols) == 0 {
			continue
		}
		m.startLocked(ctx, class, symbols, key)
	}
}

func (m *FeedMux) startLocked(ctx context.Context, class model.InstrumentClass, symbols []string, key string) {
	feed := m.factory(class)
	if feed == nil {
		log.Warn().Str("class", string(class)).Msg("no feed configured for class")
		return
	}

	cctx, cancel := context.WithCancel(ctx)
	ch, err := feed.Subscribe(cctx, symbols)
	if err != nil {
		cancel()
		log.Error().Str("feed", feed.Name()).Err(err).Msg("subscribe failed")
		return
	}
	m.active[class] = &classConn{cancel: cancel, symbols: key}

	go func() {
		for {
			select {
			case <-cctx.Done():
				return
			case t, ok := <-ch:
				if !ok {
					return
				}
				select {
				case m.out <- t:
				case <-cctx.Done():
					return
				}
			}
		}
	}()

	log.Info().Str("feed", feed.Name()).Int("symbols", len(symbols)).Msg("feed started")
}

// Shutdown tears down every connection. Reconcile may be called again later
// to bring feeds back up (session re-activation).
func (m *FeedMux) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for class, conn := range m.active {
		conn.cancel()
		delete(m.active, class)
	}
}

// ActiveClasses returns the classes currently holding a connection, sorted.
func (m *FeedMux) ActiveClasses() []model.InstrumentClass {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.InstrumentClass, 0, len(m.active))
	for class := range m.active {
		out = append(out, class)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinSorted(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	cp := append([]string(nil), symbols...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}
