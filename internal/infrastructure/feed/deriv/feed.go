package deriv

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TickerFeed streams mark prices from the derivatives venue. Futures and
// options each run their own TickerFeed instance on their own connection; the
// wire protocol is the same, only the symbol set differs.
type TickerFeed struct {
	wsURL string // e.g. wss://socket.delta.exchange
	class model.InstrumentClass
}

func NewTickerFeed(wsURL string, class model.InstrumentClass) *TickerFeed {
	return &TickerFeed{
		wsURL: strings.TrimSpace(wsURL),
		class: class,
	}
}

func (f *TickerFeed) Name() string { return "deriv/" + strings.ToLower(string(f.class)) }

func (f *TickerFeed) Class() model.InstrumentClass { return f.class }

type subscribeReq struct {
	Type    string           `json:"type"`
	Payload subscribePayload `json:"payload"`
}

type subscribePayload struct {
	Channels []subscribeChannel `json:"channels"`
}

type subscribeChannel struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// flexNumber accepts a JSON number or a quoted numeric string; the venue
// sends both depending on the field.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	s = strings.Trim(s, `"`)
	if s == "null" {
		s = ""
	}
	*n = flexNumber(s)
	return nil
}

func (n flexNumber) String() string { return string(n) }

// tickerMsg covers both data frames and subscription acks.
type tickerMsg struct {
	Type      string     `json:"type"`
	Symbol    string     `json:"symbol"`
	Close     flexNumber `json:"close"`
	MarkPrice flexNumber `json:"mark_price"`
}

func (f *TickerFeed) Subscribe(ctx context.Context, symbols []string) (<-chan port.Tick, error) {
	if f.wsURL == "" {
		return nil, errors.New("derivatives ws_url empty")
	}

	subs := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		subs = append(subs, s)
	}
	if len(subs) == 0 {
		return nil, errors.New("no valid symbols")
	}

	out := make(chan port.Tick, 1024)
	go f.run(ctx, subs, out)
	return out, nil
}

// decodeTick validates one ticker frame. Acks and unknown frame types come
// back not-ok without being an error.
func decodeTick(b []byte, class model.InstrumentClass) (port.Tick, bool) {
	var msg tickerMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		return port.Tick{}, false
	}
	if msg.Type != "v2/ticker" {
		return port.Tick{}, false
	}

	sym := strings.ToUpper(strings.TrimSpace(msg.Symbol))
	if sym == "" {
		return port.Tick{}, false
	}

	// mark_price wins when it parses to a positive value; anything else
	// ("", "0", "0.00", garbage) falls back to close
	pxs := msg.MarkPrice.String()
	pxn, err := strconv.ParseFloat(pxs, 64)
	if err != nil || pxn <= 0 {
		pxs = msg.Close.String()
		pxn, err = strconv.ParseFloat(pxs, 64)
		if err != nil || pxn <= 0 {
			return port.Tick{}, false
		}
	}

	return port.Tick{
		Class:    class,
		Symbol:   sym,
		PriceStr: pxs,
		PriceNum: pxn,
		Source:   model.SourceDerivativeMark,
		Ts:       time.Now().UnixMilli(),
	}, true
}

func (f *TickerFeed) run(ctx context.Context, symbols []string, out chan<- port.Tick) {
	defer close(out)

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", f.Name()).Str("url", f.wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, f.wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		sub := subscribeReq{
			Type: "subscribe",
			Payload: subscribePayload{
				Channels: []subscribeChannel{{Name: "v2/ticker", Symbols: symbols}},
			},
		}
		if err := conn.WriteJSON(sub); err != nil {
			_ = conn.Close()
			log.Error().Str("feed", f.Name()).Err(err).Msg("subscribe failed")
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Int("symbols", len(symbols)).Msg("ws connected & subscribed")

		err = readLoop(ctx, conn, func(b []byte) {
			t, ok := decodeTick(b, f.class)
			if !ok {
				return
			}
			select {
			case out <- t:
			case <-ctx.Done():
			}
		})

		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = minDur(backoff*2, maxBackoff)
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// unblock the reader and wait for it to exit; the caller closes
			// the tick channel and must not race a pending send
			_ = conn.Close()
			<-errCh
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
