package spot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TradeFeed streams last-trade prices for spot positions over a single
// multiplexed connection (one stream channel per symbol, joined into one
// combined-stream URL).
type TradeFeed struct {
	wsURL string // e.g. wss://stream.binance.com:9443
	quote string // quote-currency suffix to strip, e.g. "USDT"
}

func NewTradeFeed(wsURL, quote string) *TradeFeed {
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote == "" {
		quote = "USDT"
	}
	return &TradeFeed{
		wsURL: strings.TrimSpace(wsURL),
		quote: quote,
	}
}

func (f *TradeFeed) Name() string { return "spot" }

func (f *TradeFeed) Class() model.InstrumentClass { return model.ClassSpot }

type combinedMsg struct {
	Stream string   `json:"stream"`
	Data   tradeMsg `json:"data"`
}

type tradeMsg struct {
	Symbol string `json:"s"` // pair, e.g. "BTCUSDT"
	Price  string `json:"p"`
}

func (f *TradeFeed) Subscribe(ctx context.Context, symbols []string) (<-chan port.Tick, error) {
	wsURL, err := buildCombinedURL(f.wsURL, symbols, f.quote)
	if err != nil {
		return nil, err
	}

	out := make(chan port.Tick, 1024)
	go f.run(ctx, wsURL, out)
	return out, nil
}

func buildCombinedURL(base string, symbols []string, quote string) (string, error) {
	if base == "" {
		return "", errors.New("spot ws_url empty")
	}
	if len(symbols) == 0 {
		return "", errors.New("symbols empty")
	}

	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		streams = append(streams, fmt.Sprintf("%s%s@trade", s, strings.ToLower(quote)))
	}
	if len(streams) == 0 {
		return "", errors.New("no valid symbols")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// decodeTick validates one combined-stream message and normalizes the pair
// ticker back to the canonical symbol. ok is false for malformed payloads and
// for pairs in an unexpected quote currency.
func decodeTick(b []byte, quote string) (port.Tick, bool) {
	var msg combinedMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		return port.Tick{}, false
	}

	pair := strings.ToUpper(strings.TrimSpace(msg.Data.Symbol))
	pxs := strings.TrimSpace(msg.Data.Price)
	if pair == "" || pxs == "" {
		return port.Tick{}, false
	}
	if !strings.HasSuffix(pair, quote) {
		return port.Tick{}, false
	}
	sym := strings.TrimSuffix(pair, quote)
	if sym == "" {
		return port.Tick{}, false
	}

	pxn, err := strconv.ParseFloat(pxs, 64)
	if err != nil || pxn <= 0 {
		return port.Tick{}, false
	}

	return port.Tick{
		Class:    model.ClassSpot,
		Symbol:   sym,
		PriceStr: pxs,
		PriceNum: pxn,
		Source:   model.SourceSpotTrade,
		Ts:       time.Now().UnixMilli(),
	}, true
}

func (f *TradeFeed) run(ctx context.Context, wsURL string, out chan<- port.Tick) {
	defer close(out)

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", f.Name()).Str("url", wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Msg("ws connected")

		err = readLoop(ctx, conn, func(b []byte) {
			t, ok := decodeTick(b, f.quote)
			if !ok {
				log.Debug().Str("feed", f.Name()).Msg("malformed trade message dropped")
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
