package deriv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pnlmon/internal/domain/model"

	"github.com/gorilla/websocket"
)

func TestDecodeTickMarkPrice(t *testing.T) {
	msg := []byte(`{"type":"v2/ticker","symbol":"BTC","close":44900,"mark_price":"45000.5"}`)

	tick, ok := decodeTick(msg, model.ClassFutures)
	if !ok {
		t.Fatalf("expected valid tick")
	}
	if tick.Symbol != "BTC" {
		t.Errorf("expected symbol BTC, got %q", tick.Symbol)
	}
	if tick.PriceNum != 45000.5 {
		t.Errorf("mark_price must win over close, got %v", tick.PriceNum)
	}
	if tick.Class != model.ClassFutures {
		t.Errorf("expected FUTURES class, got %v", tick.Class)
	}
	if tick.Source != model.SourceDerivativeMark {
		t.Errorf("expected DERIVATIVE_MARK source, got %v", tick.Source)
	}
}

func TestDecodeTickCloseFallback(t *testing.T) {
	cases := []struct {
		name string
		msg  string
	}{
		{"missing mark_price", `{"type":"v2/ticker","symbol":"ETH","close":"2000.25"}`},
		{"zero mark_price", `{"type":"v2/ticker","symbol":"ETH","close":"2000.25","mark_price":"0"}`},
		{"zero decimal mark_price", `{"type":"v2/ticker","symbol":"ETH","close":"2000.25","mark_price":"0.00"}`},
		{"unparsable mark_price", `{"type":"v2/ticker","symbol":"ETH","close":"2000.25","mark_price":"n/a"}`},
	}
	for _, c := range cases {
		tick, ok := decodeTick([]byte(c.msg), model.ClassOptions)
		if !ok {
			t.Errorf("%s: expected valid tick", c.name)
			continue
		}
		if tick.PriceNum != 2000.25 {
			t.Errorf("%s: expected close fallback 2000.25, got %v", c.name, tick.PriceNum)
		}
	}
}

func TestDecodeTickIgnoresAcksAndMalformed(t *testing.T) {
	cases := []string{
		`not json`,
		`{"type":"subscriptions","channels":[{"name":"v2/ticker"}]}`, // ack frame
		`{"type":"v2/ticker","close":"2000"}`,                        // no symbol
		`{"type":"v2/ticker","symbol":"BTC"}`,                        // no price
		`{"type":"v2/ticker","symbol":"BTC","close":"-5"}`,           // non-positive
	}
	for _, c := range cases {
		if _, ok := decodeTick([]byte(c), model.ClassFutures); ok {
			t.Errorf("expected %s to be rejected", c)
		}
	}
}

// Teardown must close the tick channel cleanly even when the consumer is not
// draining and the venue keeps flooding frames.
func TestSubscribeTeardownUnderLoad(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil { // subscribe frame
			return
		}
		frame := []byte(`{"type":"v2/ticker","symbol":"BTC","mark_price":"45000.5"}`)
		for {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	feed := NewTickerFeed("ws"+strings.TrimPrefix(srv.URL, "http"), model.ClassFutures)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, []string{"BTC"})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// let the buffer fill, then cancel without draining
	time.Sleep(300 * time.Millisecond)
	cancel()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("tick channel not closed after cancel")
		}
	}
}
