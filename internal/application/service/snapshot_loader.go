package service

import (
	"context"

	"pnlmon/internal/application/port"
	"pnlmon/internal/domain/model"
)

// SnapshotLoader fetches the authoritative position snapshot for the current
// session. It never mutates positions; the backend owns their lifecycle.
type SnapshotLoader struct {
	client  port.TradesClient
	session port.SessionSource
}

func NewSnapshotLoader(client port.TradesClient, session port.SessionSource) *SnapshotLoader {
	return &SnapshotLoader{client: client, session: session}
}

// Refresh returns the user's OPEN and PARTIALLY_CLOSED positions. Without an
// active session it returns an empty list and no error, and makes no request.
// Symbols are normalized to canonical form here so every downstream lookup
// (held-set filtering, price-map reads) matches the feeds' keys.
func (l *SnapshotLoader) Refresh(ctx context.Context) ([]model.Position, error) {
	sess, ok := l.session.Current()
	if !ok {
		return nil, nil
	}

	trades, err := l.client.ListTrades(ctx, sess.Token)
	if err != nil {
		return nil, err
	}

	open := make([]model.Position, 0, len(trades))
	for _, t := range trades {
		if !t.IsOpen() {
			continue
		}
		t.Symbol = model.NormalizeSymbol(t.Symbol)
		open = append(open, t)
	}
	return open, nil
}
