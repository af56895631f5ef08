package port

import (
	"context"

	"pnlmon/internal/domain/model"
)

// TradesClient reads the authenticated user's trades from the backend.
type TradesClient interface {
	ListTrades(ctx context.Context, token string) ([]model.Position, error)
}
