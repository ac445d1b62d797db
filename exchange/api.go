// Copyright (c) 2025 Kishore Bharat

// Package exchange defines the minimal exchange surface the chasing engine
// runs against. Adapters for a concrete exchange (see the coindcx package)
// implement these interfaces; the engine itself never talks to the wire.
package exchange

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Side identifies which half of the order book an order rests on.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Check() error {
	if s != SideBuy && s != SideSell {
		return fmt.Errorf("invalid order side %q", string(s))
	}
	return nil
}

// OrderID is the exchange-assigned identifier for a resting order.
type OrderID string

// OrderBookSource fetches point-in-time order book snapshots. Implementations
// must be safe for concurrent use; snapshots are never retained across cycles.
type OrderBookSource interface {
	FetchBook(ctx context.Context, coin string) (*Book, error)
}

// OrderGateway places, reprices and cancels limit orders through signed
// requests. A failed call leaves the remote order state unknown; callers are
// expected to reconcile by re-creating rather than assuming liveness.
type OrderGateway interface {
	CreateOrder(ctx context.Context, clientOrderID string, side Side, coin string, price, quantity decimal.Decimal) (OrderID, error)
	EditOrder(ctx context.Context, id OrderID, price decimal.Decimal) error
	CancelOrder(ctx context.Context, id OrderID) error
}
