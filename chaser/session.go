// Copyright (c) 2025 Kishore Bharat

// Package chaser implements continuous limit-order chasing sessions: each
// session keeps one resting limit order positioned just inside the best
// qualifying level on its side of the book, repricing it as the market moves,
// until the owner stops it.
package chaser

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbharat/chasebot/exchange"
	"github.com/kbharat/chasebot/idgen"
	"github.com/shopspring/decimal"
)

// Intent is the immutable part of a session request. Exactly one of Quote or
// Quantity sizes the order: a Quote budget has quantity recomputed from the
// target price on every create, a fixed Quantity is sent as-is. Buy sessions
// must be sized by Quote.
type Intent struct {
	Side exchange.Side

	// Coin is the base asset symbol, e.g. "BTC"; the quote currency is
	// fixed by the exchange adapter.
	Coin string

	// LimitPrice is the boundary the session never crosses: reference
	// levels for a buy are strictly below it, for a sell strictly above.
	LimitPrice decimal.Decimal

	// Precision is the number of decimal places for price rounding; the
	// tick size is 10^-Precision.
	Precision int32

	Quote    decimal.Decimal
	Quantity decimal.Decimal
}

func (v *Intent) Check() error {
	if err := v.Side.Check(); err != nil {
		return err
	}
	if len(v.Coin) == 0 {
		return fmt.Errorf("coin symbol cannot be empty")
	}
	if !v.LimitPrice.IsPositive() {
		return fmt.Errorf("limit price must be positive")
	}
	if v.Precision < 0 || v.Precision > 10 {
		return fmt.Errorf("precision %d is out of range [0, 10]", v.Precision)
	}
	if v.Quote.IsNegative() || v.Quantity.IsNegative() {
		return fmt.Errorf("order size cannot be negative")
	}
	if v.Quote.IsZero() == v.Quantity.IsZero() {
		return fmt.Errorf("exactly one of quote budget or base quantity must be set")
	}
	if v.Side == exchange.SideBuy && v.Quote.IsZero() {
		return fmt.Errorf("buy sessions must be sized by a quote budget")
	}
	return nil
}

// TickSize returns 10^-Precision.
func (v *Intent) TickSize() decimal.Decimal {
	return decimal.New(1, -v.Precision)
}

// QuantityAt returns the order quantity for a create at the given price.
// Quote-sized intents divide the budget by the price, rounded to
// Precision+6 decimal places.
func (v *Intent) QuantityAt(price decimal.Decimal) decimal.Decimal {
	if !v.Quote.IsZero() {
		return v.Quote.Div(price).Round(v.Precision + 6)
	}
	return v.Quantity
}

// Session is one continuous chasing task. Runtime fields below the mutex are
// written only by the session's own runner; the mutex exists so that summary
// reads from other goroutines see a consistent resting order id.
type Session struct {
	id    int64
	owner string

	intent Intent
	opts   Options

	idgen *idgen.Generator

	stop atomic.Bool

	mu             sync.Mutex
	restingOrderID exchange.OrderID

	// Owned exclusively by the runner task.
	backoff      time.Duration
	lastPrice    decimal.Decimal
	lastNotifyAt time.Time
}

// Summary is a point-in-time copy of a session's externally visible state.
type Summary struct {
	ID      int64
	OwnerID string

	Side       exchange.Side
	Coin       string
	LimitPrice decimal.Decimal
	Precision  int32

	RestingOrderID exchange.OrderID
}

func (s *Session) String() string {
	return fmt.Sprintf("chase/%s/%d", s.owner, s.id)
}

func (s *Session) ID() int64 {
	return s.id
}

func (s *Session) OwnerID() string {
	return s.owner
}

func (s *Session) Summary() *Summary {
	return &Summary{
		ID:             s.id,
		OwnerID:        s.owner,
		Side:           s.intent.Side,
		Coin:           s.intent.Coin,
		LimitPrice:     s.intent.LimitPrice,
		Precision:      s.intent.Precision,
		RestingOrderID: s.orderID(),
	}
}

// SignalStop requests the session to stop. The flag is one-way and the call
// is idempotent; the runner observes it at the top of its next cycle.
func (s *Session) SignalStop() {
	s.stop.Store(true)
}

func (s *Session) stopRequested() bool {
	return s.stop.Load()
}

func (s *Session) orderID() exchange.OrderID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restingOrderID
}

func (s *Session) setOrderID(id exchange.OrderID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restingOrderID = id
}
