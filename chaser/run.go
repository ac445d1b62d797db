// Copyright (c) 2025 Kishore Bharat

package chaser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kbharat/chasebot/ctxutil"
	"github.com/kbharat/chasebot/exchange"
	"github.com/shopspring/decimal"
)

// Extra sleep after an internal panic is allowed to grow past MaxBackoff.
const maxPanicBackoff = time.Minute

// NotifyFunc delivers a fire-and-forget status update to a session owner.
// Failures are logged by the caller and never fail a cycle.
type NotifyFunc func(ctx context.Context, ownerID, text string) error

// Runtime bundles the collaborators a session runner needs. The same Runtime
// is shared by all sessions; implementations must be safe for concurrent use.
type Runtime struct {
	Books  exchange.OrderBookSource
	Orders exchange.OrderGateway
	Notify NotifyFunc
}

func (rt *Runtime) Check() error {
	if rt.Books == nil || rt.Orders == nil {
		return fmt.Errorf("runtime book source and order gateway are required")
	}
	return nil
}

// run drives the session until a stop is requested or the context is
// canceled. Every failure inside a cycle is absorbed; only the stop flag and
// context cancellation end the loop.
func (s *Session) run(ctx context.Context, rt *Runtime) {
	slog.Info("chase session started", "session", s, "side", s.intent.Side,
		"coin", s.intent.Coin, "limit", s.intent.LimitPrice, "precision", s.intent.Precision)

	s.backoff = s.opts.BackoffFloor
	for !s.stopRequested() && context.Cause(ctx) == nil {
		delay := s.cycle(ctx, rt)
		ctxutil.Sleep(ctx, delay)
	}
	s.finish(rt)
}

// cycle runs one fetch/select/reprice pass and returns the sleep before the
// next one. A panic inside the pass is treated as one more recoverable
// failure so that a user-initiated stop stays the only termination path.
func (s *Session) cycle(ctx context.Context, rt *Runtime) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("chase cycle panicked (session continues)", "session", s, "panic", r)
			s.backoff = min(2*s.backoff, maxPanicBackoff)
			delay = s.opts.LoopDelay + s.backoff
		}
	}()

	book, err := rt.Books.FetchBook(ctx, s.intent.Coin)
	if err != nil {
		slog.Warn("could not fetch order book (will retry)", "session", s, "coin", s.intent.Coin, "err", err)
		return s.failureDelay()
	}

	target, ok := Target(book, s.intent.Side, s.intent.LimitPrice, s.opts.MinNotional, s.intent.Precision)
	if !ok {
		// Nothing chaseable on this snapshot; deliberate no-op.
		return s.opts.LoopDelay
	}

	id := s.orderID()
	if id == "" {
		return s.createOrder(ctx, rt, target)
	}
	if target.Equal(s.lastPrice) {
		return s.opts.LoopDelay
	}
	if err := rt.Orders.EditOrder(ctx, id, target); err != nil {
		// The resting order may or may not have survived the failed edit.
		// Drop the id and let the next cycle re-create; a short-lived
		// duplicate is self-correcting, a silently dead order is not.
		slog.Warn("could not edit resting order (will re-create)", "session", s, "order-id", id, "err", err)
		s.setOrderID("")
		return s.failureDelay()
	}
	s.lastPrice = target
	s.backoff = s.opts.BackoffFloor
	s.maybeNotify(ctx, rt, target)
	return s.opts.LoopDelay
}

func (s *Session) createOrder(ctx context.Context, rt *Runtime, target decimal.Decimal) time.Duration {
	quantity := s.intent.QuantityAt(target)
	clientOrderID := s.idgen.NextID().String()

	id, err := rt.Orders.CreateOrder(ctx, clientOrderID, s.intent.Side, s.intent.Coin, target, quantity)
	if err != nil {
		slog.Warn("could not create limit order (will retry)", "session", s,
			"price", target, "quantity", quantity, "client-order-id", clientOrderID, "err", err)
		return s.failureDelay()
	}
	slog.Info("created limit order", "session", s, "order-id", id, "price", target, "quantity", quantity)
	s.setOrderID(id)
	s.lastPrice = target
	s.backoff = s.opts.BackoffFloor
	s.maybeNotify(ctx, rt, target)
	return s.opts.LoopDelay
}

// failureDelay grows the backoff by 1.5x up to MaxBackoff and returns the
// padded inter-cycle sleep.
func (s *Session) failureDelay() time.Duration {
	s.backoff = min(time.Duration(float64(s.backoff)*1.5), s.opts.MaxBackoff)
	return s.opts.LoopDelay + s.backoff
}

func (s *Session) maybeNotify(ctx context.Context, rt *Runtime, price decimal.Decimal) {
	if rt.Notify == nil {
		return
	}
	now := time.Now()
	if now.Sub(s.lastNotifyAt) < s.opts.NotifyInterval {
		return
	}
	s.lastNotifyAt = now

	text := fmt.Sprintf("session %d: %s %s order repriced to %s",
		s.id, s.intent.Coin, s.intent.Side, price.StringFixed(s.intent.Precision))
	if err := rt.Notify(ctx, s.owner, text); err != nil {
		slog.Warn("could not notify session owner (ignored)", "session", s, "err", err)
	}
}

// finish cancels the resting order, if any and unless disabled, after the
// loop has exited. Cancellation is best effort; the context driving the loop
// may already be gone, so a fresh one is used.
func (s *Session) finish(rt *Runtime) {
	if id := s.orderID(); id != "" && !s.opts.NoCancelOnStop {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := rt.Orders.CancelOrder(ctx, id); err != nil {
			slog.Warn("could not cancel resting order on stop (ignored)", "session", s, "order-id", id, "err", err)
		} else {
			s.setOrderID("")
		}
	}
	slog.Info("chase session stopped", "session", s)
}
