// Copyright (c) 2025 Kishore Bharat

package chaser

import (
	"fmt"
	"time"

	"github.com/kbharat/chasebot/exchange"
	"github.com/shopspring/decimal"
)

var (
	// Default liquidity filters, in quote currency, for levels worth chasing.
	DefaultBuyMinNotional  = decimal.NewFromInt(50)
	DefaultSellMinNotional = decimal.NewFromInt(200)
)

// Options control one chase session's loop. The zero value picks the
// defaults; MinNotional defaults depend on the session side.
type Options struct {
	// LoopDelay is the base sleep between repricing cycles.
	LoopDelay time.Duration

	// MinNotional filters out book levels whose price*quantity is at or
	// below this value when picking a reference level.
	MinNotional decimal.Decimal

	// NotifyInterval throttles user-visible status updates to at most one
	// per interval.
	NotifyInterval time.Duration

	// NoCancelOnStop leaves the resting order on the exchange when the
	// session is stopped.
	NoCancelOnStop bool

	// BackoffFloor and MaxBackoff bound the extra sleep added after
	// consecutive recoverable failures.
	BackoffFloor time.Duration
	MaxBackoff   time.Duration
}

func (v *Options) setDefaults(side exchange.Side) {
	if v.LoopDelay == 0 {
		v.LoopDelay = 2 * time.Second
	}
	if v.MinNotional.IsZero() {
		if side == exchange.SideSell {
			v.MinNotional = DefaultSellMinNotional
		} else {
			v.MinNotional = DefaultBuyMinNotional
		}
	}
	if v.NotifyInterval == 0 {
		v.NotifyInterval = 15 * time.Second
	}
	if v.BackoffFloor == 0 {
		v.BackoffFloor = time.Second
	}
	if v.MaxBackoff == 0 {
		v.MaxBackoff = 30 * time.Second
	}
}

func (v *Options) Check() error {
	if v.LoopDelay < 0 || v.NotifyInterval < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if v.MinNotional.IsNegative() {
		return fmt.Errorf("min-notional cannot be negative")
	}
	if v.BackoffFloor <= 0 || v.MaxBackoff < v.BackoffFloor {
		return fmt.Errorf("invalid backoff bounds [%s, %s]", v.BackoffFloor, v.MaxBackoff)
	}
	return nil
}
