// Copyright (c) 2025 Kishore Bharat

package chaser

import (
	"testing"

	"github.com/kbharat/chasebot/exchange"
	"github.com/shopspring/decimal"
)

func TestIntentCheck(t *testing.T) {
	if err := buyIntent().Check(); err != nil {
		t.Fatal(err)
	}

	v := buyIntent()
	v.Quantity = decimal.NewFromInt(1) // both sizings set
	if err := v.Check(); err == nil {
		t.Fatalf("want an error when both quote and quantity are set")
	}

	v = buyIntent()
	v.Quote = decimal.Zero
	if err := v.Check(); err == nil {
		t.Fatalf("want an error when no sizing is set")
	}

	v = buyIntent()
	v.Side = exchange.SideSell
	v.Quote = decimal.Zero
	v.Quantity = decimal.NewFromInt(1)
	if err := v.Check(); err != nil {
		t.Fatal(err)
	}

	v.Side = exchange.SideBuy
	if err := v.Check(); err == nil {
		t.Fatalf("want an error for a quantity-sized buy")
	}

	v = buyIntent()
	v.Precision = 11
	if err := v.Check(); err == nil {
		t.Fatalf("want an error for an out-of-range precision")
	}
}

func TestQuantityAt(t *testing.T) {
	v := &Intent{
		Side:       exchange.SideBuy,
		Coin:       "BTC",
		LimitPrice: decimal.NewFromInt(100),
		Precision:  2,
		Quote:      decimal.NewFromInt(1000),
	}
	price := decimal.NewFromFloat(99.51)
	want := decimal.NewFromInt(1000).Div(price).Round(8)
	if got := v.QuantityAt(price); !got.Equal(want) {
		t.Fatalf("want %s, got %s", want, got)
	}

	v.Quote = decimal.Zero
	v.Quantity = decimal.NewFromFloat(1.25)
	if got := v.QuantityAt(price); !got.Equal(v.Quantity) {
		t.Fatalf("fixed quantity must be passed through, got %s", got)
	}
}

func TestTickSize(t *testing.T) {
	v := &Intent{Precision: 2}
	if want := decimal.NewFromFloat(0.01); !v.TickSize().Equal(want) {
		t.Fatalf("want %s, got %s", want, v.TickSize())
	}
	v.Precision = 0
	if want := decimal.NewFromInt(1); !v.TickSize().Equal(want) {
		t.Fatalf("want %s, got %s", want, v.TickSize())
	}
}
