// Copyright (c) 2025 Kishore Bharat

package chaser

import (
	"testing"

	"github.com/kbharat/chasebot/exchange"
	"github.com/shopspring/decimal"
)

func level(price, quantity float64) exchange.BookLevel {
	return exchange.BookLevel{
		Price:    decimal.NewFromFloat(price),
		Quantity: decimal.NewFromFloat(quantity),
	}
}

func TestTargetBuy(t *testing.T) {
	book := &exchange.Book{
		Bids: []exchange.BookLevel{
			level(99.90, 0.1), // notional 9.99, too thin
			level(99.50, 2),
			level(99.00, 5),
		},
	}
	limit := decimal.NewFromFloat(100)

	target, ok := Target(book, exchange.SideBuy, limit, DefaultBuyMinNotional, 2)
	if !ok {
		t.Fatalf("want a target, got none")
	}
	if want := decimal.NewFromFloat(99.51); !target.Equal(want) {
		t.Fatalf("want %s, got %s", want, target)
	}
	if !target.LessThan(limit) {
		t.Fatalf("buy target %s must be below the limit %s", target, limit)
	}
}

func TestTargetBuyThinBookFallback(t *testing.T) {
	book := &exchange.Book{
		Bids: []exchange.BookLevel{
			level(99.90, 0.1), // nothing passes the liquidity filter
		},
	}
	limit := decimal.NewFromFloat(100)

	target, ok := Target(book, exchange.SideBuy, limit, DefaultBuyMinNotional, 2)
	if !ok {
		t.Fatalf("want a fallback target, got none")
	}
	if want := decimal.NewFromFloat(99.91); !target.Equal(want) {
		t.Fatalf("want %s, got %s", want, target)
	}
}

func TestTargetBuyExactNotionalIsSkipped(t *testing.T) {
	book := &exchange.Book{
		Bids: []exchange.BookLevel{
			level(25, 2), // notional exactly 50, not strictly above
			level(20, 100),
		},
	}
	limit := decimal.NewFromFloat(100)

	target, ok := Target(book, exchange.SideBuy, limit, DefaultBuyMinNotional, 2)
	if !ok {
		t.Fatalf("want a target, got none")
	}
	if want := decimal.NewFromFloat(20.01); !target.Equal(want) {
		t.Fatalf("want %s, got %s", want, target)
	}
}

func TestTargetBuyNoCandidate(t *testing.T) {
	book := &exchange.Book{
		Bids: []exchange.BookLevel{
			level(100.50, 10),
			level(100.00, 10),
		},
	}
	limit := decimal.NewFromFloat(100)

	if target, ok := Target(book, exchange.SideBuy, limit, DefaultBuyMinNotional, 2); ok {
		t.Fatalf("want no target when all bids are at or above the limit, got %s", target)
	}
	if target, ok := Target(&exchange.Book{}, exchange.SideBuy, limit, DefaultBuyMinNotional, 2); ok {
		t.Fatalf("want no target on an empty book, got %s", target)
	}
}

func TestTargetSell(t *testing.T) {
	book := &exchange.Book{
		Asks: []exchange.BookLevel{
			level(50.5, 10),
			level(51, 10),
		},
	}
	limit := decimal.NewFromFloat(50)

	// With a whole-number tick the undercut price rounds back up to the
	// limit itself; the reference level is what must stay above the limit.
	target, ok := Target(book, exchange.SideSell, limit, DefaultSellMinNotional, 0)
	if !ok {
		t.Fatalf("want a target, got none")
	}
	if want := decimal.NewFromFloat(50); !target.Equal(want) {
		t.Fatalf("want %s, got %s", want, target)
	}
}

func TestTargetSellNoCandidate(t *testing.T) {
	book := &exchange.Book{
		Asks: []exchange.BookLevel{
			level(49.5, 10),
			level(50, 10),
		},
	}
	limit := decimal.NewFromFloat(50)

	if target, ok := Target(book, exchange.SideSell, limit, DefaultSellMinNotional, 0); ok {
		t.Fatalf("want no target when all asks are at or below the limit, got %s", target)
	}
}

func TestTargetIsDeterministic(t *testing.T) {
	book := &exchange.Book{
		Bids: []exchange.BookLevel{
			level(99.50, 2),
		},
	}
	limit := decimal.NewFromFloat(100)

	a, ok1 := Target(book, exchange.SideBuy, limit, DefaultBuyMinNotional, 2)
	b, ok2 := Target(book, exchange.SideBuy, limit, DefaultBuyMinNotional, 2)
	if ok1 != ok2 || !a.Equal(b) {
		t.Fatalf("same snapshot must pick the same target: got %s and %s", a, b)
	}
}
