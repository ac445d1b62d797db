// Copyright (c) 2025 Kishore Bharat

package coindcx

import (
	"testing"

	"github.com/kbharat/chasebot/coindcx/internal"
	"github.com/shopspring/decimal"
)

func TestNewBook(t *testing.T) {
	resp := &internal.OrderbookResponse{
		Bids: map[string]decimal.Decimal{
			"99.50":   decimal.NewFromInt(2),
			"99.90":   decimal.NewFromInt(1),
			"99.00":   decimal.NewFromInt(5),
			"garbage": decimal.NewFromInt(1),
		},
		Asks: map[string]decimal.Decimal{
			"100.10": decimal.NewFromInt(3),
			"100.05": decimal.NewFromInt(1),
		},
	}

	book := newBook(resp)
	if len(book.Bids) != 3 {
		t.Fatalf("want 3 bids with the bad key dropped, got %d", len(book.Bids))
	}
	for i := 1; i < len(book.Bids); i++ {
		if !book.Bids[i-1].Price.GreaterThan(book.Bids[i].Price) {
			t.Fatalf("bids must be sorted best first: %s before %s",
				book.Bids[i-1].Price, book.Bids[i].Price)
		}
	}
	if want := decimal.NewFromFloat(99.90); !book.Bids[0].Price.Equal(want) {
		t.Fatalf("want best bid %s, got %s", want, book.Bids[0].Price)
	}
	if want := decimal.NewFromFloat(100.05); !book.Asks[0].Price.Equal(want) {
		t.Fatalf("want best ask %s, got %s", want, book.Asks[0].Price)
	}
}

func TestMarketNames(t *testing.T) {
	if v := marketName("btc"); v != "BTCINR" {
		t.Fatalf("want BTCINR, got %s", v)
	}
	if v := pairName("btc"); v != "B-BTC_INR" {
		t.Fatalf("want B-BTC_INR, got %s", v)
	}
}
