// Copyright (c) 2025 Kishore Bharat

package exchange

import "github.com/shopspring/decimal"

// BookLevel is one resting price level of an order book snapshot.
type BookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Notional returns price*quantity, the liquidity-significance value of the
// level.
func (l BookLevel) Notional() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}

// Book is a normalized order book snapshot. Adapters must return bids sorted
// highest price first and asks sorted lowest price first, regardless of the
// wire payload shape.
type Book struct {
	Bids []BookLevel
	Asks []BookLevel
}

// Levels returns the side of the book a chasing order of the given side rests
// on: bids for buys, asks for sells.
func (b *Book) Levels(side Side) []BookLevel {
	if side == SideSell {
		return b.Asks
	}
	return b.Bids
}

// Best returns the top level for the given side, best-priced first per the
// sort order above. Returns false on an empty side.
func (b *Book) Best(side Side) (BookLevel, bool) {
	levels := b.Levels(side)
	if len(levels) == 0 {
		return BookLevel{}, false
	}
	return levels[0], true
}
