// Copyright (c) 2025 Kishore Bharat

package chaser

import (
	"github.com/kbharat/chasebot/exchange"
	"github.com/shopspring/decimal"
)

// Target computes the next price a chasing order should rest at, given a book
// snapshot. It scans the session's side of the book for the first level that
// is liquid enough (price*quantity strictly above minNotional) and strictly
// inside the limit price, falling back to the best level overall if that is
// still inside the limit. The returned price sits one tick inside the chosen
// reference level, rounded to the given precision.
//
// Returns false when nothing on the snapshot is chaseable; callers must treat
// that as a no-op cycle, not a failure.
func Target(book *exchange.Book, side exchange.Side, limit, minNotional decimal.Decimal, precision int32) (decimal.Decimal, bool) {
	inside := func(p decimal.Decimal) bool {
		if side == exchange.SideSell {
			return p.GreaterThan(limit)
		}
		return p.LessThan(limit)
	}

	candidate, found := decimal.Decimal{}, false
	for _, level := range book.Levels(side) {
		if level.Notional().LessThanOrEqual(minNotional) {
			continue
		}
		if inside(level.Price) {
			candidate, found = level.Price, true
			break
		}
	}
	if !found {
		if best, ok := book.Best(side); ok && inside(best.Price) {
			candidate, found = best.Price, true
		}
	}
	if !found {
		return decimal.Decimal{}, false
	}

	tick := decimal.New(1, -precision)
	if side == exchange.SideSell {
		return candidate.Sub(tick).Round(precision), true
	}
	return candidate.Add(tick).Round(precision), true
}
