// Copyright (c) 2025 Kishore Bharat

// Package coindcx adapts the CoinDCX exchange to the interfaces in the
// exchange package. All chasing is done against INR markets: a coin symbol
// like "BTC" maps to the "BTCINR" market and the "B-BTC_INR" public pair.
package coindcx

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kbharat/chasebot/coindcx/internal"
	"github.com/kbharat/chasebot/exchange"
	"github.com/shopspring/decimal"
)

const QuoteCurrency = "INR"

type Credentials struct {
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

func (v *Credentials) Check() error {
	if len(v.Key) == 0 || len(v.Secret) == 0 {
		return fmt.Errorf("api key and secret cannot be empty")
	}
	return nil
}

type Options struct {
	internal.Options
}

type Exchange struct {
	client *internal.Client
}

var _ exchange.OrderBookSource = (*Exchange)(nil)
var _ exchange.OrderGateway = (*Exchange)(nil)

func New(ctx context.Context, creds *Credentials, opts *Options) (*Exchange, error) {
	if err := creds.Check(); err != nil {
		return nil, err
	}
	var iopts *internal.Options
	if opts != nil {
		iopts = &opts.Options
	}
	client, err := internal.New(ctx, creds.Key, creds.Secret, iopts)
	if err != nil {
		return nil, err
	}
	return &Exchange{client: client}, nil
}

func (x *Exchange) Close() error {
	return x.client.Close()
}

func marketName(coin string) string {
	return strings.ToUpper(coin) + QuoteCurrency
}

func pairName(coin string) string {
	return "B-" + strings.ToUpper(coin) + "_" + QuoteCurrency
}

// FetchBook returns a normalized snapshot of the coin's INR order book. The
// wire payload maps price strings to quantities with no defined order; levels
// are sorted here so that index zero is always the best price.
func (x *Exchange) FetchBook(ctx context.Context, coin string) (*exchange.Book, error) {
	resp, err := x.client.GetOrderbook(ctx, pairName(coin))
	if err != nil {
		return nil, err
	}

	return newBook(resp), nil
}

func newBook(resp *internal.OrderbookResponse) *exchange.Book {
	book := &exchange.Book{
		Bids: parseLevels(resp.Bids),
		Asks: parseLevels(resp.Asks),
	}
	sort.Slice(book.Bids, func(i, j int) bool {
		return book.Bids[i].Price.GreaterThan(book.Bids[j].Price)
	})
	sort.Slice(book.Asks, func(i, j int) bool {
		return book.Asks[i].Price.LessThan(book.Asks[j].Price)
	})
	return book
}

func parseLevels(side map[string]decimal.Decimal) []exchange.BookLevel {
	levels := make([]exchange.BookLevel, 0, len(side))
	for price, quantity := range side {
		p, err := decimal.NewFromString(price)
		if err != nil {
			// Unparseable keys are skipped, not fatal; the rest of the
			// snapshot is still usable.
			continue
		}
		levels = append(levels, exchange.BookLevel{Price: p, Quantity: quantity})
	}
	return levels
}

func (x *Exchange) CreateOrder(ctx context.Context, clientOrderID string, side exchange.Side, coin string, price, quantity decimal.Decimal) (exchange.OrderID, error) {
	req := &internal.CreateOrderRequest{
		Side:          string(side),
		Market:        marketName(coin),
		PricePerUnit:  price,
		TotalQuantity: quantity,
		OrderType:     "limit_order",
		ClientOrderID: clientOrderID,
	}
	resp, err := x.client.CreateOrder(ctx, req)
	if err != nil {
		return "", err
	}
	id := resp.OrderID()
	if id == "" {
		return "", fmt.Errorf("create order response carries no order id")
	}
	return exchange.OrderID(id), nil
}

func (x *Exchange) EditOrder(ctx context.Context, id exchange.OrderID, price decimal.Decimal) error {
	req := &internal.EditOrderRequest{
		ID:           string(id),
		PricePerUnit: price,
	}
	if _, err := x.client.EditOrder(ctx, req); err != nil {
		return err
	}
	return nil
}

func (x *Exchange) CancelOrder(ctx context.Context, id exchange.OrderID) error {
	req := &internal.CancelOrderRequest{
		ID: string(id),
	}
	if _, err := x.client.CancelOrder(ctx, req); err != nil {
		return err
	}
	return nil
}

// ResolveMarket confirms the coin has an active INR market and returns its
// details. Used to reject misconfigured coins before a session is created.
func (x *Exchange) ResolveMarket(ctx context.Context, coin string) (*internal.MarketDetailsItem, error) {
	items, err := x.client.ListMarketDetails(ctx)
	if err != nil {
		return nil, err
	}
	name := marketName(coin)
	for _, item := range items {
		if item.Name != name {
			continue
		}
		if err := item.Check(); err != nil {
			return nil, err
		}
		if item.Status != "active" {
			return nil, fmt.Errorf("market %q is not active: %w", name, os.ErrInvalid)
		}
		return item, nil
	}
	return nil, fmt.Errorf("no INR market for coin %q: %w", coin, os.ErrNotExist)
}

// Balance is one currency's funds split into free and locked amounts.
type Balance struct {
	Currency string
	Free     decimal.Decimal
	Locked   decimal.Decimal
}

func (x *Exchange) GetBalances(ctx context.Context) ([]*Balance, error) {
	resp, err := x.client.GetBalances(ctx)
	if err != nil {
		return nil, err
	}
	var balances []*Balance
	for _, b := range resp {
		balances = append(balances, &Balance{
			Currency: b.CurrencyID,
			Free:     b.Balance,
			Locked:   b.LockedBalance,
		})
	}
	return balances, nil
}
