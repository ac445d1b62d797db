// Copyright (c) 2025 Kishore Bharat

package internal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AnySignedRequest is the minimal body for signed endpoints that need no
// other parameters. Every signed request carries a millisecond timestamp.
type AnySignedRequest struct {
	UnixMilli int64 `json:"timestamp"`
}

/*
	{
	  "bids": { "18000.01": "0.4512", "17999.00": "1.2" },
	  "asks": { "18005.50": "0.21" }
	}
*/
type OrderbookResponse struct {
	Bids map[string]decimal.Decimal `json:"bids"`
	Asks map[string]decimal.Decimal `json:"asks"`
}

type CreateOrderRequest struct {
	UnixMilli     int64           `json:"timestamp"`
	Side          string          `json:"side"`
	Market        string          `json:"market"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	OrderType     string          `json:"order_type"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
}

type EditOrderRequest struct {
	UnixMilli    int64           `json:"timestamp"`
	ID           string          `json:"id"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

type CancelOrderRequest struct {
	UnixMilli int64  `json:"timestamp"`
	ID        string `json:"id"`
}

type OrderItem struct {
	ID            string          `json:"id"`
	ClientOrderID string          `json:"client_order_id"`
	Market        string          `json:"market"`
	Side          string          `json:"side"`
	Status        string          `json:"status"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

// CreateOrderResponse covers both observed response shapes: a bare order
// object and an "orders" array wrapper.
type CreateOrderResponse struct {
	ID     string       `json:"id"`
	Orders []*OrderItem `json:"orders"`
}

// OrderID returns the exchange-assigned id from whichever field carries it,
// or an empty string if the response has none.
func (v *CreateOrderResponse) OrderID() string {
	if v.ID != "" {
		return v.ID
	}
	if len(v.Orders) != 0 {
		return v.Orders[0].ID
	}
	return ""
}

type CancelOrderResponse struct {
	Message string `json:"message"`
}

type ListMarketDetailsResponse []*MarketDetailsItem

/*
	{
	  "coindcx_name": "BTCINR",
	  "base_currency_short_name": "INR",
	  "target_currency_short_name": "BTC",
	  "min_notional": 100,
	  "base_currency_precision": 2,
	  "target_currency_precision": 5,
	  "pair": "B-BTC_INR",
	  "status": "active"
	}
*/
type MarketDetailsItem struct {
	Name string `json:"coindcx_name"`

	BaseID   string `json:"base_currency_short_name"`
	TargetID string `json:"target_currency_short_name"`

	MinQuantity decimal.Decimal `json:"min_quantity"`
	MaxQuantity decimal.Decimal `json:"max_quantity"`
	MinNotional decimal.Decimal `json:"min_notional"`

	BasePrecision   int32 `json:"base_currency_precision"`
	TargetPrecision int32 `json:"target_currency_precision"`

	Pair   string `json:"pair"`
	Status string `json:"status"`
}

// Check *MUST* validate all fields we depend on elsewhere.
func (v *MarketDetailsItem) Check() error {
	if v.Name == "" {
		return fmt.Errorf("market name cannot be empty")
	}
	if v.Pair == "" {
		return fmt.Errorf("market pair cannot be empty")
	}
	return nil
}

type GetBalancesResponse []*UserBalance

type UserBalance struct {
	CurrencyID    string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"locked_balance"`
}
