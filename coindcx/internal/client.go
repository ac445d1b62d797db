// Copyright (c) 2025 Kishore Bharat

package internal

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

type Client struct {
	opts Options

	key, secret string

	client *http.Client

	limiter *rate.Limiter
}

func New(ctx context.Context, key, secret string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	if err := opts.Check(); err != nil {
		return nil, err
	}
	c := &Client{
		opts:   *opts,
		key:    key,
		secret: secret,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.MaxRequestsPerSecond), 1),
	}
	return c, nil
}

func (c *Client) Close() error {
	return nil
}

// GetOrderbook fetches the public order book snapshot for a pair name of the
// form "B-BTC_INR". No authentication is required.
func (c *Client) GetOrderbook(ctx context.Context, pair string) (*OrderbookResponse, error) {
	values := make(url.Values)
	values.Set("pair", pair)
	url := &url.URL{
		Scheme:   "https",
		Host:     c.opts.PublicHostname,
		Path:     "/market_data/orderbook",
		RawQuery: values.Encode(),
	}
	resp := new(OrderbookResponse)
	if err := getJSON(ctx, c, url, resp); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not fetch orderbook", "pair", pair, "err", err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	req.UnixMilli = time.Now().UnixMilli()
	url := &url.URL{
		Scheme: "https",
		Host:   c.opts.RestHostname,
		Path:   "/exchange/v1/orders/create",
	}
	resp := new(CreateOrderResponse)
	if err := postJSON(ctx, c, url, req, resp); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not create order", "market", req.Market, "side", req.Side, "err", err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) EditOrder(ctx context.Context, req *EditOrderRequest) (*OrderItem, error) {
	req.UnixMilli = time.Now().UnixMilli()
	url := &url.URL{
		Scheme: "https",
		Host:   c.opts.RestHostname,
		Path:   "/exchange/v1/orders/edit",
	}
	resp := new(OrderItem)
	if err := postJSON(ctx, c, url, req, resp); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not edit order", "order-id", req.ID, "err", err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderResponse, error) {
	req.UnixMilli = time.Now().UnixMilli()
	url := &url.URL{
		Scheme: "https",
		Host:   c.opts.RestHostname,
		Path:   "/exchange/v1/orders/cancel",
	}
	resp := new(CancelOrderResponse)
	if err := postJSON(ctx, c, url, req, resp); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not cancel order", "order-id", req.ID, "err", err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) ListMarketDetails(ctx context.Context) (ListMarketDetailsResponse, error) {
	url := &url.URL{
		Scheme: "https",
		Host:   c.opts.RestHostname,
		Path:   "/exchange/v1/markets_details",
	}
	var resp ListMarketDetailsResponse
	if err := getJSON(ctx, c, url, &resp); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not list market details", "err", err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetBalances(ctx context.Context) (GetBalancesResponse, error) {
	url := &url.URL{
		Scheme: "https",
		Host:   c.opts.RestHostname,
		Path:   "/exchange/v1/users/balances",
	}
	var resp GetBalancesResponse
	if err := postJSON(ctx, c, url, nil, &resp); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not retrieve user balances", "err", err)
		}
		return nil, err
	}
	return resp, nil
}

func getJSON[PT *T, T any](ctx context.Context, c *Client, url *url.URL, result PT) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("http GET was rate limited (retrying)", "url", url.String())
			return getJSON(ctx, c, url, result)
		}
		return fmt.Errorf("http GET returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("could not json-decode response: %w", err)
	}
	return nil
}

// postJSON performs a signed POST. The HMAC-SHA256 signature is computed over
// the exact serialized request body and sent in X-AUTH-SIGNATURE next to the
// X-AUTH-APIKEY header.
func postJSON[PT *T, T any](ctx context.Context, c *Client, url *url.URL, request any, resultPtr PT) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if request == nil {
		request = &AnySignedRequest{UnixMilli: time.Now().UnixMilli()}
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("could not json-encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}

	hash := hmac.New(sha256.New, []byte(c.secret))
	hash.Write(payload)

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("X-AUTH-APIKEY", c.key)
	req.Header.Add("X-AUTH-SIGNATURE", fmt.Sprintf("%x", hash.Sum(nil)))

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("http POST was rate limited (retrying)", "url", url.String())
			return postJSON(ctx, c, url, request, resultPtr)
		}
		data, _ := io.ReadAll(resp.Body)
		slog.Error("http POST is unsuccessful", "status", resp.StatusCode, "response", string(data))
		return fmt.Errorf("http POST returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(resultPtr); err != nil {
		return fmt.Errorf("could not json-decode response: %w", err)
	}
	return nil
}
