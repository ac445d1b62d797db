// Copyright (c) 2025 Kishore Bharat

// Package pushover sends one-way push notifications through the Pushover
// service. It is an optional secondary notify channel next to Telegram.
package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type Keys struct {
	ApplicationKey string `json:"app_key"`
	UserKey        string `json:"user_key"`
}

func (v *Keys) Check() error {
	if len(v.ApplicationKey) == 0 || len(v.UserKey) == 0 {
		return fmt.Errorf("pushover application and user keys cannot be empty")
	}
	return nil
}

type Client struct {
	keys       Keys
	httpClient *http.Client
}

func New(keys *Keys) (*Client, error) {
	if err := keys.Check(); err != nil {
		return nil, err
	}
	c := &Client{
		keys:       *keys,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	return c, nil
}

func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	type Message struct {
		Token     string `json:"token"`
		User      string `json:"user"`
		Message   string `json:"message"`
		Timestamp int64  `json:"timestamp"`
	}
	m := &Message{
		Token:     c.keys.ApplicationKey,
		User:      c.keys.UserKey,
		Timestamp: at.Unix(),
		Message:   text,
	}
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(m); err != nil {
		return fmt.Errorf("could not json-encode message: %w", err)
	}

	u := &url.URL{
		Scheme: "https",
		Host:   "api.pushover.net",
		Path:   "/1/messages.json",
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform post request: %w", err)
	}
	defer resp.Body.Close()

	type Response struct {
		Status  int      `json:"status"`
		Request string   `json:"request"`
		Errors  []string `json:"errors"`
	}
	r := new(Response)
	if err := json.NewDecoder(resp.Body).Decode(r); err != nil {
		return fmt.Errorf("could not json-decode response for http-status %d: %w", resp.StatusCode, err)
	}
	if r.Status != 1 {
		if len(r.Errors) != 0 {
			return fmt.Errorf("send failed with http-status %d: %w", resp.StatusCode, errors.New(r.Errors[0]))
		}
		return fmt.Errorf("send failed with http-status %d and zero response-status", resp.StatusCode)
	}
	return nil
}
