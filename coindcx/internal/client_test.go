// Copyright (c) 2025 Kishore Bharat

package internal

import (
	"context"
	"encoding/json"
	"os"
	"testing"
)

var (
	testingKey    string
	testingSecret string
)

func checkCredentials() bool {
	type Credentials struct {
		Key    string
		Secret string
	}
	if len(testingKey) != 0 && len(testingSecret) != 0 {
		return true
	}
	data, err := os.ReadFile("coindcx-creds.json")
	if err != nil {
		return false
	}
	s := new(Credentials)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	testingKey = s.Key
	testingSecret = s.Secret
	return len(testingKey) != 0 && len(testingSecret) != 0
}

func TestClient(t *testing.T) {
	if !checkCredentials() {
		t.Skip("no credentials")
		return
	}

	ctx := context.Background()

	c, err := New(ctx, testingKey, testingSecret, nil /* opts */)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}
	}()

	book, err := c.GetOrderbook(ctx, "B-BTC_INR")
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		t.Fatalf("want a non-empty order book, got %d bids and %d asks", len(book.Bids), len(book.Asks))
	}

	markets, err := c.ListMarketDetails(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("%d markets", len(markets))

	balances, err := c.GetBalances(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("%d balances", len(balances))
}
