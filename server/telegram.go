// Copyright (c) 2025 Kishore Bharat

package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kbharat/chasebot/chaser"
	"github.com/kbharat/chasebot/exchange"
	"github.com/kbharat/chasebot/telegram"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

var (
	// Notional investment and per-side taker fee assumed by the profit
	// estimate command.
	profitInvestment = decimal.NewFromInt(1000)
	profitFeeRate    = decimal.NewFromFloat(0.001)
)

func (s *Server) registerTelegramCommands(ctx context.Context) error {
	type command struct {
		name    string
		purpose string
		handler telegram.CmdFunc
	}
	cmds := []command{
		{"buy", "Chase a limit buy: /buy COIN LIMIT AMOUNT PRECISION [once|chase]", s.buyTelegramCmd},
		{"sell", "Chase a limit sell: /sell COIN LIMIT QTY|inr:AMOUNT PRECISION [once|chase]", s.sellTelegramCmd},
		{"sessions", "Lists your active chase sessions", s.sessionsTelegramCmd},
		{"stop", "Stops one chase session: /stop ID", s.stopTelegramCmd},
		{"stopall", "Stops all your chase sessions", s.stopAllTelegramCmd},
		{"profit", "Estimates round-trip spread profit: /profit COIN", s.profitTelegramCmd},
		{"balances", "Lists your non-zero exchange balances", s.balancesTelegramCmd},
	}
	for _, c := range cmds {
		if err := s.AddTelegramCommand(ctx, c.name, c.purpose, c.handler); err != nil {
			return err
		}
	}
	return nil
}

func parsePrecision(arg string) (int32, error) {
	p, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid precision %q: %w", arg, err)
	}
	return int32(p), nil
}

// parseMode interprets the optional trailing argument; chasing is the
// default.
func parseMode(args []string) (once bool, _ error) {
	if len(args) == 0 {
		return false, nil
	}
	switch strings.ToLower(args[0]) {
	case "once":
		return true, nil
	case "chase":
		return false, nil
	}
	return false, fmt.Errorf("invalid mode %q: want once or chase", args[0])
}

func (s *Server) buyTelegramCmd(ctx context.Context, args []string) error {
	if len(args) < 4 || len(args) > 5 {
		return fmt.Errorf("usage: /buy COIN LIMIT AMOUNT PRECISION [once|chase]")
	}
	coin := strings.ToUpper(args[0])
	limit, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid limit price %q: %w", args[1], err)
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid quote amount %q: %w", args[2], err)
	}
	precision, err := parsePrecision(args[3])
	if err != nil {
		return err
	}
	once, err := parseMode(args[4:])
	if err != nil {
		return err
	}

	intent := &chaser.Intent{
		Side:       exchange.SideBuy,
		Coin:       coin,
		LimitPrice: limit,
		Precision:  precision,
		Quote:      amount,
	}
	if once {
		return s.placeOnce(ctx, intent)
	}
	return s.startSession(ctx, intent)
}

func (s *Server) sellTelegramCmd(ctx context.Context, args []string) error {
	if len(args) < 4 || len(args) > 5 {
		return fmt.Errorf("usage: /sell COIN LIMIT QTY|inr:AMOUNT PRECISION [once|chase]")
	}
	coin := strings.ToUpper(args[0])
	limit, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid limit price %q: %w", args[1], err)
	}
	precision, err := parsePrecision(args[3])
	if err != nil {
		return err
	}
	once, err := parseMode(args[4:])
	if err != nil {
		return err
	}

	intent := &chaser.Intent{
		Side:       exchange.SideSell,
		Coin:       coin,
		LimitPrice: limit,
		Precision:  precision,
	}
	// Sells are sized either by a base quantity or, with the "inr:" prefix,
	// by a quote budget converted at the target price.
	if amount, ok := strings.CutPrefix(strings.ToLower(args[2]), "inr:"); ok {
		quote, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid quote amount %q: %w", args[2], err)
		}
		intent.Quote = quote
	} else {
		quantity, err := decimal.NewFromString(args[2])
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", args[2], err)
		}
		intent.Quantity = quantity
	}
	if once {
		return s.placeOnce(ctx, intent)
	}
	return s.startSession(ctx, intent)
}

func (s *Server) startSession(ctx context.Context, intent *chaser.Intent) error {
	owner := telegram.Sender(ctx)
	if _, err := s.exchange.ResolveMarket(ctx, intent.Coin); err != nil {
		return err
	}
	opts := s.opts.Session
	id, err := s.registry.Start(s.runtime, owner, intent, &opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "started %s chase session %d for %s with limit %s",
		intent.Side, id, intent.Coin, intent.LimitPrice.StringFixed(intent.Precision))
	return nil
}

// placeOnce puts a single limit order at the limit price and returns without
// tracking it.
func (s *Server) placeOnce(ctx context.Context, intent *chaser.Intent) error {
	if err := intent.Check(); err != nil {
		return err
	}
	if _, err := s.exchange.ResolveMarket(ctx, intent.Coin); err != nil {
		return err
	}
	price := intent.LimitPrice.Round(intent.Precision)
	quantity := intent.QuantityAt(price)
	id, err := s.exchange.CreateOrder(ctx, uuid.New().String(), intent.Side, intent.Coin, price, quantity)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "placed %s order %s for %s %s at %s",
		intent.Side, id, quantity, intent.Coin, price.StringFixed(intent.Precision))
	return nil
}

func (s *Server) sessionsTelegramCmd(ctx context.Context, args []string) error {
	summaries := s.registry.List(telegram.Sender(ctx))
	stdout := cli.Stdout(ctx)
	if len(summaries) == 0 {
		fmt.Fprintf(stdout, "no active sessions")
		return nil
	}
	for _, v := range summaries {
		order := string(v.RestingOrderID)
		if order == "" {
			order = "none"
		}
		fmt.Fprintf(stdout, "%d: %s %s limit %s order %s\n",
			v.ID, v.Side, v.Coin, v.LimitPrice.StringFixed(v.Precision), order)
	}
	return nil
}

func (s *Server) stopTelegramCmd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /stop ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}
	if !s.registry.Stop(telegram.Sender(ctx), id) {
		return fmt.Errorf("no active session with id %d", id)
	}
	fmt.Fprintf(cli.Stdout(ctx), "session %d is stopping", id)
	return nil
}

func (s *Server) stopAllTelegramCmd(ctx context.Context, args []string) error {
	n := s.registry.StopAll(telegram.Sender(ctx))
	fmt.Fprintf(cli.Stdout(ctx), "signaled %d sessions to stop", n)
	return nil
}

// profitTelegramCmd estimates what a fixed-size market round trip through the
// current spread would return after fees.
func (s *Server) profitTelegramCmd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /profit COIN")
	}
	coin := strings.ToUpper(args[0])

	book, err := s.exchange.FetchBook(ctx, coin)
	if err != nil {
		return err
	}
	ask, ok := book.Best(exchange.SideSell)
	if !ok {
		return fmt.Errorf("order book for %s has no asks", coin)
	}
	bid, ok := book.Best(exchange.SideBuy)
	if !ok {
		return fmt.Errorf("order book for %s has no bids", coin)
	}

	keep := decimal.NewFromInt(1).Sub(profitFeeRate)
	quantity := profitInvestment.Mul(keep).Div(ask.Price)
	proceeds := quantity.Mul(bid.Price).Mul(keep)
	profit := proceeds.Sub(profitInvestment)

	fmt.Fprintf(cli.Stdout(ctx), "%s: ask %s bid %s; %s INR round trip yields %s INR",
		coin, ask.Price, bid.Price, profitInvestment, profit.StringFixed(2))
	return nil
}

func (s *Server) balancesTelegramCmd(ctx context.Context, args []string) error {
	balances, err := s.exchange.GetBalances(ctx)
	if err != nil {
		return err
	}
	stdout := cli.Stdout(ctx)
	nprinted := 0
	for _, b := range balances {
		if b.Free.IsZero() && b.Locked.IsZero() {
			continue
		}
		fmt.Fprintf(stdout, "%s: %s free, %s locked\n", b.Currency, b.Free, b.Locked)
		nprinted++
	}
	if nprinted == 0 {
		fmt.Fprintf(stdout, "all balances are zero")
	}
	return nil
}
