// Copyright (c) 2025 Kishore Bharat

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/kbharat/chasebot/chaser"
	"github.com/kbharat/chasebot/coindcx"
	"github.com/kbharat/chasebot/exchange"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Buy struct {
	DataFlags

	precision int
}

func (c *Buy) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("buy", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.IntVar(&c.precision, "precision", 2, "price decimal places for the market")
	return "buy", fset, cli.CmdFunc(c.run)
}

func (c *Buy) Purpose() string {
	return "Places a single limit buy order"
}

func (c *Buy) run(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("this command takes COIN, LIMIT and AMOUNT arguments")
	}
	limit, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid limit price %q: %w", args[1], err)
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid quote amount %q: %w", args[2], err)
	}
	intent := &chaser.Intent{
		Side:       exchange.SideBuy,
		Coin:       strings.ToUpper(args[0]),
		LimitPrice: limit,
		Precision:  int32(c.precision),
		Quote:      amount,
	}
	return placeOrder(ctx, &c.DataFlags, intent)
}

type Sell struct {
	DataFlags

	precision int
}

func (c *Sell) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("sell", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.IntVar(&c.precision, "precision", 2, "price decimal places for the market")
	return "sell", fset, cli.CmdFunc(c.run)
}

func (c *Sell) Purpose() string {
	return "Places a single limit sell order"
}

func (c *Sell) run(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf(`this command takes COIN, LIMIT and QTY (or "inr:AMOUNT") arguments`)
	}
	limit, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid limit price %q: %w", args[1], err)
	}
	intent := &chaser.Intent{
		Side:       exchange.SideSell,
		Coin:       strings.ToUpper(args[0]),
		LimitPrice: limit,
		Precision:  int32(c.precision),
	}
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
	return placeOrder(ctx, &c.DataFlags, intent)
}

func placeOrder(ctx context.Context, flags *DataFlags, intent *chaser.Intent) error {
	if err := intent.Check(); err != nil {
		return err
	}
	secrets, err := flags.Secrets()
	if err != nil {
		return err
	}
	ex, err := coindcx.New(ctx, secrets.CoinDCX, nil /* opts */)
	if err != nil {
		return err
	}
	defer ex.Close()

	if _, err := ex.ResolveMarket(ctx, intent.Coin); err != nil {
		return err
	}
	price := intent.LimitPrice.Round(intent.Precision)
	quantity := intent.QuantityAt(price)
	id, err := ex.CreateOrder(ctx, uuid.New().String(), intent.Side, intent.Coin, price, quantity)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", id)
	return nil
}
