// Copyright (c) 2025 Kishore Bharat

package subcmds

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kbharat/chasebot/coindcx"
	"github.com/kbharat/chasebot/ctxutil"
	"github.com/kbharat/chasebot/pushover"
	"github.com/kbharat/chasebot/server"
	"github.com/kbharat/chasebot/telegram"

	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Setup struct {
	DataFlags

	skipTesting bool
}

func (c *Setup) Purpose() string {
	return "Prints and/or configures chasebot credentials"
}

func (c *Setup) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("setup", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "setup", fset, cli.CmdFunc(c.run)
}

func (c *Setup) Description() string {
	return `

Command "setup" configures CoinDCX API keys, the telegram bot and optional
pushover notification keys. It prints the current config when run without any
arguments.

COINDCX PARAMETERS

CoinDCX API keys are required to place, edit and cancel orders:

  $ chasebot setup coindcx-key=1111111 coindcx-secret=2222222

A value of "-" is read interactively without terminal echo:

  $ chasebot setup coindcx-key=1111111 coindcx-secret=-

TELEGRAM PARAMETERS

The telegram bot token and the owner's username enable the chat front end.
Additional usernames may be allowed with a comma-separated list:

  $ chasebot setup telegram-token=33:4444 telegram-owner=user telegram-others=friend1,friend2

PUSHOVER PARAMETERS

Pushover keys are optional; they mirror session notifications to phones:

  $ chasebot setup pushover-app=awja5ue...ito7svf pushover-user=uscjs2...tvp4kv

`
}

func (c *Setup) run(ctx context.Context, args []string) error {
	fpath, err := c.SecretsPath()
	if err != nil {
		return err
	}
	secrets, err := server.SecretsFromFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if len(args) == 0 {
			return fmt.Errorf("chasebot is not configured")
		}
	}

	if len(args) == 0 {
		js, _ := json.MarshalIndent(secrets, "", "  ")
		fmt.Printf("%s\n", js)
		return nil
	}

	if secrets == nil {
		secrets = &server.Secrets{}
	}

	validKeys := []string{
		"coindcx-key", "coindcx-secret",
		"telegram-token", "telegram-owner", "telegram-others",
		"pushover-app", "pushover-user",
	}
	kvMap := make(map[string]string)
	for _, arg := range args {
		before, after, found := strings.Cut(arg, "=")
		if !found {
			return fmt.Errorf("invalid config argument %q", arg)
		}
		if !slices.Contains(validKeys, before) {
			return fmt.Errorf("invalid/unrecognized config item key %q", before)
		}
		if after == "-" {
			v, err := readSecret(before)
			if err != nil {
				return err
			}
			after = v
		}
		if v, ok := kvMap[before]; ok && v != after {
			return fmt.Errorf("config item key %q is found with different values", before)
		}
		kvMap[before] = after
	}

	if err := c.setupCoinDCX(ctx, secrets, kvMap); err != nil {
		return err
	}
	if err := c.setupTelegram(ctx, secrets, kvMap); err != nil {
		return err
	}
	if err := c.setupPushover(ctx, secrets, kvMap); err != nil {
		return err
	}

	js, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(fpath, js, os.FileMode(0600)); err != nil {
		return err
	}
	return nil
}

func readSecret(name string) (string, error) {
	fmt.Printf("%s: ", name)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("could not read %q from the terminal: %w", name, err)
	}
	return string(data), nil
}

func (c *Setup) setupCoinDCX(ctx context.Context, secrets *server.Secrets, kvMap map[string]string) error {
	key, secret := kvMap["coindcx-key"], kvMap["coindcx-secret"]
	if len(key) == 0 && len(secret) == 0 {
		return nil
	}
	if len(key) == 0 || len(secret) == 0 {
		return fmt.Errorf(`both "coindcx-key" and "coindcx-secret" parameters are required`)
	}
	secrets.CoinDCX = &coindcx.Credentials{
		Key:    key,
		Secret: secret,
	}
	if !c.skipTesting {
		// Attempt an authenticated call to validate the keys.
		ex, err := coindcx.New(ctx, secrets.CoinDCX, nil /* opts */)
		if err != nil {
			return err
		}
		defer ex.Close()
		if _, err := ex.GetBalances(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Setup) setupTelegram(ctx context.Context, secrets *server.Secrets, kvMap map[string]string) error {
	token, owner := kvMap["telegram-token"], kvMap["telegram-owner"]
	if len(token) == 0 && len(owner) == 0 {
		return nil
	}
	if len(token) == 0 || len(owner) == 0 {
		return fmt.Errorf(`both "telegram-token" and "telegram-owner" parameters are required`)
	}
	secrets.Telegram = &telegram.Secrets{
		BotToken: token,
		OwnerID:  owner,
	}
	if others := kvMap["telegram-others"]; len(others) != 0 {
		secrets.Telegram.OtherIDs = strings.Split(others, ",")
	}
	if err := secrets.Telegram.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		client, err := telegram.New(ctx, kvmemdb.New(), secrets.Telegram)
		if err != nil {
			return err
		}
		defer client.Close()

		fmt.Printf("Send any message to the @%s bot and then press any key\n", client.BotUserName())
		if err := waitForKeyPress(); err != nil {
			return err
		}
		ctxutil.Sleep(ctx, time.Second)
		if err := client.SendTo(ctx, owner, "Test message from chasebot setup; please ignore."); err != nil {
			return err
		}
	}
	return nil
}

func (c *Setup) setupPushover(ctx context.Context, secrets *server.Secrets, kvMap map[string]string) error {
	app, user := kvMap["pushover-app"], kvMap["pushover-user"]
	if len(app) == 0 && len(user) == 0 {
		return nil
	}
	if len(app) == 0 || len(user) == 0 {
		return fmt.Errorf(`both "pushover-app" and "pushover-user" parameters are required`)
	}
	secrets.Pushover = &pushover.Keys{
		ApplicationKey: app,
		UserKey:        user,
	}
	if !c.skipTesting {
		client, err := pushover.New(secrets.Pushover)
		if err != nil {
			return err
		}
		if err := client.SendMessage(ctx, time.Now(), "Test message from chasebot setup; please ignore."); err != nil {
			return err
		}
	}
	return nil
}

func waitForKeyPress() error {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	b := make([]byte, 1)
	if _, err := os.Stdin.Read(b); err != nil {
		return err
	}
	return nil
}
