// Copyright (c) 2025 Kishore Bharat

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/kbharat/chasebot/server"

	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
)

type Run struct {
	DataFlags

	maxSessions int

	noCancelOnStop bool

	debug bool
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.IntVar(&c.maxSessions, "max-sessions", 0, "max chase sessions per user (0 picks the default)")
	fset.BoolVar(&c.noCancelOnStop, "no-cancel-on-stop", false, "leave resting orders on the exchange when sessions stop")
	fset.BoolVar(&c.debug, "debug", false, "enables debug level logging")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the chasebot service in foreground"
}

func (c *Run) Description() string {
	return `

Command "run" starts the chasebot service: it connects to the CoinDCX
exchange, starts the telegram bot and serves chase-session commands until
interrupted.

SECRETS FILE

Trading requires CoinDCX API keys and a telegram bot token. They are read
from a secrets file in JSON format:

    {
        "coindcx": {"key": "111111", "secret": "222222"},
        "telegram": {"token": "33:4444", "owner": "username"}
    }

Keys can also be supplied through the COINDCX_API_KEY, COINDCX_API_SECRET,
TELEGRAM_TOKEN and TELEGRAM_OWNER environment variables or a .env file.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	secrets, err := c.Secrets()
	if err != nil {
		return err
	}

	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("could not create log directory %q: %w", logDir, err)
	}
	backend := sglog.NewBackend(&sglog.Options{LogDirs: []string{logDir}})
	defer backend.Close()
	if c.debug {
		backend.SetLevel(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(backend.Handler()))

	lockPath := filepath.Join(dataDir, "chasebot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
	}
	defer flock.Unlock()

	bopts := badger.DefaultOptions(filepath.Join(dataDir, "db"))
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, isGoodKey)

	sopts := &server.Options{
		MaxSessionsPerOwner: c.maxSessions,
	}
	sopts.Session.NoCancelOnStop = c.noCancelOnStop
	s, err := server.New(ctx, secrets, db, sopts)
	if err != nil {
		return err
	}
	defer s.Close()

	slog.InfoContext(ctx, "chasebot service is ready", "data-dir", dataDir)
	<-ctx.Done()
	slog.InfoContext(ctx, "chasebot service is shutting down")
	return nil
}

func isGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
