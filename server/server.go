// Copyright (c) 2025 Kishore Bharat

// Package server ties the pieces together: it owns the session registry, the
// CoinDCX exchange adapter and the telegram front end, and translates chat
// commands into registry operations.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/kbharat/chasebot/chaser"
	"github.com/kbharat/chasebot/coindcx"
	"github.com/kbharat/chasebot/pushover"
	"github.com/kbharat/chasebot/telegram"

	"github.com/bvkgo/kv"
)

type Server struct {
	opts Options

	db kv.Database

	exchange *coindcx.Exchange

	registry *chaser.Registry

	runtime *chaser.Runtime

	telegramClient *telegram.Client

	pushoverClient *pushover.Client
}

func New(ctx context.Context, secrets *Secrets, db kv.Database, opts *Options) (_ *Server, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	s := &Server{
		opts: *opts,
		db:   db,
	}
	defer func() {
		if status != nil {
			s.Close()
		}
	}()

	exchange, err := coindcx.New(ctx, secrets.CoinDCX, nil /* opts */)
	if err != nil {
		return nil, err
	}
	s.exchange = exchange

	if secrets.Pushover != nil {
		client, err := pushover.New(secrets.Pushover)
		if err != nil {
			return nil, err
		}
		s.pushoverClient = client
	}

	if secrets.Telegram != nil {
		client, err := telegram.New(ctx, db, secrets.Telegram)
		if err != nil {
			return nil, err
		}
		s.telegramClient = client
	}

	s.registry = chaser.NewRegistry(opts.maxSessionsPerOwner())
	s.runtime = &chaser.Runtime{
		Books:  exchange,
		Orders: exchange,
		Notify: s.notify,
	}

	if err := s.registerTelegramCommands(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close stops every live session, waits for the runners to finish their
// cancel-on-stop cleanup and releases the clients.
func (s *Server) Close() error {
	if s.registry != nil {
		s.registry.Close()
	}
	if s.telegramClient != nil {
		s.telegramClient.Close()
	}
	if s.exchange != nil {
		s.exchange.Close()
	}
	return nil
}

func (s *Server) Registry() *chaser.Registry {
	return s.registry
}

func (s *Server) Runtime() *chaser.Runtime {
	return s.runtime
}

func (s *Server) AddTelegramCommand(ctx context.Context, name, purpose string, handler telegram.CmdFunc) error {
	if s.telegramClient != nil {
		return s.telegramClient.AddCommand(ctx, name, purpose, handler)
	}
	return nil // Ignored
}

// notify delivers a session status update to its owner over telegram and,
// when configured, mirrors it to pushover. Pushover failures never fail the
// notification.
func (s *Server) notify(ctx context.Context, ownerID, text string) error {
	if s.pushoverClient != nil {
		if err := s.pushoverClient.SendMessage(ctx, time.Now(), text); err != nil {
			slog.Warn("could not send pushover notification (ignored)", "err", err)
		}
	}
	if s.telegramClient == nil {
		slog.Info("session notification", "owner", ownerID, "message", text)
		return nil
	}
	return s.telegramClient.SendTo(ctx, ownerID, text)
}
