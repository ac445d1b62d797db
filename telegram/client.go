// Copyright (c) 2025 Kishore Bharat

// Package telegram runs the chat front end: it receives bot commands from
// authorized users, dispatches them to registered handlers and delivers
// notifications back. Chat ids are remembered in the kv database so that
// notifications survive restarts.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kbharat/chasebot/ctxutil"
	"github.com/kbharat/chasebot/gobs"
	"github.com/kbharat/chasebot/kvutil"
	"github.com/kbharat/chasebot/syncmap"

	"github.com/bvkgo/kv"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/visvasity/cli"
)

type CmdFunc = cli.CmdFunc

type Command struct {
	Name    string
	Purpose string
	Handler CmdFunc
}

type Client struct {
	cg ctxutil.CloseGroup

	db kv.Database

	mu sync.Mutex

	bot *bot.Bot

	self *models.User

	secrets *Secrets

	state *gobs.TelegramState

	startTime time.Time

	commandMap syncmap.Map[string, *Command]
}

func New(ctx context.Context, db kv.Database, secrets *Secrets) (_ *Client, status error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		db:        db,
		secrets:   secrets.Clone(),
		startTime: time.Now(),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(c.handler),
	}
	b, err := bot.New(secrets.BotToken, opts...)
	if err != nil {
		return nil, err
	}
	c.bot = b

	self, err := b.GetMe(ctx)
	if err != nil {
		return nil, err
	}
	c.self = self

	state, err := kvutil.GetDB[gobs.TelegramState](ctx, db, c.stateKey())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		state = &gobs.TelegramState{
			UserChatIDMap: make(map[string]int64),
		}
	}
	c.state = state

	c.commandMap.Store("uptime", &Command{
		Purpose: "Prints chasebot uptime",
		Handler: c.uptime,
	})
	c.commandMap.Store("version", &Command{
		Purpose: "Prints version information",
		Handler: c.version,
	})

	if ok, err := c.bot.SetMyCommands(ctx, c.commands()); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("could not set bot commands")
	}

	c.cg.Go(func(ctx context.Context) {
		c.bot.Start(ctx)
	})
	return c, nil
}

func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) BotUserName() string {
	return c.self.Username
}

func (c *Client) OwnerUserName() string {
	return c.secrets.OwnerID
}

func (c *Client) stateKey() string {
	return path.Join("/telegram", c.secrets.OwnerID, "state")
}

// AddCommand registers a bot command. Command names must be unique; the
// handler receives the command arguments and writes its reply through
// cli.Stdout.
func (c *Client) AddCommand(ctx context.Context, name, purpose string, handler CmdFunc) error {
	if len(name) == 0 || len(purpose) == 0 || handler == nil {
		return os.ErrInvalid
	}
	cdata := &Command{
		Name:    name,
		Purpose: purpose,
		Handler: handler,
	}
	if _, loaded := c.commandMap.LoadOrStore(name, cdata); loaded {
		return os.ErrExist
	}
	if ok, err := c.bot.SetMyCommands(ctx, c.commands()); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("could not set bot commands")
	}
	return nil
}

func (c *Client) commands() *bot.SetMyCommandsParams {
	var cmds []models.BotCommand
	c.commandMap.Range(func(name string, cdata *Command) bool {
		cmds = append(cmds, models.BotCommand{
			Command:     name,
			Description: cdata.Purpose,
		})
		return true
	})
	return &bot.SetMyCommandsParams{Commands: cmds}
}

func (c *Client) isValidUser(user string) bool {
	return user == c.secrets.OwnerID || slices.Contains(c.secrets.OtherIDs, user)
}

// SendTo delivers a message to one user. Returns os.ErrNotExist if the user
// has never messaged the bot, since Telegram allows sends only to known
// chats.
func (c *Client) SendTo(ctx context.Context, user, text string) error {
	c.mu.Lock()
	cid, ok := c.state.UserChatIDMap[user]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no chat id on record for user %q: %w", user, os.ErrNotExist)
	}

	m := &bot.SendMessageParams{
		ChatID: cid,
		Text:   text,
	}
	if _, err := c.bot.SendMessage(ctx, m); err != nil {
		return err
	}
	return nil
}

func (c *Client) handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	sender := update.Message.From.Username
	if !c.isValidUser(sender) {
		slog.Warn("received message from unauthorized user (ignored)", "sender", sender)
		return
	}

	if err := c.updateChatIDs(ctx, update); err != nil {
		slog.Warn("could not update chat id values (ignored)", "err", err)
	}

	if err := c.respond(ctx, update); err != nil {
		slog.Error("could not respond to user command (ignored)", "user", sender, "err", err)
	}
}

func (c *Client) getCommand(update *models.Update) (string, []string, CmdFunc, error) {
	if len(update.Message.Entities) == 0 {
		return "", nil, nil, os.ErrInvalid
	}
	entity := update.Message.Entities[0]
	if entity.Type != models.MessageEntityTypeBotCommand || entity.Offset != 0 {
		return "", nil, nil, os.ErrInvalid
	}
	if update.Message.Text[0] != '/' {
		return "", nil, nil, os.ErrInvalid
	}
	cmd := update.Message.Text[1:entity.Length]
	args := strings.Fields(strings.TrimSpace(update.Message.Text[entity.Length:]))
	cdata, ok := c.commandMap.Load(cmd)
	if !ok {
		return cmd, nil, nil, os.ErrNotExist
	}
	return cmd, args, cdata.Handler, nil
}

func (c *Client) respond(ctx context.Context, update *models.Update) (status error) {
	var reply string
	defer func() {
		if status != nil {
			reply, status = status.Error(), nil
		}
		if len(reply) == 0 {
			return
		}
		p := &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   reply,
			ReplyParameters: &models.ReplyParameters{
				MessageID: update.Message.ID,
			},
		}
		if _, err := c.bot.SendMessage(ctx, p); err != nil {
			status = err
		}
	}()

	cmd, args, handler, err := c.getCommand(update)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unknown command %q", cmd)
		}
		return err
	}

	var sb strings.Builder
	hctx := WithSender(cli.WithStdout(ctx, &sb), update.Message.From.Username)
	if err := handler(hctx, args); err != nil {
		slog.Error("could not handle user command (ignored)", "cmd", cmd, "err", err)
		return err
	}
	reply = sb.String()
	return nil
}

func (c *Client) updateChatIDs(ctx context.Context, update *models.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sender := update.Message.From.Username
	if id, ok := c.state.UserChatIDMap[sender]; !ok || id != update.Message.Chat.ID {
		c.state.UserChatIDMap[sender] = update.Message.Chat.ID
		if err := kvutil.SetDB(ctx, c.db, c.stateKey(), c.state); err != nil {
			slog.Error("could not save telegram state to the db", "err", err)
			return err
		}
	}
	return nil
}

func (c *Client) uptime(ctx context.Context, args []string) error {
	stdout := cli.Stdout(ctx)
	const day = 24 * time.Hour
	d := time.Since(c.startTime)
	if d < day {
		fmt.Fprintf(stdout, "%v", d)
		return nil
	}
	fmt.Fprintf(stdout, "%dd%v", d/day, d%day)
	return nil
}

func (c *Client) version(ctx context.Context, _ []string) error {
	stdout := cli.Stdout(ctx)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Errorf("could not read build information")
	}
	fmt.Fprintln(stdout, "Go: ", info.GoVersion)
	fmt.Fprintln(stdout, "Main Module Path: ", info.Main.Path)
	fmt.Fprintln(stdout, "Main Module Version: ", info.Main.Version)
	return nil
}
