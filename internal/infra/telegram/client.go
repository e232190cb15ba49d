// Package telegram runs the MTProto user session: login, the update loop,
// media download and replies.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/updates"
	updhook "github.com/gotd/td/telegram/updates/hook"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"telegram-gather/internal/domain"
	"telegram-gather/internal/infra/proxy"
)

// ErrNotAuthorized means the stored session is missing or no longer valid
// and no interactive login is possible.
var ErrNotAuthorized = errors.New("telegram session is not authorized")

var sessionErrorTypes = []string{
	"AUTH_KEY_UNREGISTERED",
	"AUTH_KEY_INVALID",
	"AUTH_KEY_DUPLICATED",
	"SESSION_REVOKED",
	"SESSION_EXPIRED",
	"USER_DEACTIVATED",
	"USER_DEACTIVATED_BAN",
}

// IsSessionError reports whether err means the session has to be renewed
// by logging in again.
func IsSessionError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotAuthorized) ||
		tgerr.Is(err, sessionErrorTypes...) ||
		tgerr.IsCode(err, 401)
}

// ErrorType returns the RPC error type carried by err, for example
// AUTH_KEY_UNREGISTERED.
func ErrorType(err error) (string, bool) {
	if rpcErr, ok := tgerr.As(err); ok {
		return rpcErr.Type, true
	}
	return "", false
}

// pingInterval is how often a lost connection is probed.
const pingInterval = 30 * time.Second

type Options struct {
	AppID       int
	AppHash     string
	Phone       string
	Password    string
	SessionPath string
	// NonInteractive makes an unauthorized session fail with ErrNotAuthorized.
	NonInteractive bool
	// Prompter is asked for the login code. Nil disables interactive login.
	Prompter Prompter
	// Dial is used for MTProto connections. Nil dials directly.
	Dial proxy.DialFunc
	// OnDisconnect is called once when the connection to Telegram dies.
	OnDisconnect func()
	// OnReconnect is called once the connection works again after
	// OnDisconnect, detected by a delivered update or a successful ping.
	OnReconnect func()
}

// Handler receives the session events.
type Handler interface {
	OnReady(ctx context.Context, account string)
	OnMessage(ctx context.Context, msg *domain.IncomingAudioMessage)
}

type Client struct {
	opts      Options
	client    *telegram.Client
	gaps      *updates.Manager
	updates   tg.UpdateDispatcher
	messenger *Messenger
	logger    *slog.Logger
	down      atomic.Bool
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	dispatcher := tg.NewUpdateDispatcher()
	gaps := updates.New(updates.Config{Handler: dispatcher})

	c := &Client{
		opts:    opts,
		gaps:    gaps,
		updates: dispatcher,
		logger:  logger,
	}

	tgOpts := telegram.Options{
		SessionStorage: &session.FileStorage{Path: opts.SessionPath},
		UpdateHandler:  gaps,
		Middlewares: []telegram.Middleware{
			updhook.UpdateHook(gaps.Handle),
		},
	}
	if opts.Dial != nil {
		tgOpts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: dcs.DialFunc(opts.Dial)})
	}
	tgOpts.OnDead = c.markDead

	c.client = telegram.NewClient(opts.AppID, opts.AppHash, tgOpts)
	c.messenger = NewMessenger(c.client.API(), logger)
	return c
}

func (c *Client) markDead() {
	if c.down.Swap(true) {
		return
	}
	c.logger.Warn("connection to telegram lost")
	if c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect()
	}
}

func (c *Client) markAlive() {
	if !c.down.Swap(false) {
		return
	}
	c.logger.Info("connection to telegram restored")
	if c.opts.OnReconnect != nil {
		c.opts.OnReconnect()
	}
}

// watch pings Telegram while the connection is marked dead, so that
// recovery is noticed on an account that receives no updates.
func (c *Client) watch(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !c.down.Load() {
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := c.client.Ping(pingCtx)
		cancel()
		if err != nil {
			c.logger.Debug("telegram still unreachable", "error", err)
			continue
		}
		c.markAlive()
	}
}

// Messenger is usable while Run is active.
func (c *Client) Messenger() *Messenger {
	return c.messenger
}

// Login connects, authorizes if needed, and returns the logged in user.
func (c *Client) Login(ctx context.Context) (*tg.User, error) {
	var self *tg.User
	err := c.client.Run(ctx, func(ctx context.Context) error {
		var err error
		self, err = c.authorize(ctx)
		return err
	})
	return self, err
}

// Run blocks until ctx is cancelled or the session fails. Every new message
// is handed to h; filtering is up to the handler.
func (c *Client) Run(ctx context.Context, h Handler) error {
	c.updates.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.markAlive()

		msg, ok := u.Message.(*tg.Message)
		if !ok {
			return nil
		}
		event, ok := convertMessage(msg, e)
		if !ok {
			c.logger.Debug("skipping message from unknown peer", "message_id", msg.ID)
			return nil
		}
		h.OnMessage(ctx, event)
		return nil
	})

	return c.client.Run(ctx, func(ctx context.Context) error {
		self, err := c.authorize(ctx)
		if err != nil {
			return err
		}

		account := accountName(self)
		c.logger.Info("logged in", "account", account, "user_id", self.ID)

		go c.watch(ctx)

		return c.gaps.Run(ctx, c.client.API(), self.ID, updates.AuthOptions{
			OnStart: func(ctx context.Context) {
				c.logger.Info("listening for voice messages")
				h.OnReady(ctx, account)
			},
		})
	})
}

func (c *Client) authorize(ctx context.Context) (*tg.User, error) {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking auth status: %w", err)
	}

	if !status.Authorized {
		if c.opts.NonInteractive || c.opts.Prompter == nil {
			return nil, fmt.Errorf("%w: running non-interactively, re-authorize locally", ErrNotAuthorized)
		}

		c.logger.Info("authorization required", "phone", maskPhone(c.opts.Phone))
		flow := auth.NewFlow(userAuth{
			phone:    c.opts.Phone,
			password: c.opts.Password,
			prompt:   c.opts.Prompter,
		}, auth.SendCodeOptions{})

		if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
			return nil, fmt.Errorf("logging in: %w", err)
		}
	}

	self, err := c.client.Self(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching own user: %w", err)
	}
	return self, nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:len(phone)-4] + "****"
}
