// Package discord owns the long-lived Discord gateway session. It is
// started once at boot and reconnects on its own; the notifier only sees
// the read-only Ready/HasChannel/Send surface.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrSnakeDoc/dropwatch/internal/logger"
	"github.com/MrSnakeDoc/dropwatch/internal/metrics"
)

var ErrNotReady = errors.New("discord gateway not ready")

// SendError describes a rejected REST call.
type SendError struct {
	Status int
	Code   int
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("discord send: status %d code %d: %v", e.Status, e.Code, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

func (e *SendError) HTTPStatus() int { return e.Status }

func (e *SendError) APICode() string { return strconv.Itoa(e.Code) }

type Gateway struct {
	session *discordgo.Session
	log     logger.Logger
	ready   atomic.Bool

	open       func() error
	close      func() error
	minBackoff time.Duration
	maxBackoff time.Duration
}

// New prepares a session for token. No network traffic happens until Run.
func New(token string, log logger.Logger) (*Gateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	s.ShouldReconnectOnError = true
	s.StateEnabled = true

	g := &Gateway{
		session:    s,
		log:        log.With(logger.String("component", "discord_gateway")),
		open:       s.Open,
		close:      s.Close,
		minBackoff: time.Second,
		maxBackoff: time.Minute,
	}

	s.AddHandler(g.onReady)
	s.AddHandler(g.onResumed)
	s.AddHandler(g.onDisconnect)

	return g, nil
}

// Run opens the session, retrying with exponential backoff, and keeps it
// until ctx is cancelled. discordgo handles reconnects after the first
// successful open.
func (g *Gateway) Run(ctx context.Context) error {
	wait := g.minBackoff
	for attempt := 1; ; attempt++ {
		err := g.open()
		if err == nil || errors.Is(err, discordgo.ErrWSAlreadyOpen) {
			g.log.Info("discord gateway opened", logger.Int("attempts", attempt))
			break
		}

		g.log.Warn("discord gateway open failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		wait *= 2
		if wait > g.maxBackoff {
			wait = g.maxBackoff
		}
	}

	<-ctx.Done()
	g.setReady(false)
	if err := g.close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	g.log.Info("discord gateway closed")
	return nil
}

func (g *Gateway) Ready() bool { return g.ready.Load() }

// HasChannel reports whether channelID is present in the session cache.
func (g *Gateway) HasChannel(channelID int64) bool {
	if !g.Ready() || g.session.State == nil {
		return false
	}
	_, err := g.session.State.Channel(strconv.FormatInt(channelID, 10))
	return err == nil
}

// Send posts text as a plain message to channelID.
func (g *Gateway) Send(ctx context.Context, channelID int64, text string) error {
	if !g.Ready() {
		return ErrNotReady
	}

	_, err := g.session.ChannelMessageSend(strconv.FormatInt(channelID, 10), text, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		se := &SendError{Err: err}
		if rest.Response != nil {
			se.Status = rest.Response.StatusCode
		}
		if rest.Message != nil {
			se.Code = rest.Message.Code
		}
		return se
	}
	return err
}

func (g *Gateway) setReady(ok bool) {
	g.ready.Store(ok)
	metrics.SetGatewayConnected(ok)
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	g.setReady(true)
	name := ""
	if r.User != nil {
		name = r.User.Username
	}
	g.log.Info("discord gateway ready",
		logger.String("user", name),
		logger.Int("guilds", len(r.Guilds)))
}

func (g *Gateway) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	g.setReady(true)
	g.log.Info("discord gateway resumed")
}

func (g *Gateway) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	if g.ready.Load() {
		g.log.Warn("discord gateway disconnected")
	}
	g.setReady(false)
}
