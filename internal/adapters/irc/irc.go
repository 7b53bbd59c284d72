package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// maxLineLen is the longest line the server accepts, without the trailing CR LF.
const maxLineLen = 510

const ctcpDelim = "\x01"

var (
	ErrInvalidCharacters = errors.New("message contains line breaks")
	ErrMessageTooLong    = errors.New("message too long")
)

type Config struct {
	Server       string
	Port         int
	TLS          bool
	Password     string
	Nickname     string
	Channels     []string
	MessageRate  float64
	MessageBurst int
}

// connection is the part of *ircevent.Connection the transport sends through.
type connection interface {
	Privmsg(target, message string) error
	Action(target, message string) error
	Join(channel string) error
	CurrentNick() string
}

type Transport struct {
	cfg     Config
	irc     *ircevent.Connection
	conn    connection
	limiter *rate.Limiter
}

func New(cfg Config) *Transport {
	irc := &ircevent.Connection{
		Server:      fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		Nick:        cfg.Nickname,
		User:        cfg.Nickname,
		RealName:    cfg.Nickname,
		Password:    cfg.Password,
		QuitMessage: "Shutting down",
		UseTLS:      cfg.TLS,
	}
	if cfg.TLS {
		irc.TLSConfig = &tls.Config{ServerName: cfg.Server}
	}

	return newTransport(cfg, irc, irc)
}

func newTransport(cfg Config, irc *ircevent.Connection, conn connection) *Transport {
	limit := rate.Inf
	if cfg.MessageRate > 0 {
		limit = rate.Limit(cfg.MessageRate)
	}

	burst := cfg.MessageBurst
	if burst < 1 {
		burst = 1
	}

	return &Transport{
		cfg:     cfg,
		irc:     irc,
		conn:    conn,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (t *Transport) Nickname() string {
	if nick := t.conn.CurrentNick(); nick != "" {
		return nick
	}

	return t.cfg.Nickname
}

// Transmit sends message to channel. A "/me " prefix turns it into an action. Messages that the server would
// reject are logged and not sent.
func (t *Transport) Transmit(ctx context.Context, channel, message string) (string, bool) {
	l := log.With().Str("channel", channel).Logger()

	if err := t.validate(channel, message); err != nil {
		l.Warn().Err(err).Str("message", message).Msg("unable to send message")
		return "", false
	}

	if err := t.limiter.Wait(ctx); err != nil {
		l.Warn().Err(err).Msg("message throttle interrupted")
		return "", false
	}

	var err error
	if action, ok := strings.CutPrefix(message, domain.ActionPrefix); ok {
		err = t.conn.Action(channel, action)
	} else {
		err = t.conn.Privmsg(channel, message)
	}
	if err != nil {
		l.Warn().Err(err).Msg("failed to send message")
		return "", false
	}

	return message, true
}

func (t *Transport) validate(channel, message string) error {
	if strings.ContainsAny(message, "\r\n") {
		return ErrInvalidCharacters
	}

	line := "PRIVMSG " + channel + " :" + message
	if action, ok := strings.CutPrefix(message, domain.ActionPrefix); ok {
		line = "PRIVMSG " + channel + " :" + ctcpDelim + "ACTION " + action + ctcpDelim
	}
	if len(line) > maxLineLen {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLong, len(line))
	}

	return nil
}

// Run connects and feeds the sink until ctx is done or the connection is lost for good.
func (t *Transport) Run(ctx context.Context, sink port.EventSink) error {
	if t.irc == nil {
		return errors.New("irc connection not configured")
	}

	t.irc.AddCallback("376", func(ircmsg.Message) { t.onWelcome() })
	t.irc.AddCallback("422", func(ircmsg.Message) { t.onWelcome() }) // MOTD missing is also "connected"
	t.irc.AddCallback("INVITE", t.onInvite)
	t.irc.AddCallback("PRIVMSG", func(e ircmsg.Message) { t.onPrivmsg(ctx, sink, e) })
	t.irc.AddCallback("JOIN", func(e ircmsg.Message) { t.onJoin(ctx, sink, e) })
	t.irc.AddCallback("PART", func(e ircmsg.Message) { t.onPart(ctx, sink, e) })
	t.irc.AddCallback("QUIT", func(e ircmsg.Message) { t.onQuit(ctx, sink, e) })

	log.Info().Str("server", t.irc.Server).Str("nick", t.cfg.Nickname).Msg("connecting to irc")
	if err := t.irc.Connect(); err != nil {
		return fmt.Errorf("connecting to %s: %w", t.irc.Server, err)
	}

	stop := context.AfterFunc(ctx, t.irc.Quit)
	defer stop()

	t.irc.Loop()

	if ctx.Err() != nil {
		return nil
	}

	return errors.New("irc connection closed")
}

func (t *Transport) onWelcome() {
	log.Info().Strs("channels", t.cfg.Channels).Msg("connected to irc")

	for _, channel := range t.cfg.Channels {
		if err := t.conn.Join(channel); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("failed to join channel")
		}
	}
}

func (t *Transport) onInvite(e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}

	channel := e.Params[1]
	log.Info().Str("channel", channel).Str("nick", e.Nick()).Msg("invited to channel")

	if err := t.conn.Join(channel); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to join channel")
	}
}

func (t *Transport) onPrivmsg(ctx context.Context, sink port.EventSink, e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}

	text, ok := normalizeCTCP(e.Params[1])
	if !ok {
		log.Debug().Str("nick", e.Nick()).Str("message", e.Params[1]).Msg("ignoring ctcp request")
		return
	}

	channel := e.Params[0]
	// private messages are answered to the sender
	if strings.EqualFold(channel, t.Nickname()) {
		channel = e.Nick()
	}

	sink.HandleAction(ctx, &domain.Event{
		Type:    domain.EventMessage,
		Channel: channel,
		Nick:    e.Nick(),
		Text:    text,
		Time:    time.Now(),
		Raw:     e,
	})
}

// normalizeCTCP turns a CTCP ACTION into a "/me " message. Other CTCP requests are not chat and yield false.
func normalizeCTCP(text string) (string, bool) {
	body, ok := strings.CutPrefix(text, ctcpDelim)
	if !ok {
		return text, true
	}

	body = strings.TrimSuffix(body, ctcpDelim)
	command, arg, _ := strings.Cut(body, " ")
	if !strings.EqualFold(command, "ACTION") {
		return "", false
	}

	return domain.ActionPrefix + arg, true
}

func (t *Transport) onJoin(ctx context.Context, sink port.EventSink, e ircmsg.Message) {
	if len(e.Params) < 1 || t.isSelf(e) {
		return
	}

	sink.HandleJoin(ctx, &domain.Event{
		Type:    domain.EventJoin,
		Channel: e.Params[0],
		Nick:    e.Nick(),
		Time:    time.Now(),
		Raw:     e,
	})
}

func (t *Transport) onPart(ctx context.Context, sink port.EventSink, e ircmsg.Message) {
	if len(e.Params) < 1 || t.isSelf(e) {
		return
	}

	sink.HandleLeave(ctx, &domain.Event{
		Type:    domain.EventLeave,
		Channel: e.Params[0],
		Nick:    e.Nick(),
		Time:    time.Now(),
		Raw:     e,
	})
}

// onQuit reports a leave without a channel; the server does not say which channels the user was in.
func (t *Transport) onQuit(ctx context.Context, sink port.EventSink, e ircmsg.Message) {
	if t.isSelf(e) {
		return
	}

	var reason string
	if len(e.Params) > 0 {
		reason = e.Params[0]
	}

	sink.HandleLeave(ctx, &domain.Event{
		Type: domain.EventLeave,
		Nick: e.Nick(),
		Text: reason,
		Time: time.Now(),
		Raw:  e,
	})
}

func (t *Transport) isSelf(e ircmsg.Message) bool {
	return strings.EqualFold(e.Nick(), t.Nickname())
}
