package slack

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/nlopes/slack"
	"github.com/rs/zerolog/log"
)

var ErrInvalidAuth = errors.New("slack rejected the token")

// api is the part of the slack client the transport calls directly.
type api interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

type Transport struct {
	client *slack.Client
	api    api

	mu     sync.RWMutex
	selfID string
	nick   string
	users  map[string]string
}

func New(token string) *Transport {
	client := slack.New(token)

	return &Transport{
		client: client,
		api:    client,
		users:  make(map[string]string),
	}
}

func (t *Transport) Nickname() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.nick
}

// Transmit posts message to a channel id. A "/me " prefix posts it as a me message.
func (t *Transport) Transmit(ctx context.Context, channel, message string) (string, bool) {
	opts := []slack.MsgOption{slack.MsgOptionText(message, false)}
	if action, ok := strings.CutPrefix(message, domain.ActionPrefix); ok {
		opts = []slack.MsgOption{slack.MsgOptionText(action, false), slack.MsgOptionMeMessage()}
	}

	if _, _, err := t.api.PostMessageContext(ctx, channel, opts...); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to post message")
		return "", false
	}

	return message, true
}

// Run keeps an RTM connection open and feeds the sink until ctx is done.
func (t *Transport) Run(ctx context.Context, sink port.EventSink) error {
	if t.client == nil {
		return errors.New("slack client not configured")
	}

	rtm := t.client.NewRTM()
	go rtm.ManageConnection()

	defer func() {
		if err := rtm.Disconnect(); err != nil {
			log.Debug().Err(err).Msg("slack disconnect")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-rtm.IncomingEvents:
			if !ok {
				return errors.New("slack event stream closed")
			}
			if err := t.handle(ctx, sink, ev.Data); err != nil {
				return err
			}
		}
	}
}

func (t *Transport) handle(ctx context.Context, sink port.EventSink, data any) error {
	switch ev := data.(type) {
	case *slack.ConnectedEvent:
		if ev.Info != nil && ev.Info.User != nil {
			t.mu.Lock()
			t.selfID, t.nick = ev.Info.User.ID, ev.Info.User.Name
			t.mu.Unlock()
		}
		log.Info().Str("nick", t.Nickname()).Int("connection", ev.ConnectionCount).Msg("connected to slack")
	case *slack.MessageEvent:
		t.onMessage(ctx, sink, ev)
	case *slack.MemberJoinedChannelEvent:
		sink.HandleJoin(ctx, &domain.Event{
			Type:    domain.EventJoin,
			Channel: ev.Channel,
			Nick:    t.userName(ctx, ev.User),
			Time:    time.Now(),
			Raw:     ev,
		})
	case *slack.MemberLeftChannelEvent:
		sink.HandleLeave(ctx, &domain.Event{
			Type:    domain.EventLeave,
			Channel: ev.Channel,
			Nick:    t.userName(ctx, ev.User),
			Time:    time.Now(),
			Raw:     ev,
		})
	case *slack.RTMError:
		log.Warn().Str("error", ev.Error()).Msg("slack rtm error")
	case *slack.InvalidAuthEvent:
		return ErrInvalidAuth
	}

	return nil
}

func (t *Transport) onMessage(ctx context.Context, sink port.EventSink, ev *slack.MessageEvent) {
	// edits, deletions and other bots are not conversation
	if ev.SubType != "" && ev.SubType != "me_message" {
		return
	}

	t.mu.RLock()
	self := ev.User != "" && ev.User == t.selfID
	t.mu.RUnlock()
	if self || ev.BotID != "" {
		return
	}

	text := ev.Text
	if ev.SubType == "me_message" {
		text = domain.ActionPrefix + text
	}

	sink.HandleAction(ctx, &domain.Event{
		Type:    domain.EventMessage,
		Channel: ev.Channel,
		Nick:    t.userName(ctx, ev.User),
		Text:    text,
		Time:    timestamp(ev.Timestamp),
		Raw:     ev,
	})
}

// userName resolves a user id to a display name, falling back to the id.
func (t *Transport) userName(ctx context.Context, id string) string {
	t.mu.RLock()
	name, ok := t.users[id]
	t.mu.RUnlock()
	if ok {
		return name
	}

	user, err := t.api.GetUserInfoContext(ctx, id)
	if err != nil || user == nil {
		log.Debug().Err(err).Str("user", id).Msg("could not resolve slack user")
		return id
	}

	t.mu.Lock()
	t.users[id] = user.Name
	t.mu.Unlock()

	return user.Name
}

// timestamp parses slack's "seconds.micros" message timestamps.
func timestamp(ts string) time.Time {
	sec, frac, _ := strings.Cut(ts, ".")

	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Now()
	}

	var usec int64
	if frac != "" {
		usec, _ = strconv.ParseInt(frac, 10, 64)
	}

	return time.Unix(s, usec*int64(time.Microsecond))
}
