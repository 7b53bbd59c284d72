package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

const MessageLimit = 4096

//go:generate mockery --name Bot

// Bot is the part of the telegram client the transport sends through.
type Bot interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Transport receives updates by long polling. Channels are decimal chat ids.
type Transport struct {
	bot    *bot.Bot
	sender Bot

	mu   sync.RWMutex
	nick string
	sink port.EventSink
}

func New(token string) (*Transport, error) {
	t := &Transport{}

	b, err := bot.New(token, bot.WithDefaultHandler(t.handle))
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	t.bot, t.sender = b, b

	return t, nil
}

func (t *Transport) Nickname() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.nick
}

// Transmit sends message to a chat, split into chunks of at most MessageLimit bytes.
func (t *Transport) Transmit(ctx context.Context, channel, message string) (string, bool) {
	chatID, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("channel is not a telegram chat id")
		return "", false
	}

	for _, chunk := range chunks(message, MessageLimit) {
		_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		})
		if err != nil {
			log.Warn().Err(err).Int64("chatID", chatID).Msg("failed to send message")
			return "", false
		}
	}

	return message, true
}

// Run polls for updates until ctx is done.
func (t *Transport) Run(ctx context.Context, sink port.EventSink) error {
	if t.bot == nil {
		return errors.New("telegram bot not configured")
	}

	me, err := t.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("getting bot identity: %w", err)
	}

	t.mu.Lock()
	t.nick = me.Username
	t.sink = sink
	t.mu.Unlock()

	log.Info().Str("nick", me.Username).Msg("bot listening")
	t.bot.Start(ctx)

	return nil
}

func (t *Transport) handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	t.mu.RLock()
	sink := t.sink
	t.mu.RUnlock()

	if sink == nil || update.Message == nil {
		return
	}

	msg := update.Message
	channel := strconv.FormatInt(msg.Chat.ID, 10)
	when := time.Unix(int64(msg.Date), 0)

	for _, user := range msg.NewChatMembers {
		sink.HandleJoin(ctx, &domain.Event{
			Type:    domain.EventJoin,
			Channel: channel,
			Nick:    userName(&user),
			Time:    when,
			Raw:     update,
		})
	}

	if msg.LeftChatMember != nil {
		sink.HandleLeave(ctx, &domain.Event{
			Type:    domain.EventLeave,
			Channel: channel,
			Nick:    userName(msg.LeftChatMember),
			Time:    when,
			Raw:     update,
		})
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" || msg.From == nil {
		return
	}

	log.Debug().Str("channel", channel).Str("message", text).Msg("received message")

	sink.HandleAction(ctx, &domain.Event{
		Type:    domain.EventMessage,
		Channel: channel,
		Nick:    userName(msg.From),
		Text:    text,
		Time:    when,
		Raw:     update,
	})
}

func userName(user *models.User) string {
	if user.Username == "" {
		return user.FirstName
	}

	return user.Username
}

// chunks splits s into pieces of at most limit bytes without cutting a UTF-8 sequence.
func chunks(s string, limit int) []string {
	var out []string
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}

	return append(out, s)
}
