package plugins

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/rs/zerolog"
)

var ErrNoStore = errors.New("no log store configured")

// Logging records every message in the log store and registers seen and strike.
func Logging(r *domain.Registry, deps Deps) error {
	if deps.Store == nil {
		return ErrNoStore
	}

	l := &logger{store: deps.Store, now: time.Now}

	var opts []domain.Option
	if deps.Config != nil {
		if exclude := deps.Config.GetStringSlice("logging.exclude"); len(exclude) > 0 {
			opts = append(opts, domain.WithExclude(exclude...))
		}
	}

	if err := r.Content("logger", l.record, opts...); err != nil {
		return err
	}

	if err := r.Command("seen", l.seen,
		domain.WithDoc("Report the last time a nick was seen speaking"),
		domain.WithAliases("lastseen")); err != nil {
		return err
	}

	return r.Command("strike", l.strike,
		domain.WithDoc("Strike last <n> statements from the record"))
}

type logger struct {
	store port.LogStore
	now   func() time.Time
}

func (l *logger) record(ctx context.Context, c domain.Channel, n domain.Nick, rest domain.Rest) {
	if err := l.store.Message(ctx, string(c), string(n), string(rest)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("channel", string(c)).Msg("failed to record message")
	}
}

func (l *logger) seen(ctx context.Context, rest domain.Rest) (string, error) {
	nick := strings.TrimSpace(string(rest))
	if nick == "" {
		return "Who?", nil
	}

	seen, ok, err := l.store.LastSeen(ctx, nick)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("Sorry! I don't have any record of %s speaking", nick), nil
	}

	return fmt.Sprintf("%s was last seen in %s %s ago (%s)",
		seen.Nick, seen.Channel, l.now().Sub(seen.Time).Round(time.Second), seen.Time.UTC().Format(time.DateTime)), nil
}

// strike answers secretly; the reply is not logged either.
func (l *logger) strike(ctx context.Context, c domain.Channel, n domain.Nick, rest domain.Rest) []domain.Item {
	reply := func(s string) []domain.Item {
		return []domain.Item{domain.NoLog, domain.Text(s)}
	}

	count := 1
	if arg := strings.TrimSpace(string(rest)); arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 {
			return reply("Strike how many? Argument must be a positive integer.")
		}
		count = v
	}

	struck, err := l.store.Strike(ctx, string(c), string(n), count)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to strike messages")
		return reply("Hmm.. I didn't find anything of yours to strike!")
	}

	plural := ""
	if struck != 1 {
		plural = "s"
	}

	return reply(fmt.Sprintf("Isn't undo great? Last %d statement%s by %s were stricken from the record.",
		struck, plural, n))
}
