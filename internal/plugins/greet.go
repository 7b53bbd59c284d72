package plugins

import (
	"context"
	"strings"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"

	"github.com/rs/zerolog"
)

// Greet logs arrivals and departures and, when greet.message is set, welcomes whoever joins. The message may
// use {nick} and {channel}.
func Greet(r *domain.Registry, deps Deps) error {
	var message string
	if deps.Config != nil {
		message = deps.Config.GetString("greet.message")
	}

	welcome := func(ctx context.Context, c domain.Channel, n domain.Nick) string {
		zerolog.Ctx(ctx).Info().Str("channel", string(c)).Str("nick", string(n)).Msg("user joined")

		if message == "" || c == "" {
			return ""
		}

		return strings.NewReplacer("{nick}", string(n), "{channel}", string(c)).Replace(message)
	}

	farewell := func(ctx context.Context, c domain.Channel, n domain.Nick, ev *domain.Event) {
		zerolog.Ctx(ctx).Info().Str("channel", string(c)).Str("nick", string(n)).Str("reason", ev.Text).
			Msg("user left")
	}

	if err := r.OnJoin(welcome, domain.WithName("greet")); err != nil {
		return err
	}

	return r.OnLeave(farewell, domain.WithName("farewell"))
}
