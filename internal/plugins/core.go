package plugins

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"strings"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"

	"github.com/rs/zerolog"
)

// helpPage is the most of the command list that goes into one message.
const helpPage = 160

// Core registers help, debug and ctlaltdel.
func Core(r *domain.Registry, deps Deps) error {
	var delay time.Duration
	if deps.Config != nil {
		delay = deps.Config.GetDuration("bot.help_delay")
	}

	if err := r.Command("help", help(r, delay),
		domain.WithDoc("Help (this command)"),
		domain.WithAliases("h", "man")); err != nil {
		return err
	}

	if err := r.Command("debug", debugInfo,
		domain.WithDoc("Show runtime statistics")); err != nil {
		return err
	}

	return r.Command("ctlaltdel", ctlaltdel(deps.Shutdown),
		domain.WithDoc("Quits the bot. A supervisor should automatically restart it."),
		domain.WithAliases("controlaltdelete", "cad", "restart", "quit"))
}

// help answers with the doc of one command, or pages through the list of all commands, pausing between pages.
func help(r *domain.Registry, delay time.Duration) func(ctx context.Context, rest domain.Rest) iter.Seq[string] {
	return func(ctx context.Context, rest domain.Rest) iter.Seq[string] {
		return func(yield func(string) bool) {
			if name := strings.TrimSpace(string(rest)); name != "" {
				h, ok := r.Lookup(name)
				if !ok {
					yield("command not found")
					return
				}
				yield(fmt.Sprintf("!%s: %s", h.Name(), h.Doc()))
				return
			}

			var entries []string
			for _, c := range r.Commands() {
				entry := domain.CommandPrefix + c.Name()
				if aliases := c.Aliases(); len(aliases) > 0 {
					names := make([]string, len(aliases))
					for i, a := range aliases {
						names[i] = a.Name()
					}
					entry += " (" + strings.Join(names, ", ") + ")"
				}
				entries = append(entries, entry)
			}

			for i, page := range pages(entries, helpPage) {
				if i > 0 && !sleep(ctx, delay) {
					return
				}
				if !yield(page) {
					return
				}
			}
		}
	}
}

// pages joins entries with spaces into pages of at most limit bytes. Entries are never split; one longer than
// limit gets a page of its own.
func pages(entries []string, limit int) []string {
	var (
		out  []string
		page strings.Builder
	)

	for _, entry := range entries {
		if page.Len() > 0 && page.Len()+1+len(entry) > limit {
			out = append(out, page.String())
			page.Reset()
		}
		if page.Len() > 0 {
			page.WriteByte(' ')
		}
		page.WriteString(entry)
	}

	if page.Len() > 0 {
		out = append(out, page.String())
	}

	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

const kb = 1024

const debugTemplate = `allocated mem: %d KB
threads running: %d
heap: %d KB
stack: %d KB
compiled with %s for %s-%s`

func debugInfo(ctx context.Context) []string {
	data := []metrics.Sample{
		{Name: "/memory/classes/heap/objects:bytes"},
		{Name: "/memory/classes/heap/stacks:bytes"},
		{Name: "/memory/classes/total:bytes"},
	}
	metrics.Read(data)

	zerolog.Ctx(ctx).Debug().Uint64("total", data[2].Value.Uint64()).Msg("handling debug request")

	goos, goarch := runtime.GOOS, runtime.GOARCH
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "GOOS":
				goos = setting.Value
			case "GOARCH":
				goarch = setting.Value
			}
		}
	}

	return strings.Split(fmt.Sprintf(
		debugTemplate,
		data[2].Value.Uint64()/kb,
		runtime.NumGoroutine(),
		data[0].Value.Uint64()/kb,
		data[1].Value.Uint64()/kb,
		runtime.Version(), goos, goarch,
	), "\n")
}

// ctlaltdel stops the bot once the goodbye has been sent.
func ctlaltdel(shutdown context.CancelFunc) func(ctx context.Context, rest domain.Rest) iter.Seq[string] {
	return func(ctx context.Context, rest domain.Rest) iter.Seq[string] {
		return func(yield func(string) bool) {
			if !strings.Contains(strings.ToLower(string(rest)), "real") || shutdown == nil {
				yield("Really?")
				return
			}

			yield("Restarting...")

			zerolog.Ctx(ctx).Warn().Msg("shutdown requested from chat")
			shutdown()
		}
	}
}
