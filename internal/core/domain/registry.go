package domain

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry holds the handlers of one bot, one ordered collection per category. It is filled during startup
// and only read afterwards.
type Registry struct {
	message   []Matcher
	scheduled []Scheduled
	join      []Handler
	leave     []Handler
	anonymous int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds h to its category unless an identical handler is already there. Registering a command also
// registers its aliases.
func (r *Registry) Register(h Handler) error {
	var added bool

	switch v := h.(type) {
	case *CommandHandler:
		r.message, added = insert(r.message, Matcher(v))
		for _, alias := range v.aliases {
			r.message, _ = insert(r.message, Matcher(alias))
		}
	case Matcher:
		r.message, added = insert(r.message, v)
	case Scheduled:
		r.scheduled, added = insert(r.scheduled, v)
	case *JoinHandler:
		r.join, added = insert(r.join, h)
	case *LeaveHandler:
		r.leave, added = insert(r.leave, h)
	default:
		return fmt.Errorf("%w: cannot register %T", ErrUnsupportedHandler, h)
	}

	l := log.With().Str("handler", h.Name()).Str("kind", string(h.Kind())).Logger()
	if !added {
		l.Debug().Msg("handler already registered")
		return nil
	}

	l.Info().Msg("adding handler to registry")

	return nil
}

func insert[T Handler](list []T, h T) ([]T, bool) {
	k := h.key()
	for _, existing := range list {
		if existing.key() == k {
			return list, false
		}
	}

	list = append(list, h)
	slices.SortStableFunc(list, func(a, b T) int {
		return compareHandlers(a, b)
	})

	return list, true
}

// Command registers fn as "!name".
func (r *Registry) Command(name string, fn any, opts ...Option) error {
	h, err := NewCommand(name, fn, opts...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// Contains registers fn to run when name appears in a message.
func (r *Registry) Contains(name string, fn any, opts ...Option) error {
	h, err := NewContains(name, fn, opts...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// Regexp registers fn to run when pattern is found in a message.
func (r *Registry) Regexp(name, pattern string, fn any, opts ...Option) error {
	h, err := NewRegexp(name, pattern, fn, opts...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// Content registers fn to see every message, including the ones the bot sends itself.
func (r *Registry) Content(name string, fn any, opts ...Option) error {
	h, err := NewContent(name, fn, opts...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// ExecDelay registers fn to run after delay, sending its output to channel.
func (r *Registry) ExecDelay(name string, delay time.Duration, channel string, fn any, opts ...Option) error {
	h, err := NewDelay(name, delay, channel, fn, opts...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// ExecAt registers fn to run once at at, sending its output to channel.
func (r *Registry) ExecAt(name string, at time.Time, channel string, fn any, opts ...Option) error {
	h, err := NewAt(name, at, channel, fn, opts...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// ExecDaily registers fn to run every day at clock, sending its output to channel.
func (r *Registry) ExecDaily(name string, clock TimeOfDay, channel string, fn any, opts ...Option) error {
	h, err := NewDaily(name, clock, channel, fn, opts...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// OnJoin registers fn to run when someone joins a channel. Unless named with WithName, a function literal is
// always registered as a new hook.
func (r *Registry) OnJoin(fn any, opts ...Option) error {
	h, err := NewJoin("", fn, r.hookOptions(fn, opts)...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// OnLeave registers fn to run when someone leaves a channel or the network.
func (r *Registry) OnLeave(fn any, opts ...Option) error {
	h, err := NewLeave("", fn, r.hookOptions(fn, opts)...)
	if err != nil {
		return err
	}

	return r.Register(h)
}

// hookOptions gives closures a name of their own, so two hooks built by the same function literal are never
// taken for duplicates. A WithName in opts still wins.
func (r *Registry) hookOptions(fn any, opts []Option) []Option {
	name := funcName(fn)
	if !isAnonymous(name) {
		return opts
	}

	r.anonymous++
	if name == "" {
		name = "hook"
	}

	return append([]Option{WithName(fmt.Sprintf("%s#%d", name, r.anonymous))}, opts...)
}

// FindMatching yields the message handlers matching message in channel, in priority order. Matching is
// evaluated lazily, so a caller that stops early never draws rates for the remaining handlers.
func (r *Registry) FindMatching(message, channel string) iter.Seq[Matcher] {
	return func(yield func(Matcher) bool) {
		for _, h := range r.message {
			if h.Matches(message, channel) && !yield(h) {
				return
			}
		}
	}
}

// ContentHandlers returns the content handlers eligible for channel.
func (r *Registry) ContentHandlers(channel string) []*ContainsHandler {
	var handlers []*ContainsHandler
	for _, h := range r.message {
		c, ok := h.(*ContainsHandler)
		if ok && c.kind == KindContent && c.channelMatch(channel) {
			handlers = append(handlers, c)
		}
	}

	return handlers
}

// Commands returns the registered commands ordered by name.
func (r *Registry) Commands() []*CommandHandler {
	var commands []*CommandHandler
	for _, h := range r.message {
		if c, ok := h.(*CommandHandler); ok {
			commands = append(commands, c)
		}
	}

	slices.SortFunc(commands, func(a, b *CommandHandler) int {
		return strings.Compare(a.name, b.name)
	})

	return commands
}

// Lookup finds a command or alias by name, with or without the leading "!".
func (r *Registry) Lookup(name string) (Handler, bool) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), CommandPrefix)

	for _, h := range r.message {
		switch h.Kind() {
		case KindCommand, KindAlias:
			if h.Name() == name {
				return h, true
			}
		}
	}

	return nil, false
}

func (r *Registry) Messages() []Matcher {
	return slices.Clone(r.message)
}

func (r *Registry) Scheduled() []Scheduled {
	return slices.Clone(r.scheduled)
}

func (r *Registry) JoinHandlers() []Handler {
	return slices.Clone(r.join)
}

func (r *Registry) LeaveHandlers() []Handler {
	return slices.Clone(r.leave)
}

// Len counts every registered handler.
func (r *Registry) Len() int {
	return len(r.message) + len(r.scheduled) + len(r.join) + len(r.leave)
}
