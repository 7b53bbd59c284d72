package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"strings"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/rs/zerolog"
)

var expletives = []string{"Yikes!", "Zoiks!", "Ouch!"}

// Dispatcher selects the handlers for an event, runs them and sends what they produce.
type Dispatcher struct {
	registry  *domain.Registry
	transport port.Transport
	metrics   *Metrics
	random    func(n int) int
	now       func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithExpletive replaces the choice of apology word in error replies.
func WithExpletive(random func(n int) int) DispatcherOption {
	return func(d *Dispatcher) {
		d.random = random
	}
}

func NewDispatcher(registry *domain.Registry, transport port.Transport, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		transport: transport,
		random:    rand.IntN,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// HandleAction dispatches a message to the matching handlers in priority order, stopping after the first
// handler that does not allow chaining, and transmits their combined output.
func (d *Dispatcher) HandleAction(ctx context.Context, event *domain.Event) {
	message := strings.TrimSpace(event.Text)
	if message == "" {
		return
	}

	d.metrics.event(string(domain.EventMessage))

	var outputs []domain.Output
	for h := range d.registry.FindMatching(message, event.Channel) {
		arg := h.Process(message)

		outputs = append(outputs, d.invoke(ctx, h, &domain.Context{
			Client:  d.transport,
			Event:   event,
			Channel: event.Channel,
			Nick:    event.Nick,
			Rest:    arg.Rest,
			Match:   arg.Match,
		}))

		if !h.AllowChain() {
			break
		}
	}

	d.handleOutput(ctx, event.Channel, domain.Concat(outputs...))
}

// HandleScheduled runs a scheduled handler and sends its output to the handler's channel.
func (d *Dispatcher) HandleScheduled(ctx context.Context, target domain.Scheduled) {
	d.metrics.event(string(domain.EventScheduled))

	event := &domain.Event{Type: domain.EventScheduled, Channel: target.Channel(), Time: d.now()}
	out := d.invoke(ctx, target, &domain.Context{
		Client:  d.transport,
		Event:   event,
		Channel: target.Channel(),
	})

	d.handleOutput(ctx, target.Channel(), out)
}

// HandleJoin runs every join hook.
func (d *Dispatcher) HandleJoin(ctx context.Context, event *domain.Event) {
	d.handleHooks(ctx, event, d.registry.JoinHandlers())
}

// HandleLeave runs every leave hook.
func (d *Dispatcher) HandleLeave(ctx context.Context, event *domain.Event) {
	d.handleHooks(ctx, event, d.registry.LeaveHandlers())
}

func (d *Dispatcher) handleHooks(ctx context.Context, event *domain.Event, hooks []domain.Handler) {
	d.metrics.event(string(event.Type))

	outputs := make([]domain.Output, 0, len(hooks))
	for _, h := range hooks {
		outputs = append(outputs, d.invoke(ctx, h, &domain.Context{
			Client:  d.transport,
			Event:   event,
			Channel: event.Channel,
			Nick:    event.Nick,
		}))
	}

	d.handleOutput(ctx, event.Channel, domain.Concat(outputs...))
}

// Out transmits one message. A message that was sent, may be logged and is not an action is fed back to the
// content handlers as something the bot said.
func (d *Dispatcher) Out(ctx context.Context, channel, text string, logged bool) {
	sent, ok := d.transport.Transmit(ctx, channel, text)
	d.metrics.message(ok)

	if !ok || !logged || strings.HasPrefix(text, domain.ActionPrefix) {
		return
	}

	d.feedContent(ctx, channel, sent)
}

func (d *Dispatcher) feedContent(ctx context.Context, channel, text string) {
	nick := d.transport.Nickname()
	event := &domain.Event{Type: domain.EventMessage, Channel: channel, Nick: nick, Text: text, Time: d.now()}

	for _, h := range d.registry.ContentHandlers(channel) {
		out := d.invoke(ctx, h, &domain.Context{
			Client:  d.transport,
			Event:   event,
			Channel: channel,
			Nick:    nick,
			Rest:    text,
		})

		// content handlers react silently to the bot's own messages
		for range out {
		}
	}
}

func (d *Dispatcher) handleOutput(ctx context.Context, channel string, out domain.Output) {
	for msg, err := range domain.Augment(out, channel) {
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("channel", channel).Msg("output ended with an error")
			return
		}

		if msg.Channel == "" {
			zerolog.Ctx(ctx).Warn().Str("message", msg.Text).Msg("no channel to send to, dropping message")
			continue
		}

		d.Out(ctx, msg.Channel, msg.Text, !msg.Secret)
	}
}

// invoke defers calling h until its output is drained. Whatever h fails with, whether an error result, an
// error in its sequence or a panic, ends its output with an apology instead.
func (d *Dispatcher) invoke(ctx context.Context, h domain.Handler, hc *domain.Context) domain.Output {
	return func(yield func(domain.Item, error) bool) {
		l := zerolog.Ctx(ctx).With().
			Str("handler", h.Name()).
			Str("kind", string(h.Kind())).
			Str("channel", hc.Channel).
			Logger()

		l.Debug().Msg("running handler")
		d.metrics.call(string(h.Kind()))

		var failure error
		inYield := false
		stopped := false

		func() {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if inYield {
					panic(r)
				}
				failure = fmt.Errorf("%v", r)
				l.Error().Str("stack", string(debug.Stack())).Interface("panic", r).Msg("handler panicked")
			}()

			for item, err := range h.Call(ctx, hc) {
				if err != nil {
					failure = err
					return
				}

				inYield = true
				if !yield(item, nil) {
					stopped = true
					return
				}
				inYield = false
			}
		}()

		if failure == nil || stopped {
			return
		}

		d.metrics.failure(string(h.Kind()))
		l.Error().Err(failure).Msg("error with handler")

		for _, line := range d.apology(h, failure) {
			if !yield(domain.Text(line), nil) {
				return
			}
		}
	}
}

func (d *Dispatcher) apology(h domain.Handler, err error) []string {
	lines := []string{fmt.Sprintf("%s An error occurred: %s", expletives[d.random(len(expletives))], err)}
	if doc := h.Doc(); doc != "" {
		lines = append(lines, domain.CommandPrefix+h.Name()+" "+doc)
	}

	return lines
}
