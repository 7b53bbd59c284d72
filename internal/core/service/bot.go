package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type queued struct {
	id   uuid.UUID
	kind domain.EventType
	run  func(ctx context.Context)
	done chan struct{}
}

// Bot owns the registry and runs every event, whether from the transport or a timer, one at a time on a
// single goroutine.
type Bot struct {
	registry   *domain.Registry
	transport  port.Transport
	dispatcher *Dispatcher
	scheduler  port.Scheduler
	events     chan queued
	initHooks  []func(ctx context.Context) error
	finalizers []func() error
}

type BotOption func(*Bot)

// WithScheduler replaces the timer based scheduler.
func WithScheduler(scheduler port.Scheduler) BotOption {
	return func(b *Bot) {
		b.scheduler = scheduler
	}
}

// WithDispatcherOptions configures the dispatcher the bot creates.
func WithDispatcherOptions(opts ...DispatcherOption) BotOption {
	return func(b *Bot) {
		b.dispatcher = NewDispatcher(b.registry, b.transport, opts...)
	}
}

func NewBot(registry *domain.Registry, transport port.Transport, opts ...BotOption) *Bot {
	b := &Bot{
		registry:  registry,
		transport: transport,
		events:    make(chan queued),
	}
	b.dispatcher = NewDispatcher(registry, transport)
	b.scheduler = NewTimerScheduler(b.submitJob)

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// AddInitHook registers fn to run before the bot connects. An error aborts startup.
func (b *Bot) AddInitHook(fn func(ctx context.Context) error) {
	b.initHooks = append(b.initHooks, fn)
}

// AddFinalizer registers fn to run when the bot stops.
func (b *Bot) AddFinalizer(fn func() error) {
	b.finalizers = append(b.finalizers, fn)
}

func (b *Bot) Dispatcher() *Dispatcher {
	return b.dispatcher
}

// Run starts the bot and blocks until ctx is done or the transport fails.
func (b *Bot) Run(ctx context.Context) error {
	if b.registry.Len() == 0 {
		return domain.ErrNoHandlers
	}

	defer b.finalize()

	for _, hook := range b.initHooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("running init hook: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	b.schedule(ctx)

	g.Go(func() error {
		return b.loop(ctx)
	})
	g.Go(func() error {
		err := b.transport.Run(ctx, b)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("transport stopped: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// HandleAction queues a message event. It returns once the event has been accepted by the loop, not when it
// has been handled.
func (b *Bot) HandleAction(ctx context.Context, event *domain.Event) {
	b.submit(ctx, domain.EventMessage, func(ctx context.Context) {
		b.dispatcher.HandleAction(ctx, event)
	})
}

func (b *Bot) HandleJoin(ctx context.Context, event *domain.Event) {
	b.submit(ctx, domain.EventJoin, func(ctx context.Context) {
		b.dispatcher.HandleJoin(ctx, event)
	})
}

func (b *Bot) HandleLeave(ctx context.Context, event *domain.Event) {
	b.submit(ctx, domain.EventLeave, func(ctx context.Context) {
		b.dispatcher.HandleLeave(ctx, event)
	})
}

func (b *Bot) schedule(ctx context.Context) {
	for _, h := range b.registry.Scheduled() {
		job := func(ctx context.Context) {
			b.dispatcher.HandleScheduled(ctx, h)
		}

		l := log.With().Str("handler", h.Name()).Str("channel", h.Channel()).Logger()

		switch v := h.(type) {
		case *domain.DelayHandler:
			if v.Repeat() {
				l.Info().Dur("every", v.Delay()).Msg("scheduling repeating handler")
				b.scheduler.ExecuteEvery(ctx, v.Delay(), job)
			} else {
				l.Info().Dur("after", v.Delay()).Msg("scheduling delayed handler")
				b.scheduler.ExecuteAfter(ctx, v.Delay(), job)
			}
		case *domain.AtHandler:
			if v.Daily() {
				l.Info().Str("at", v.Clock().String()).Msg("scheduling daily handler")
				b.scheduler.ExecuteDaily(ctx, v.Clock(), job)
			} else {
				l.Info().Time("at", v.At()).Msg("scheduling handler")
				b.scheduler.ExecuteAt(ctx, v.At(), job)
			}
		default:
			l.Warn().Msg("unknown scheduled handler")
		}
	}
}

func (b *Bot) submitJob(ctx context.Context, job port.Job) <-chan struct{} {
	return b.submit(ctx, domain.EventScheduled, job)
}

// submit queues run for the event loop. The returned channel is closed when run has finished, or right away
// if ctx ends before the loop accepted it.
func (b *Bot) submit(ctx context.Context, kind domain.EventType, run func(ctx context.Context)) <-chan struct{} {
	q := queued{
		id:   uuid.Must(uuid.NewV4()),
		kind: kind,
		run:  run,
		done: make(chan struct{}),
	}

	select {
	case b.events <- q:
	case <-ctx.Done():
		close(q.done)
	}

	return q.done
}

func (b *Bot) loop(ctx context.Context) error {
	log.Info().Msg("bot listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		case q := <-b.events:
			b.process(ctx, q)
		}
	}
}

func (b *Bot) process(ctx context.Context, q queued) {
	defer close(q.done)

	l := log.With().Str("event", q.id.String()).Str("type", string(q.kind)).Logger()
	l.Debug().Msg("processing event")

	q.run(l.WithContext(ctx))
}

func (b *Bot) finalize() {
	for _, fn := range b.finalizers {
		if err := fn(); err != nil {
			log.Warn().Err(err).Msg("finalizer failed")
		}
	}
}
