package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Scheduled is a handler fired by a timer rather than a message. Its output goes to Channel.
type Scheduled interface {
	Handler
	Channel() string
}

type scheduled struct {
	base
	channel string
}

func newScheduled(name, channel string, fn any, o *options) (scheduled, error) {
	if name == "" {
		return scheduled{}, ErrEmptyName
	}

	b, err := newBase(name, fn, scheduledProvides, o)
	if err != nil {
		return scheduled{}, fmt.Errorf("scheduled %q: %w", name, err)
	}

	return scheduled{base: b, channel: channel}, nil
}

func (s *scheduled) Channel() string {
	return s.channel
}

// DelayHandler fires once after a delay, or every delay when it repeats.
type DelayHandler struct {
	scheduled
	delay  time.Duration
	repeat bool
}

func NewDelay(name string, delay time.Duration, channel string, fn any, opts ...Option) (*DelayHandler, error) {
	if delay <= 0 {
		return nil, fmt.Errorf("delay %q: %w: duration must be positive, got %s", name, ErrInvalidSchedule, delay)
	}

	o := newOptions(opts)

	s, err := newScheduled(name, channel, fn, o)
	if err != nil {
		return nil, err
	}

	return &DelayHandler{scheduled: s, delay: delay, repeat: o.repeat}, nil
}

func (h *DelayHandler) Kind() Kind {
	return KindDelay
}

func (h *DelayHandler) Delay() time.Duration {
	return h.delay
}

func (h *DelayHandler) Repeat() bool {
	return h.repeat
}

func (h *DelayHandler) key() handlerKey {
	k := h.baseKey(KindDelay)
	k.target = h.channel
	k.schedule = fmt.Sprintf("%s/%t", h.delay, h.repeat)

	return k
}

// AtHandler fires at a fixed moment, or every day at a fixed time of day.
type AtHandler struct {
	scheduled
	at    time.Time
	clock TimeOfDay
	daily bool
}

// NewAt builds a handler that fires once at at.
func NewAt(name string, at time.Time, channel string, fn any, opts ...Option) (*AtHandler, error) {
	if at.IsZero() {
		return nil, fmt.Errorf("at %q: %w: time must be set", name, ErrInvalidSchedule)
	}

	s, err := newScheduled(name, channel, fn, newOptions(opts))
	if err != nil {
		return nil, err
	}

	return &AtHandler{scheduled: s, at: at}, nil
}

// NewDaily builds a handler that fires every day at clock, local time.
func NewDaily(name string, clock TimeOfDay, channel string, fn any, opts ...Option) (*AtHandler, error) {
	if err := clock.Validate(); err != nil {
		return nil, fmt.Errorf("at %q: %w", name, err)
	}

	s, err := newScheduled(name, channel, fn, newOptions(opts))
	if err != nil {
		return nil, err
	}

	return &AtHandler{scheduled: s, clock: clock, daily: true}, nil
}

func (h *AtHandler) Kind() Kind {
	return KindAt
}

func (h *AtHandler) At() time.Time {
	return h.at
}

func (h *AtHandler) Clock() TimeOfDay {
	return h.clock
}

func (h *AtHandler) Daily() bool {
	return h.daily
}

func (h *AtHandler) key() handlerKey {
	k := h.baseKey(KindAt)
	k.target = h.channel
	if h.daily {
		k.schedule = "daily " + h.clock.String()
	} else {
		k.schedule = h.at.UTC().Format(time.RFC3339Nano)
	}

	return k
}

// TimeOfDay is a wall clock time used by daily handlers.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay reads "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q is not a time of day", ErrInvalidSchedule, s)
	}

	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("%w: %q is not a time of day", ErrInvalidSchedule, s)
		}
		fields[i] = n
	}

	t := TimeOfDay{Hour: fields[0], Minute: fields[1], Second: fields[2]}

	return t, t.Validate()
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("%w: %s is not a time of day", ErrInvalidSchedule, t)
	}

	return nil
}

// Next returns the first moment strictly after now at this time of day, in now's location.
func (t TimeOfDay) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, t.Second, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, t.Hour, t.Minute, t.Second, 0, now.Location())
	}

	return next
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}
