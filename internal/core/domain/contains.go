package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ContainsHandler runs when its name appears anywhere in a message, subject to channel lists and a trigger rate.
type ContainsHandler struct {
	base
	kind     Kind
	channels []string
	exclude  []string
	rate     float64
	random   func() float64
}

// NewContains builds a handler matching the lower-cased name as a substring of the lower-cased message.
func NewContains(name string, fn any, opts ...Option) (*ContainsHandler, error) {
	name = strings.ToLower(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	return newContains(KindContains, name, fn, newOptions(opts))
}

// NewContent builds a handler that sees every message in its eligible channels and always lets dispatch
// continue. The name only identifies it.
func NewContent(name string, fn any, opts ...Option) (*ContainsHandler, error) {
	o := newOptions(opts)
	o.chain = true

	return newContains(KindContent, name, fn, o)
}

func newContains(kind Kind, name string, fn any, o *options) (*ContainsHandler, error) {
	if o.rate < 0 || o.rate > 1 {
		return nil, fmt.Errorf("%s %q: %w", kind, name, ErrInvalidRate)
	}

	b, err := newBase(name, fn, messageProvides, o)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, name, err)
	}

	return &ContainsHandler{
		base:     b,
		kind:     kind,
		channels: o.channels,
		exclude:  o.exclude,
		rate:     o.rate,
		random:   o.random,
	}, nil
}

func (h *ContainsHandler) Kind() Kind {
	return h.kind
}

func (h *ContainsHandler) Rate() float64 {
	return h.rate
}

func (h *ContainsHandler) Matches(message, channel string) bool {
	if h.kind != KindContent && !strings.Contains(strings.ToLower(message), h.name) {
		return false
	}

	return h.channelMatch(channel) && h.rateMatch()
}

func (h *ContainsHandler) Process(message string) Argument {
	return Argument{Rest: message}
}

// channelMatch: with neither list set every channel is eligible; otherwise a channel is eligible when it is
// allowed, or when an exclude list is set and does not name it.
func (h *ContainsHandler) channelMatch(channel string) bool {
	return len(h.channels) == 0 && len(h.exclude) == 0 ||
		slices.Contains(h.channels, channel) ||
		len(h.exclude) > 0 && !slices.Contains(h.exclude, channel)
}

func (h *ContainsHandler) rateMatch() bool {
	return h.random() < h.rate
}

func (h *ContainsHandler) key() handlerKey {
	k := h.baseKey(h.kind)
	k.channels = strings.Join(h.channels, "\x00")
	k.exclude = strings.Join(h.exclude, "\x00")
	k.rate = h.rate

	return k
}

// RegexpHandler runs when its pattern is found in a message. The handler receives the match rather than
// cleaned text.
type RegexpHandler struct {
	ContainsHandler
	pattern *regexp.Regexp
}

// NewRegexp compiles pattern and builds a handler for it.
func NewRegexp(name, pattern string, fn any, opts ...Option) (*RegexpHandler, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regexp %q: %w", name, err)
	}

	c, err := newContains(KindRegexp, name, fn, newOptions(opts))
	if err != nil {
		return nil, err
	}

	return &RegexpHandler{ContainsHandler: *c, pattern: re}, nil
}

func (h *RegexpHandler) Pattern() *regexp.Regexp {
	return h.pattern
}

func (h *RegexpHandler) Matches(message, channel string) bool {
	return h.pattern.MatchString(message) && h.channelMatch(channel) && h.rateMatch()
}

func (h *RegexpHandler) Process(message string) Argument {
	groups := h.pattern.FindStringSubmatch(message)
	if groups == nil {
		return Argument{Rest: message}
	}

	return Argument{
		Rest:  message,
		Match: &Match{Groups: groups, names: h.pattern.SubexpNames()},
	}
}

func (h *RegexpHandler) key() handlerKey {
	k := h.ContainsHandler.key()
	k.pattern = h.pattern.String()

	return k
}
