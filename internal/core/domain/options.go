package domain

import "math/rand/v2"

type options struct {
	name     string
	doc      string
	priority int
	chain    bool
	aliases  []string
	channels []string
	exclude  []string
	rate     float64
	repeat   bool
	random   func() float64
}

func newOptions(opts []Option) *options {
	o := &options{
		rate:   1.0,
		random: rand.Float64,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Option customizes a handler at registration.
type Option func(*options)

// WithName names a join or leave hook. Hooks registered twice under the same name are one hook.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDoc sets the usage text shown by help and in error replies.
func WithDoc(doc string) Option {
	return func(o *options) {
		o.doc = doc
	}
}

// WithPriority breaks ties between handlers of the same kind; higher runs first.
func WithPriority(priority int) Option {
	return func(o *options) {
		o.priority = priority
	}
}

// WithChaining lets dispatch continue to the next matching handler.
func WithChaining() Option {
	return func(o *options) {
		o.chain = true
	}
}

// WithAliases registers additional command names for a command.
func WithAliases(aliases ...string) Option {
	return func(o *options) {
		o.aliases = append(o.aliases, aliases...)
	}
}

// WithChannels restricts a contains handler to the given channels.
func WithChannels(channels ...string) Option {
	return func(o *options) {
		o.channels = append(o.channels, channels...)
	}
}

// WithExclude keeps a contains handler out of the given channels.
func WithExclude(channels ...string) Option {
	return func(o *options) {
		o.exclude = append(o.exclude, channels...)
	}
}

// WithRate sets the probability (0 to 1) that a matching contains handler fires.
func WithRate(rate float64) Option {
	return func(o *options) {
		o.rate = rate
	}
}

// WithRandom replaces the source of the rate draw.
func WithRandom(random func() float64) Option {
	return func(o *options) {
		o.random = random
	}
}

// WithRepeat makes a delay handler fire again every period.
func WithRepeat() Option {
	return func(o *options) {
		o.repeat = true
	}
}
