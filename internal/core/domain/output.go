package domain

import (
	"iter"
	"slices"
)

type ItemKind uint8

const (
	ItemText ItemKind = iota
	ItemNoLog
	ItemSwitchChannel
)

// Item is one element of a handler's output: either a line of text or a sentinel that changes how the
// following lines are delivered.
type Item struct {
	kind  ItemKind
	value string
}

// NoLog marks every following message of the same dispatch as secret, so it is not persisted.
var NoLog = Item{kind: ItemNoLog}

// Text wraps a line of output.
func Text(s string) Item {
	return Item{kind: ItemText, value: s}
}

// SwitchChannel redirects every following message of the same dispatch to channel.
func SwitchChannel(channel string) Item {
	return Item{kind: ItemSwitchChannel, value: channel}
}

func (i Item) Kind() ItemKind {
	return i.kind
}

func (i Item) Value() string {
	return i.value
}

func (i Item) IsSentinel() bool {
	return i.kind != ItemText
}

// Output is the lazy result of a handler. A non-nil error ends the sequence.
type Output = iter.Seq2[Item, error]

// Empty produces no output.
func Empty() Output {
	return func(func(Item, error) bool) {}
}

// Items produces the given items in order.
func Items(items ...Item) Output {
	return func(yield func(Item, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Lines produces one text item per line, skipping empty strings.
func Lines(lines ...string) Output {
	return func(yield func(Item, error) bool) {
		for _, line := range lines {
			if line == "" {
				continue
			}
			if !yield(Text(line), nil) {
				return
			}
		}
	}
}

// Fail produces nothing but the error.
func Fail(err error) Output {
	return func(yield func(Item, error) bool) {
		yield(Item{}, err)
	}
}

// Concat drains each output in turn.
func Concat(outputs ...Output) Output {
	return func(yield func(Item, error) bool) {
		for _, out := range outputs {
			for item, err := range out {
				if !yield(item, err) || err != nil {
					return
				}
			}
		}
	}
}

// Properties is the delivery metadata attached to an outgoing message.
type Properties struct {
	Channel string
	Secret  bool
}

// AugmentableMessage is a line of text together with the properties it is delivered with.
type AugmentableMessage struct {
	Text string
	Properties
}

func (m AugmentableMessage) String() string {
	return m.Text
}

// Augment walks out in order and attaches the current properties to every text item. Sentinels update the
// properties for the items after them and are not emitted themselves. Empty text is dropped.
func Augment(out Output, channel string) iter.Seq2[AugmentableMessage, error] {
	return func(yield func(AugmentableMessage, error) bool) {
		props := Properties{Channel: channel}

		for item, err := range out {
			if err != nil {
				yield(AugmentableMessage{Properties: props}, err)
				return
			}

			switch item.kind {
			case ItemNoLog:
				props.Secret = true
				continue
			case ItemSwitchChannel:
				props.Channel = item.value
				continue
			}

			if item.value == "" {
				continue
			}

			if !yield(AugmentableMessage{Text: item.value, Properties: props}, nil) {
				return
			}
		}
	}
}

// Collect drains out into a slice, stopping at the first error.
func Collect(out Output) ([]Item, error) {
	var items []Item
	for item, err := range out {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}

	return slices.Clip(items), nil
}
