package domain

import (
	"context"
	"time"
)

// Client is the part of a transport that handlers may talk to directly.
type Client interface {
	// Transmit sends a message to a channel and returns the text that was actually sent. Transport failures are
	// logged by the implementation and reported as ok == false.
	Transmit(ctx context.Context, channel, message string) (sent string, ok bool)
	// Nickname returns the name the bot currently uses on the network.
	Nickname() string
}

type EventType string

const (
	EventMessage   EventType = "message"
	EventJoin      EventType = "join"
	EventLeave     EventType = "leave"
	EventScheduled EventType = "scheduled"
)

// Event is an inbound occurrence reported by a transport or a timer.
type Event struct {
	Type    EventType
	Channel string
	Nick    string
	Text    string
	Time    time.Time
	// Raw carries the transport specific payload, if any.
	Raw any
}

// Channel, Nick and Rest are the injectable views of the dispatch context. Handler functions declare parameters
// of these types to receive the corresponding value.
type (
	Channel string
	Nick    string
	Rest    string
)

// Match is the result of a successful pattern search, as handed to regexp handlers.
type Match struct {
	Groups []string
	names  []string
}

// Group returns the i-th capture group, or an empty string if there is no such group.
func (m *Match) Group(i int) string {
	if m == nil || i < 0 || i >= len(m.Groups) {
		return ""
	}

	return m.Groups[i]
}

// Named returns the capture group with the given name.
func (m *Match) Named(name string) string {
	if m == nil {
		return ""
	}

	for i, n := range m.names {
		if n != "" && n == name {
			return m.Group(i)
		}
	}

	return ""
}

func (m *Match) String() string {
	return m.Group(0)
}

// Argument is what a message handler extracts from the message it matched.
type Argument struct {
	Rest  string
	Match *Match
}

// Seen records where and when a nick last spoke.
type Seen struct {
	Nick    string
	Channel string
	Time    time.Time
}
