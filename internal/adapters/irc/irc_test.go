package irc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Privmsg(target, message string) error {
	args := m.Called(target, message)
	return args.Error(0)
}

func (m *MockConnection) Action(target, message string) error {
	args := m.Called(target, message)
	return args.Error(0)
}

func (m *MockConnection) Join(channel string) error {
	args := m.Called(channel)
	return args.Error(0)
}

func (m *MockConnection) CurrentNick() string {
	args := m.Called()
	return args.String(0)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) HandleAction(ctx context.Context, event *domain.Event) {
	m.Called(ctx, event)
}

func (m *MockSink) HandleJoin(ctx context.Context, event *domain.Event) {
	m.Called(ctx, event)
}

func (m *MockSink) HandleLeave(ctx context.Context, event *domain.Event) {
	m.Called(ctx, event)
}

func newTestTransport(conn *MockConnection) *Transport {
	conn.On("CurrentNick").Return("pmxbot").Maybe()
	return newTransport(Config{Nickname: "pmxbot", Channels: []string{"#a", "#b"}}, nil, conn)
}

func TestTransport_Transmit(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		setupMock func(c *MockConnection)
		wantSent  string
		wantOK    bool
	}{
		{
			name:    "plain message",
			message: "hello",
			setupMock: func(c *MockConnection) {
				c.On("Privmsg", "#test", "hello").Return(nil).Once()
			},
			wantSent: "hello",
			wantOK:   true,
		},
		{
			name:    "action",
			message: "/me waves",
			setupMock: func(c *MockConnection) {
				c.On("Action", "#test", "waves").Return(nil).Once()
			},
			wantSent: "/me waves",
			wantOK:   true,
		},
		{
			name:      "line break rejected",
			message:   "one\ntwo",
			setupMock: func(*MockConnection) {},
			wantOK:    false,
		},
		{
			name:      "too long rejected",
			message:   strings.Repeat("x", maxLineLen),
			setupMock: func(*MockConnection) {},
			wantOK:    false,
		},
		{
			name:    "send failure",
			message: "hello",
			setupMock: func(c *MockConnection) {
				c.On("Privmsg", "#test", "hello").Return(errors.New("not connected")).Once()
			},
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn := new(MockConnection)
			tr := newTestTransport(conn)
			tc.setupMock(conn)

			sent, ok := tr.Transmit(t.Context(), "#test", tc.message)

			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantSent, sent)
			conn.AssertExpectations(t)
			if !tc.wantOK && tc.name != "send failure" {
				conn.AssertNotCalled(t, "Privmsg", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestTransport_TransmitThrottleCancelled(t *testing.T) {
	conn := new(MockConnection)
	conn.On("CurrentNick").Return("pmxbot").Maybe()
	conn.On("Privmsg", "#test", "first").Return(nil).Once()

	tr := newTransport(Config{Nickname: "pmxbot", MessageRate: 0.001, MessageBurst: 1}, nil, conn)

	_, ok := tr.Transmit(t.Context(), "#test", "first")
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, ok = tr.Transmit(ctx, "#test", "second")
	assert.False(t, ok)
	conn.AssertNotCalled(t, "Privmsg", "#test", "second")
}

func TestTransport_Events(t *testing.T) {
	tests := []struct {
		name      string
		msg       ircmsg.Message
		handle    func(tr *Transport, ctx context.Context, sink port.EventSink, e ircmsg.Message)
		method    string
		wantEvent *domain.Event
	}{
		{
			name:      "channel message",
			msg:       ircmsg.MakeMessage(nil, "bob!bob@host", "PRIVMSG", "#test", "!echo hi"),
			handle:    (*Transport).onPrivmsg,
			method:    "HandleAction",
			wantEvent: &domain.Event{Type: domain.EventMessage, Channel: "#test", Nick: "bob", Text: "!echo hi"},
		},
		{
			name:      "private message answers the sender",
			msg:       ircmsg.MakeMessage(nil, "bob!bob@host", "PRIVMSG", "pmxbot", "hello"),
			handle:    (*Transport).onPrivmsg,
			method:    "HandleAction",
			wantEvent: &domain.Event{Type: domain.EventMessage, Channel: "bob", Nick: "bob", Text: "hello"},
		},
		{
			name:      "action becomes a /me message",
			msg:       ircmsg.MakeMessage(nil, "bob!bob@host", "PRIVMSG", "#test", "\x01ACTION waves\x01"),
			handle:    (*Transport).onPrivmsg,
			method:    "HandleAction",
			wantEvent: &domain.Event{Type: domain.EventMessage, Channel: "#test", Nick: "bob", Text: "/me waves"},
		},
		{
			name:   "ctcp version is not chat",
			msg:    ircmsg.MakeMessage(nil, "bob!bob@host", "PRIVMSG", "pmxbot", "\x01VERSION\x01"),
			handle: (*Transport).onPrivmsg,
		},
		{
			name:      "join",
			msg:       ircmsg.MakeMessage(nil, "bob!bob@host", "JOIN", "#test"),
			handle:    (*Transport).onJoin,
			method:    "HandleJoin",
			wantEvent: &domain.Event{Type: domain.EventJoin, Channel: "#test", Nick: "bob"},
		},
		{
			name:      "part",
			msg:       ircmsg.MakeMessage(nil, "bob!bob@host", "PART", "#test", "bye"),
			handle:    (*Transport).onPart,
			method:    "HandleLeave",
			wantEvent: &domain.Event{Type: domain.EventLeave, Channel: "#test", Nick: "bob"},
		},
		{
			name:      "quit",
			msg:       ircmsg.MakeMessage(nil, "bob!bob@host", "QUIT", "gone"),
			handle:    (*Transport).onQuit,
			method:    "HandleLeave",
			wantEvent: &domain.Event{Type: domain.EventLeave, Nick: "bob", Text: "gone"},
		},
		{
			name:   "own join is ignored",
			msg:    ircmsg.MakeMessage(nil, "pmxbot!bot@host", "JOIN", "#test"),
			handle: (*Transport).onJoin,
		},
		{
			name:   "message without text is ignored",
			msg:    ircmsg.MakeMessage(nil, "bob!bob@host", "PRIVMSG", "#test"),
			handle: (*Transport).onPrivmsg,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn := new(MockConnection)
			tr := newTestTransport(conn)
			sink := new(MockSink)

			var got *domain.Event
			if tc.method != "" {
				sink.On(tc.method, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
					got = args.Get(1).(*domain.Event)
				}).Once()
			}

			tc.handle(tr, t.Context(), sink, tc.msg)

			sink.AssertExpectations(t)
			if tc.wantEvent == nil {
				assert.Empty(t, sink.Calls)
				return
			}

			assert.Equal(t, tc.wantEvent.Type, got.Type)
			assert.Equal(t, tc.wantEvent.Channel, got.Channel)
			assert.Equal(t, tc.wantEvent.Nick, got.Nick)
			assert.Equal(t, tc.wantEvent.Text, got.Text)
		})
	}
}

func TestTransport_JoinsChannels(t *testing.T) {
	conn := new(MockConnection)
	tr := newTestTransport(conn)

	conn.On("Join", "#a").Return(nil).Once()
	conn.On("Join", "#b").Return(errors.New("banned")).Once()
	conn.On("Join", "#invited").Return(nil).Once()

	tr.onWelcome()
	tr.onInvite(ircmsg.MakeMessage(nil, "bob!bob@host", "INVITE", "pmxbot", "#invited"))

	conn.AssertExpectations(t)
}

func TestNormalizeCTCP(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "plain text", text: "hello", want: "hello", wantOK: true},
		{name: "action", text: "\x01ACTION waves\x01", want: "/me waves", wantOK: true},
		{name: "action without closing delimiter", text: "\x01ACTION waves", want: "/me waves", wantOK: true},
		{name: "lower-case action", text: "\x01action waves\x01", want: "/me waves", wantOK: true},
		{name: "ping", text: "\x01PING 12345\x01", wantOK: false},
		{name: "version", text: "\x01VERSION\x01", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := normalizeCTCP(tc.text)

			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
