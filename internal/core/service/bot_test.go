package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBot_RunWithoutHandlers(t *testing.T) {
	tr := newMockTransport()
	b := NewBot(domain.NewRegistry(), tr)

	err := b.Run(context.Background())

	require.ErrorIs(t, err, domain.ErrNoHandlers)
	tr.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestBot_InitHookFailure(t *testing.T) {
	r := domain.NewRegistry()
	require.NoError(t, r.Command("ping", func() string { return "pong" }))

	tr := newMockTransport()
	b := NewBot(r, tr)

	finalized := false
	b.AddInitHook(func(context.Context) error { return errors.New("no database") })
	b.AddFinalizer(func() error {
		finalized = true
		return nil
	})

	err := b.Run(context.Background())

	require.ErrorContains(t, err, "no database")
	assert.True(t, finalized)
	tr.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestBot_DispatchesTransportEvents(t *testing.T) {
	r := domain.NewRegistry()
	require.NoError(t, r.Command("ping", func(n domain.Nick) string { return "pong " + string(n) }))
	require.NoError(t, r.OnJoin(func(n domain.Nick) string { return "hi " + string(n) }))

	tr := newMockTransport().echoTransmit()
	tr.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		sink := args.Get(1).(port.EventSink)

		sink.HandleJoin(ctx, &domain.Event{Type: domain.EventJoin, Channel: "#test", Nick: "bob"})
		sink.HandleAction(ctx, message("#test", "bob", "!ping"))
	}).Return(nil)

	b := NewBot(r, tr)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- b.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(tr.Sent()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	require.NoError(t, <-errc)
	assert.Equal(t, []sentMessage{{"#test", "hi bob"}, {"#test", "pong bob"}}, tr.Sent())
}

func TestBot_RunsScheduledHandlers(t *testing.T) {
	r := domain.NewRegistry()
	require.NoError(t, r.ExecDelay("tick", 5*time.Millisecond, "#ops", func() string { return "tick" },
		domain.WithRepeat()))

	tr := newMockTransport().echoTransmit()
	tr.On("Run", mock.Anything, mock.Anything).Return(nil)

	b := NewBot(r, tr)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- b.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(tr.Sent()) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	require.NoError(t, <-errc)
	for _, m := range tr.Sent() {
		assert.Equal(t, sentMessage{"#ops", "tick"}, m)
	}
}

type recordingScheduler struct {
	calls []string
}

func (s *recordingScheduler) ExecuteAfter(context.Context, time.Duration, port.Job) {
	s.calls = append(s.calls, "after")
}

func (s *recordingScheduler) ExecuteEvery(context.Context, time.Duration, port.Job) {
	s.calls = append(s.calls, "every")
}

func (s *recordingScheduler) ExecuteAt(context.Context, time.Time, port.Job) {
	s.calls = append(s.calls, "at")
}

func (s *recordingScheduler) ExecuteDaily(context.Context, domain.TimeOfDay, port.Job) {
	s.calls = append(s.calls, "daily")
}

func TestBot_SchedulesByKind(t *testing.T) {
	r := domain.NewRegistry()
	fn := func() string { return "" }
	require.NoError(t, r.ExecDelay("once", time.Minute, "#a", fn))
	require.NoError(t, r.ExecDelay("often", time.Minute, "#a", fn, domain.WithRepeat()))
	require.NoError(t, r.ExecAt("later", time.Now().Add(time.Hour), "#a", fn))
	require.NoError(t, r.ExecDaily("morning", domain.TimeOfDay{Hour: 9}, "#a", fn))

	tr := newMockTransport()
	tr.On("Run", mock.Anything, mock.Anything).Return(nil)

	s := &recordingScheduler{}
	b := NewBot(r, tr, WithScheduler(s))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, b.Run(ctx))
	assert.ElementsMatch(t, []string{"after", "every", "at", "daily"}, s.calls)
}

func TestBot_TransportFailure(t *testing.T) {
	r := domain.NewRegistry()
	require.NoError(t, r.Command("ping", func() string { return "pong" }))

	tr := &failingTransport{MockTransport: newMockTransport(), err: errors.New("connection refused")}
	b := NewBot(r, tr)

	err := b.Run(context.Background())

	require.ErrorContains(t, err, "connection refused")
}

type failingTransport struct {
	*MockTransport
	err error
}

func (f *failingTransport) Run(context.Context, port.EventSink) error {
	return f.err
}
