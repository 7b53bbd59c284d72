package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names[T Handler](handlers []T) []string {
	out := make([]string, len(handlers))
	for i, h := range handlers {
		out[i] = h.Name()
	}

	return out
}

func TestRegistryLongerNameWins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Command("top", func() string { return "top" }))
	require.NoError(t, r.Command("top10", func() string { return "top10" }))

	var matched []string
	for h := range r.FindMatching("!top10 5", "#test") {
		matched = append(matched, h.Name())
	}

	assert.Equal(t, []string{"top10"}, matched)
	assert.Equal(t, []string{"top10", "top"}, names(r.Messages()))
}

func TestRegistryDuplicateSuppression(t *testing.T) {
	r := NewRegistry()
	fn := func(rest Rest) string { return string(rest) }

	require.NoError(t, r.Command("echo", fn, WithDoc("echo it")))
	require.NoError(t, r.Command("echo", fn, WithDoc("echo it")))
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Command("echo", fn, WithDoc("different doc")))
	assert.Equal(t, 2, r.Len())
}

func TestRegistryDuplicateAliases(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Command("help", noop, WithAliases("h")))
	require.NoError(t, r.Command("help", noop, WithAliases("h")))

	assert.Equal(t, 2, r.Len())
}

func TestRegistryClassOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Contains("word", noop))
	require.NoError(t, r.Command("cmd", noop, WithAliases("c")))
	require.NoError(t, r.Regexp("re", `x`, noop))
	require.NoError(t, r.Content("logger", noop))
	require.NoError(t, r.Contains("other", noop, WithPriority(2)))

	var kinds []Kind
	for _, h := range r.Messages() {
		kinds = append(kinds, h.Kind())
	}

	assert.Equal(t, []Kind{KindContent, KindRegexp, KindCommand, KindAlias, KindContains, KindContains}, kinds)
	assert.Equal(t, "other", r.Messages()[4].Name(), "higher declared priority first")
}

func TestRegistryFindMatchingIsLazy(t *testing.T) {
	r := NewRegistry()
	draws := 0
	random := func() float64 {
		draws++
		return 0
	}
	require.NoError(t, r.Contains("hello", noop, WithRandom(random), WithPriority(1)))
	require.NoError(t, r.Contains("hello", func() {}, WithRandom(random)))

	for range r.FindMatching("hello there", "#test") {
		break
	}

	assert.Equal(t, 1, draws)
}

func TestRegistryCategories(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.ExecDelay("tick", time.Minute, "#test", noop, WithRepeat()))
	require.NoError(t, r.ExecAt("once", time.Now().Add(time.Hour), "#test", noop))
	require.NoError(t, r.ExecDaily("daily", TimeOfDay{Hour: 9}, "#test", noop))
	require.NoError(t, r.OnJoin(func(nick Nick) string { return "hi " + string(nick) }))
	require.NoError(t, r.OnLeave(noop))

	assert.Len(t, r.Scheduled(), 3)
	assert.Len(t, r.JoinHandlers(), 1)
	assert.Len(t, r.LeaveHandlers(), 1)
	assert.Equal(t, "noop", r.LeaveHandlers()[0].Name())
	assert.Equal(t, 5, r.Len())
	assert.Empty(t, r.Messages())
}

func TestRegistryRejectsUnavailableParameters(t *testing.T) {
	r := NewRegistry()

	err := r.ExecDelay("tick", time.Minute, "#test", func(nick Nick) {})
	require.ErrorIs(t, err, ErrUnboundParameter)

	err = r.OnJoin(func(rest Rest) {})
	require.ErrorIs(t, err, ErrUnboundParameter)

	err = r.ExecAt("never", time.Time{}, "#test", noop)
	require.ErrorIs(t, err, ErrInvalidSchedule)

	assert.Equal(t, 0, r.Len())
}

func TestRegistryLookupAndCommands(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Command("zeta", noop))
	require.NoError(t, r.Command("alpha", noop, WithAliases("a")))
	require.NoError(t, r.Contains("alpha", noop))

	assert.Equal(t, []string{"alpha", "zeta"}, names(r.Commands()))

	h, ok := r.Lookup("!A")
	require.True(t, ok)
	assert.Equal(t, KindAlias, h.Kind())

	h, ok = r.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, KindCommand, h.Kind())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryContentHandlers(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Content("logger", noop, WithExclude("#quiet")))
	require.NoError(t, r.Contains("word", noop))

	assert.Len(t, r.ContentHandlers("#test"), 1)
	assert.Empty(t, r.ContentHandlers("#quiet"))
}

func TestHandlerCall(t *testing.T) {
	h, err := NewCommand("echo", func(rest Rest) string { return string(rest) })
	require.NoError(t, err)

	items, err := Collect(h.Call(context.Background(), &Context{Rest: "hello"}))
	require.NoError(t, err)
	assert.Equal(t, []Item{Text("hello")}, items)
}

//go:noinline
func greeting(msg string) func(n Nick) string {
	return func(n Nick) string { return msg + " " + string(n) }
}

func inlinedGreeting(msg string) func(n Nick) string {
	return func(n Nick) string { return msg + " " + string(n) }
}

func TestRegistryHookClosures(t *testing.T) {
	tests := []struct {
		name    string
		factory func(string) func(Nick) string
	}{
		{name: "non-inlined factory", factory: greeting},
		{name: "inlinable factory", factory: inlinedGreeting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.OnJoin(tt.factory("hello")))
			require.NoError(t, r.OnJoin(tt.factory("welcome")))

			hooks := r.JoinHandlers()
			require.Len(t, hooks, 2)
			assert.NotEqual(t, hooks[0].Name(), hooks[1].Name())

			var said []string
			for _, h := range hooks {
				items, err := Collect(h.Call(context.Background(), &Context{Nick: "bob"}))
				require.NoError(t, err)
				require.Len(t, items, 1)
				said = append(said, items[0].Value())
			}
			assert.ElementsMatch(t, []string{"hello bob", "welcome bob"}, said)
		})
	}
}

func TestRegistryNamedHooks(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.OnJoin(greeting("hello"), WithName("welcome")))
	require.NoError(t, r.OnJoin(greeting("hi"), WithName("welcome")))
	require.NoError(t, r.OnLeave(noop))
	require.NoError(t, r.OnLeave(noop))

	assert.Equal(t, []string{"welcome"}, names(r.JoinHandlers()))
	assert.Equal(t, []string{"noop"}, names(r.LeaveHandlers()))
}

func TestRegistryDuplicatesIgnoreFunction(t *testing.T) {
	tests := []struct {
		name    string
		factory func(string) func(Nick) string
	}{
		{name: "non-inlined factory", factory: greeting},
		{name: "inlinable factory", factory: inlinedGreeting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Contains("hello", tt.factory("hi"), WithChaining()))
			require.NoError(t, r.Contains("hello", tt.factory("hey"), WithChaining()))
			require.NoError(t, r.Contains("hello", tt.factory("hey"), WithChaining(), WithPriority(1)))

			assert.Len(t, r.Messages(), 2)
		})
	}
}

func TestFuncName(t *testing.T) {
	closure := func() {}

	assert.Equal(t, "noop", funcName(noop))
	assert.Regexp(t, `^TestFuncName\.func\d+$`, funcName(closure))
	assert.Empty(t, funcName(nil))

	assert.False(t, isAnonymous(funcName(noop)))
	assert.True(t, isAnonymous(funcName(closure)))
	assert.True(t, isAnonymous(funcName(greeting("x"))))
}
