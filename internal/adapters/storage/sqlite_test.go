package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	s, err := OpenSQLite(t.Context(), memory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// strictly increasing timestamps
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return s
}

func TestSQLite_LastSeen(t *testing.T) {
	s := newTestSQLite(t)
	ctx := t.Context()

	require.NoError(t, s.Message(ctx, "#a", "Alice", "hello"))
	require.NoError(t, s.Message(ctx, "#b", "bob", "hi"))
	require.NoError(t, s.Message(ctx, "#c", "alice", "bye"))

	tests := []struct {
		name        string
		nick        string
		wantOK      bool
		wantChannel string
	}{
		{name: "latest channel wins", nick: "alice", wantOK: true, wantChannel: "#c"},
		{name: "nick is case-insensitive", nick: "BOB", wantOK: true, wantChannel: "#b"},
		{name: "unknown nick", nick: "carol", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen, ok, err := s.LastSeen(ctx, tc.nick)

			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantChannel, seen.Channel)
			if ok {
				assert.False(t, seen.Time.IsZero())
			}
		})
	}
}

func TestSQLite_Strike(t *testing.T) {
	tests := []struct {
		name      string
		lines     int
		count     int
		want      int
		remaining int
	}{
		{name: "strike one", lines: 3, count: 1, want: 1, remaining: 1},
		{name: "strike more than said", lines: 2, count: 5, want: 1, remaining: 0},
		{name: "strike zero removes only the request", lines: 2, count: 0, want: 0, remaining: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSQLite(t)
			ctx := t.Context()

			for range tc.lines {
				require.NoError(t, s.Message(ctx, "#a", "alice", "oops"))
			}
			require.NoError(t, s.Message(ctx, "#a", "bob", "unrelated"))
			require.NoError(t, s.Message(ctx, "#b", "alice", "elsewhere"))

			got, err := s.Strike(ctx, "#a", "alice", tc.count)

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			var remaining int
			require.NoError(t, s.conn.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM logs WHERE channel = '#a' AND nick = 'alice'").Scan(&remaining))
			assert.Equal(t, tc.remaining, remaining)

			var others int
			require.NoError(t, s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs WHERE nick <> 'alice' OR channel <> '#a'").Scan(&others))
			assert.Equal(t, 2, others)
		})
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr error
	}{
		{name: "sqlite memory", uri: "sqlite::memory:"},
		{name: "sqlite file", uri: "sqlite:" + filepath.Join(t.TempDir(), "db", "pmxbot.sqlite")},
		{name: "unknown scheme", uri: "postgres://localhost/pmxbot", wantErr: ErrUnsupportedScheme},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(t.Context(), tc.uri)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, store.Close())
		})
	}
}
