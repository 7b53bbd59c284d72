package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandArgs(t *testing.T) {
	type TestCase struct {
		description string
		args        string
		want        string
	}

	testCases := []TestCase{
		{
			description: "should discard first word",
			args:        "!echo 12",
			want:        "12",
		},
		{
			description: "should only discard first word",
			args:        "!echo 12 13",
			want:        "12 13",
		},
		{
			description: "should split on tabs",
			args:        "!echo\thello",
			want:        "hello",
		},
		{
			description: "empty on no args",
			args:        "!echo",
			want:        "",
		},
		{
			description: "empty on no input",
			args:        "",
			want:        "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			got := ParseCommandArgs(testCase.args)

			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestParseCommand(t *testing.T) {
	type TestCase struct {
		description string
		args        string
		want        string
	}

	testCases := []TestCase{
		{
			description: "should return first word",
			args:        "!help",
			want:        "!help",
		},
		{
			description: "should discard following words",
			args:        "!help me please",
			want:        "!help",
		},
		{
			description: "should lower-case",
			args:        "!HeLp",
			want:        "!help",
		},
		{
			description: "empty on no input",
			args:        "",
			want:        "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			got := ParseCommand(testCase.args)

			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestCommandHandlerMatches(t *testing.T) {
	h, err := NewCommand("Echo", func(rest Rest) string { return string(rest) })
	require.NoError(t, err)
	assert.Equal(t, "echo", h.Name())

	tests := []struct {
		message string
		want    bool
	}{
		{message: "!echo", want: true},
		{message: "!ECHO hello", want: true},
		{message: "!echoes hello", want: false},
		{message: "echo hello", want: false},
		{message: "say !echo", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.message, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Matches(tc.message, "#test"))
		})
	}

	assert.Equal(t, "hello world", h.Process("!echo hello world").Rest)
}

func TestCommandAliases(t *testing.T) {
	h, err := NewCommand("help", func() string { return "" }, WithDoc("shows help"), WithAliases("h", "Man"))
	require.NoError(t, err)
	require.Len(t, h.Aliases(), 2)

	alias := h.Aliases()[1]
	assert.Equal(t, "man", alias.Name())
	assert.Equal(t, KindAlias, alias.Kind())
	assert.Equal(t, "shows help", alias.Doc())
	assert.Same(t, h, alias.Parent())
	assert.True(t, alias.Matches("!man commands", ""))
	assert.False(t, alias.Matches("!help", ""))
	assert.Equal(t, "commands", alias.Process("!man commands").Rest)
}

func TestNewCommandErrors(t *testing.T) {
	_, err := NewCommand("  ", func() {})
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = NewCommand("ok", func() {}, WithAliases(""))
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = NewCommand("ok", "not a function")
	require.ErrorIs(t, err, ErrUnsupportedHandler)
}
