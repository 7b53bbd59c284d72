package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// CommandHandler runs when the first word of a message is "!" followed by its name.
type CommandHandler struct {
	base
	aliases []*AliasHandler
}

// NewCommand builds a command handler and its aliases. Names are case-insensitive.
func NewCommand(name string, fn any, opts ...Option) (*CommandHandler, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrEmptyName
	}

	o := newOptions(opts)

	b, err := newBase(name, fn, messageProvides, o)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", name, err)
	}

	h := &CommandHandler{base: b}

	for _, alias := range o.aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			return nil, fmt.Errorf("command %q: alias: %w", name, ErrEmptyName)
		}

		h.aliases = append(h.aliases, &AliasHandler{
			base:   base{name: alias, priority: b.priority, chain: b.chain, call: b.call},
			parent: h,
		})
	}

	return h, nil
}

func (h *CommandHandler) Kind() Kind {
	return KindCommand
}

func (h *CommandHandler) Aliases() []*AliasHandler {
	return h.aliases
}

func (h *CommandHandler) Matches(message, _ string) bool {
	return ParseCommand(message) == CommandPrefix+h.name
}

func (h *CommandHandler) Process(message string) Argument {
	return Argument{Rest: ParseCommandArgs(message)}
}

func (h *CommandHandler) key() handlerKey {
	return h.baseKey(KindCommand)
}

// AliasHandler is an alternative name for a command. It shares the command's function and documentation.
type AliasHandler struct {
	base
	parent *CommandHandler
}

func (h *AliasHandler) Kind() Kind {
	return KindAlias
}

func (h *AliasHandler) Parent() *CommandHandler {
	return h.parent
}

func (h *AliasHandler) Doc() string {
	return h.parent.Doc()
}

func (h *AliasHandler) Matches(message, _ string) bool {
	return ParseCommand(message) == CommandPrefix+h.name
}

func (h *AliasHandler) Process(message string) Argument {
	return Argument{Rest: ParseCommandArgs(message)}
}

func (h *AliasHandler) key() handlerKey {
	k := h.baseKey(KindAlias)
	k.parent = h.parent.name
	k.doc = h.parent.doc

	return k
}

// ParseCommand returns the first whitespace-delimited word of a message, lower-cased.
func ParseCommand(message string) string {
	message = strings.TrimLeftFunc(message, unicode.IsSpace)
	if i := strings.IndexFunc(message, unicode.IsSpace); i >= 0 {
		message = message[:i]
	}

	return strings.ToLower(message)
}

// ParseCommandArgs returns everything after the first word of a message.
func ParseCommandArgs(message string) string {
	message = strings.TrimLeftFunc(message, unicode.IsSpace)
	i := strings.IndexFunc(message, unicode.IsSpace)
	if i < 0 {
		return ""
	}

	return strings.TrimLeftFunc(message[i:], unicode.IsSpace)
}
