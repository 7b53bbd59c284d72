package domain

import (
	"cmp"
	"context"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

type Kind string

const (
	KindContent  Kind = "content"
	KindRegexp   Kind = "regexp"
	KindCommand  Kind = "command"
	KindAlias    Kind = "alias"
	KindContains Kind = "contains"
	KindDelay    Kind = "delay"
	KindAt       Kind = "at"
	KindJoin     Kind = "join"
	KindLeave    Kind = "leave"
)

// ClassPriority orders handler variants against each other; higher is tried first.
func (k Kind) ClassPriority() int {
	switch k {
	case KindContent:
		return 5
	case KindRegexp:
		return 4
	case KindCommand:
		return 3
	case KindAlias:
		return 2
	default:
		return 1
	}
}

// Handler is a registered function together with the metadata that decides when it runs.
type Handler interface {
	Name() string
	Doc() string
	Kind() Kind
	Priority() int
	// AllowChain reports whether dispatch continues with the next matching handler after this one.
	AllowChain() bool
	// Call runs the handler function with the values it asked for.
	Call(ctx context.Context, hc *Context) Output

	key() handlerKey
}

// Matcher is a handler triggered by ordinary messages.
type Matcher interface {
	Handler
	Matches(message, channel string) bool
	Process(message string) Argument
}

// handlerKey identifies a handler definition by its category, name and attributes. Two handlers with equal keys
// are duplicates whatever functions they wrap. Aliases are left out so that a command and its aliases never
// compare through each other.
type handlerKey struct {
	kind     Kind
	name     string
	doc      string
	priority int
	chain    bool
	parent   string
	channels string
	exclude  string
	rate     float64
	pattern  string
	target   string
	schedule string
}

type base struct {
	name     string
	doc      string
	priority int
	chain    bool
	call     Func
}

func newBase(name string, fn any, provides Provides, o *options) (base, error) {
	call, err := Bind(fn, provides)
	if err != nil {
		return base{}, err
	}

	return base{
		name:     name,
		doc:      o.doc,
		priority: o.priority,
		chain:    o.chain,
		call:     call,
	}, nil
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Doc() string {
	return b.doc
}

func (b *base) Priority() int {
	return b.priority
}

func (b *base) AllowChain() bool {
	return b.chain
}

func (b *base) Call(ctx context.Context, hc *Context) Output {
	return b.call(ctx, hc)
}

func (b *base) baseKey(kind Kind) handlerKey {
	return handlerKey{
		kind:     kind,
		name:     b.name,
		doc:      b.doc,
		priority: b.priority,
		chain:    b.chain,
	}
}

// compareHandlers sorts by class priority, then declared priority, then name length, all descending.
func compareHandlers(a, b Handler) int {
	return cmp.Or(
		cmp.Compare(b.Kind().ClassPriority(), a.Kind().ClassPriority()),
		cmp.Compare(b.Priority(), a.Priority()),
		cmp.Compare(len(b.Name()), len(a.Name())),
	)
}

// funcName derives a handler name from the function itself, for hooks registered without one.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}

	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}

	// "example.com/pkg/plugins.Greet.func1" becomes "Greet.func1"
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}

	return name
}

var anonymousName = regexp.MustCompile(`(\.func\d+(\.\d+)*|-fm)$`)

// isAnonymous reports whether name belongs to a function literal or a method value. Many distinct closures
// share such a name.
func isAnonymous(name string) bool {
	return name == "" || anonymousName.MatchString(name)
}
