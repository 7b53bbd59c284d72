package domain

import (
	"context"
	"fmt"
	"iter"
	"reflect"
)

// Context is the namespace of values a dispatch can hand to a handler.
type Context struct {
	Client  Client
	Event   *Event
	Channel string
	Nick    string
	Rest    string
	Match   *Match
}

// Provides is the set of Context values available to a handler category.
type Provides uint8

const (
	ProvideClient Provides = 1 << iota
	ProvideEvent
	ProvideChannel
	ProvideNick
	ProvideRest
	ProvideMatch

	messageProvides   = ProvideClient | ProvideEvent | ProvideChannel | ProvideNick | ProvideRest | ProvideMatch
	scheduledProvides = ProvideClient | ProvideEvent | ProvideChannel
	hookProvides      = ProvideClient | ProvideEvent | ProvideChannel | ProvideNick
)

// Func is a handler function with its parameters bound.
type Func func(ctx context.Context, hc *Context) Output

type argFunc func(ctx context.Context, hc *Context) reflect.Value

type param struct {
	needs Provides
	arg   argFunc
}

var (
	contextType  = reflect.TypeFor[context.Context]()
	clientType   = reflect.TypeFor[Client]()
	errorType    = reflect.TypeFor[error]()
	stringType   = reflect.TypeFor[string]()
	stringsType  = reflect.TypeFor[[]string]()
	itemType     = reflect.TypeFor[Item]()
	itemsType    = reflect.TypeFor[[]Item]()
	lineSeqType  = reflect.TypeFor[iter.Seq[string]]()
	outputType   = reflect.TypeFor[Output]()
	handlerTypes = map[reflect.Type]param{
		contextType: {arg: func(ctx context.Context, _ *Context) reflect.Value {
			if ctx == nil {
				return reflect.Zero(contextType)
			}
			return reflect.ValueOf(ctx)
		}},
		reflect.TypeFor[*Context](): {arg: func(_ context.Context, hc *Context) reflect.Value {
			return reflect.ValueOf(hc)
		}},
		clientType: {needs: ProvideClient, arg: func(_ context.Context, hc *Context) reflect.Value {
			if hc.Client == nil {
				return reflect.Zero(clientType)
			}
			return reflect.ValueOf(hc.Client)
		}},
		reflect.TypeFor[*Event](): {needs: ProvideEvent, arg: func(_ context.Context, hc *Context) reflect.Value {
			return reflect.ValueOf(hc.Event)
		}},
		reflect.TypeFor[Channel](): {needs: ProvideChannel, arg: func(_ context.Context, hc *Context) reflect.Value {
			return reflect.ValueOf(Channel(hc.Channel))
		}},
		reflect.TypeFor[Nick](): {needs: ProvideNick, arg: func(_ context.Context, hc *Context) reflect.Value {
			return reflect.ValueOf(Nick(hc.Nick))
		}},
		reflect.TypeFor[Rest](): {needs: ProvideRest, arg: func(_ context.Context, hc *Context) reflect.Value {
			return reflect.ValueOf(Rest(hc.Rest))
		}},
		reflect.TypeFor[*Match](): {needs: ProvideMatch, arg: func(_ context.Context, hc *Context) reflect.Value {
			return reflect.ValueOf(hc.Match)
		}},
	}
)

// Bind inspects fn once and returns a Func that calls it with only the values its parameters ask for.
//
// Parameters are selected by type: context.Context, Client, *Event, Channel, Nick, Rest, *Match and *Context.
// Results may be nothing, a string, []string, Item, []Item, iter.Seq[string] or Output, optionally followed
// by an error, or a lone error. Asking for a value outside provides is an error.
func Bind(fn any, provides Provides) (Func, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T is not a function", ErrUnsupportedHandler, fn)
	}

	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic functions are not supported", ErrUnsupportedHandler)
	}

	args := make([]argFunc, t.NumIn())
	for i := range t.NumIn() {
		p, ok := handlerTypes[t.In(i)]
		if !ok {
			return nil, fmt.Errorf("%w: parameter %d has unknown type %s", ErrUnboundParameter, i, t.In(i))
		}
		if p.needs&provides != p.needs {
			return nil, fmt.Errorf("%w: %s is not available to this handler", ErrUnboundParameter, t.In(i))
		}
		args[i] = p.arg
	}

	convert, err := resultConverter(t)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, hc *Context) Output {
		if hc == nil {
			hc = &Context{}
		}

		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			in[i] = arg(ctx, hc)
		}

		return convert(v.Call(in))
	}, nil
}

func resultConverter(t reflect.Type) (func([]reflect.Value) Output, error) {
	n := t.NumOut()
	withErr := n > 0 && t.Out(n-1) == errorType
	if withErr {
		n--
	}

	if n > 1 {
		return nil, fmt.Errorf("%w: too many results", ErrUnsupportedHandler)
	}

	if n == 1 {
		switch t.Out(0) {
		case stringType, stringsType, itemType, itemsType, lineSeqType, outputType:
		default:
			return nil, fmt.Errorf("%w: unsupported result type %s", ErrUnsupportedHandler, t.Out(0))
		}
	}

	return func(out []reflect.Value) Output {
		if withErr {
			if err, _ := out[len(out)-1].Interface().(error); err != nil {
				return Fail(err)
			}
		}

		if n == 0 {
			return Empty()
		}

		return toOutput(out[0].Interface())
	}, nil
}

func toOutput(v any) Output {
	switch r := v.(type) {
	case string:
		return Lines(r)
	case []string:
		return Lines(r...)
	case Item:
		return Items(r)
	case []Item:
		return Items(r...)
	case iter.Seq[string]:
		if r == nil {
			return Empty()
		}
		return func(yield func(Item, error) bool) {
			for line := range r {
				if !yield(Text(line), nil) {
					return
				}
			}
		}
	case Output:
		if r == nil {
			return Empty()
		}
		return r
	}

	return Empty()
}
