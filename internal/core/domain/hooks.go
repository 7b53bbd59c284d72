package domain

import "fmt"

// JoinHandler runs when someone joins a channel the bot is in.
type JoinHandler struct {
	base
}

// LeaveHandler runs when someone parts a channel or quits the network.
type LeaveHandler struct {
	base
}

// NewJoin builds a join hook. Without a name, from the argument or WithName, the function's own name is used.
func NewJoin(name string, fn any, opts ...Option) (*JoinHandler, error) {
	b, err := newHook(name, fn, opts)
	if err != nil {
		return nil, err
	}

	return &JoinHandler{base: b}, nil
}

// NewLeave builds a leave hook. Without a name the function's own name is used.
func NewLeave(name string, fn any, opts ...Option) (*LeaveHandler, error) {
	b, err := newHook(name, fn, opts)
	if err != nil {
		return nil, err
	}

	return &LeaveHandler{base: b}, nil
}

func newHook(name string, fn any, opts []Option) (base, error) {
	o := newOptions(opts)
	if name == "" {
		name = o.name
	}
	if name == "" {
		name = funcName(fn)
	}

	b, err := newBase(name, fn, hookProvides, o)
	if err != nil {
		return base{}, fmt.Errorf("hook %q: %w", name, err)
	}

	return b, nil
}

func (h *JoinHandler) Kind() Kind {
	return KindJoin
}

func (h *JoinHandler) key() handlerKey {
	return h.baseKey(KindJoin)
}

func (h *LeaveHandler) Kind() Kind {
	return KindLeave
}

func (h *LeaveHandler) key() handlerKey {
	return h.baseKey(KindLeave)
}
