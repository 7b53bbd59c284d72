package domain

import "errors"

var (
	ErrNoHandlers         = errors.New("no handlers registered")
	ErrEmptyName          = errors.New("handler name must not be empty")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrInvalidRate        = errors.New("rate must be between 0 and 1")
	ErrUnsupportedHandler = errors.New("unsupported handler function")
	ErrUnboundParameter   = errors.New("handler parameter cannot be provided")
)

const (
	CommandPrefix = "!"
	ActionPrefix  = "/me "
)
