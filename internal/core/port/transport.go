package port

import (
	"context"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
)

type Transport interface {
	domain.Client
	// Run connects to the network and reports inbound events to sink until ctx is done.
	Run(ctx context.Context, sink EventSink) error
}

// EventSink receives inbound events from a transport.
type EventSink interface {
	// HandleAction processes a message said in a channel or sent privately.
	HandleAction(ctx context.Context, event *domain.Event)
	// HandleJoin processes someone joining a channel.
	HandleJoin(ctx context.Context, event *domain.Event)
	// HandleLeave processes someone parting a channel or quitting.
	HandleLeave(ctx context.Context, event *domain.Event)
}
