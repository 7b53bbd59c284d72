package port

import (
	"context"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
)

// LogStore persists what was said in channels.
type LogStore interface {
	// Message records a line said by nick in channel.
	Message(ctx context.Context, channel, nick, text string) error
	// LastSeen returns where nick last spoke. ok is false when there is no record.
	LastSeen(ctx context.Context, nick string) (seen domain.Seen, ok bool, err error)
	// Strike removes the last count lines nick said in channel, plus the line asking for it, and returns how
	// many of the requested lines were removed.
	Strike(ctx context.Context, channel, nick string, count int) (int, error)
	Close() error
}
