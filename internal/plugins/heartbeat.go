package plugins

import (
	"fmt"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
)

const defaultHeartbeat = "I'm still here"

// Heartbeat announces heartbeat.message in heartbeat.channel every heartbeat.interval and, when
// heartbeat.daily is set ("15:04"), once a day at that time. Without a channel it registers nothing.
func Heartbeat(r *domain.Registry, deps Deps) error {
	if deps.Config == nil {
		return nil
	}

	channel := deps.Config.GetString("heartbeat.channel")
	if channel == "" {
		return nil
	}

	message := deps.Config.GetString("heartbeat.message")
	if message == "" {
		message = defaultHeartbeat
	}

	beat := func() string { return message }

	if interval := deps.Config.GetDuration("heartbeat.interval"); interval > 0 {
		if err := r.ExecDelay("heartbeat", interval, channel, beat, domain.WithRepeat()); err != nil {
			return err
		}
	}

	if daily := deps.Config.GetString("heartbeat.daily"); daily != "" {
		clock, err := domain.ParseTimeOfDay(daily)
		if err != nil {
			return fmt.Errorf("heartbeat.daily: %w", err)
		}

		if err := r.ExecDaily("daily heartbeat", clock, channel, beat); err != nil {
			return err
		}
	}

	return nil
}
