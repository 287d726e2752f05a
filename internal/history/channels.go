package history

import (
	"time"

	"mycelica/aka/internal/db"
)

// JoinChannel counts a join of an account to a channel
func (e *Engine) JoinChannel(id int64, channel string, at time.Time) {
	e.soft("join_channel", func() error {
		return e.db.RecordJoin(id, channel, millis(at))
	})
}

// RecordOffense counts a moderation offense
func (e *Engine) RecordOffense(id int64, channel string, at time.Time) {
	e.soft("record_offense", func() error {
		return e.db.RecordOffense(id, channel, millis(at))
	})
}

// SetValidated marks an account as vetted in a channel
func (e *Engine) SetValidated(id int64, channel string, validated bool) {
	e.soft("set_validated", func() error {
		return e.db.SetValidated(id, channel, validated)
	})
}

// ChannelState returns the moderation state of an account in a channel,
// creating it lazily. Returns nil on failure.
func (e *Engine) ChannelState(id int64, channel string) *db.ChannelState {
	var c *db.ChannelState
	e.soft("channel_state", func() error {
		var err error
		c, err = e.db.GetChannelState(id, channel)
		return err
	})
	return c
}
