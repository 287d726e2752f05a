package db

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCommitInterval is the batch commit period when none is configured
const DefaultCommitInterval = 30 * time.Second

// Committer periodically commits the open batch of a DB when it is dirty
type Committer struct {
	db       *DB
	interval time.Duration
	reset    chan time.Duration
}

// NewCommitter creates a Committer; a non-positive interval means DefaultCommitInterval
func NewCommitter(d *DB, interval time.Duration) *Committer {
	if interval <= 0 {
		interval = DefaultCommitInterval
	}
	return &Committer{
		db:       d,
		interval: interval,
		reset:    make(chan time.Duration, 1),
	}
}

// SetInterval changes the commit period of a running (or future) Run.
// Non-positive values are ignored. Never blocks; the latest value wins.
func (c *Committer) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	for {
		select {
		case c.reset <- interval:
			return
		default:
		}
		select {
		case <-c.reset:
		default:
		}
	}
}

// Run commits on every tick until ctx is done, then performs a final commit
func (c *Committer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_, err := c.db.CommitIfDirty()
			return err
		case interval := <-c.reset:
			if interval != c.interval {
				slog.Info("commit interval changed", "from", c.interval, "to", interval)
				c.interval = interval
				ticker.Reset(interval)
			}
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Committer) tick() {
	committed, err := c.db.CommitIfDirty()
	if err != nil {
		slog.Error("periodic commit failed", "error", err)
		return
	}
	if committed {
		slog.Debug("periodic commit", "interval", c.interval)
	}
}
