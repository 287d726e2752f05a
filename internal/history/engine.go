// Package history is the identity and message-history engine used by chat
// services. Every lookup fails soft: errors are logged and the zero value is
// returned, so a broken query never takes the session down.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"mycelica/aka/internal/db"
	"mycelica/aka/internal/graph"
	"mycelica/aka/internal/resolve"
)

// ErrUnknownAccount is returned by administrative operations on a missing id
var ErrUnknownAccount = errors.New("unknown account")

// Options configures an Engine
type Options struct {
	CacheTTL       time.Duration
	TrustedCloak   *regexp.Regexp
	LegacyAncestor bool
}

// Engine ties the store, the alias graph and the resolver together behind
// one lock
type Engine struct {
	db       *db.DB
	graph    *graph.Graph
	resolver *resolve.Resolver
}

// Open opens the database at path and builds an Engine over it
func Open(path string, opts Options) (*Engine, error) {
	d, err := db.Open(path, db.Options{CacheTTL: opts.CacheTTL})
	if err != nil {
		return nil, err
	}
	return New(d, opts), nil
}

// New builds an Engine over an open store
func New(d *db.DB, opts Options) *Engine {
	g := graph.New(d)
	g.LegacyAncestor = opts.LegacyAncestor
	return &Engine{
		db:       d,
		graph:    g,
		resolver: resolve.New(d, g, resolve.Options{TrustedCloak: opts.TrustedCloak}),
	}
}

// DB returns the underlying store
func (e *Engine) DB() *db.DB { return e.db }

// Committer returns a commit scheduler for the engine's store
func (e *Engine) Committer(interval time.Duration) *db.Committer {
	return db.NewCommitter(e.db, interval)
}

// Close commits pending writes and closes the store
func (e *Engine) Close() error { return e.db.Close() }

// soft runs fn under the store lock and logs a failure instead of returning it
func (e *Engine) soft(op string, fn func() error) bool {
	if err := e.db.Do(fn); err != nil {
		slog.Error("history operation failed", "op", op, "error", err)
		return false
	}
	return true
}

func millis(at time.Time) int64 {
	if at.IsZero() {
		at = time.Now()
	}
	return at.UnixMilli()
}

// Observe resolves a sighting of nick!user@host to an account id. priorNick
// is the nick the connection used before, on nick changes. Returns 0 on failure.
func (e *Engine) Observe(nick, user, host, priorNick string, at time.Time) int64 {
	var id int64
	e.soft("observe", func() error {
		var err error
		id, err = e.resolver.Resolve(resolve.Observation{
			Nick:      nick,
			User:      user,
			Host:      host,
			PriorNick: priorNick,
			At:        at,
		})
		return err
	})
	return id
}

// RecordLogin stores a NickServ login for an account
func (e *Engine) RecordLogin(id int64, name string, at time.Time) {
	e.soft("record_login", func() error {
		return e.db.RecordNickserv(id, name, millis(at))
	})
}

// RecordGecos stores a GECOS string for an account
func (e *Engine) RecordGecos(id int64, gecos string, at time.Time) {
	e.soft("record_gecos", func() error {
		return e.db.RecordGecos(id, gecos, millis(at))
	})
}

// AppendMessage logs one chat line. An empty mode means privmsg.
func (e *Engine) AppendMessage(id int64, hostmask, channel, text string, at time.Time, mode string) {
	e.soft("append_message", func() error {
		return e.db.AppendMessage(db.Message{
			ID:        id,
			Channel:   channel,
			Msg:       text,
			Timestamp: millis(at),
			Mode:      mode,
			Hostmask:  hostmask,
		})
	})
}

// LookupByNick returns the account and mask most recently seen with nick
func (e *Engine) LookupByNick(nick string) (int64, string, bool) {
	var h *db.Hostmask
	e.soft("lookup_by_nick", func() error {
		var err error
		h, err = e.db.LatestByNick(nick)
		return err
	})
	if h == nil {
		return 0, "", false
	}
	return h.ID, h.Mask, true
}

// LookupByID returns the representative hostmask of an account
func (e *Engine) LookupByID(id int64) (string, bool) {
	var a *db.Account
	e.soft("lookup_by_id", func() error {
		var err error
		a, err = e.db.GetAccount(id)
		return err
	})
	if a == nil {
		return "", false
	}
	return a.Hostmask, true
}

// AncestorOf returns the canonical id of an account's identity
func (e *Engine) AncestorOf(id int64) int64 {
	anc := id
	e.soft("ancestor", func() error {
		var err error
		anc, err = e.graph.Ancestor(id)
		return err
	})
	return anc
}

// Link creates or upgrades an alias edge by hand. Errors are returned to the
// administrative caller.
func (e *Engine) Link(id, other int64, trust db.Trust, force bool) (db.Trust, error) {
	var got db.Trust
	err := e.db.Do(func() error {
		if err := e.mustExist(id, other); err != nil {
			return err
		}
		var err error
		got, err = e.graph.Link(id, other, trust, force)
		return err
	})
	return got, err
}

// DeleteAccount removes an account and every row referencing it atomically,
// then repairs the canonical ids of the identity it belonged to
func (e *Engine) DeleteAccount(id int64) error {
	return e.db.Do(func() error {
		if err := e.mustExist(id); err != nil {
			return err
		}
		members, err := e.graph.StrongComponent(id)
		if err != nil {
			return err
		}
		survivors := make([]int64, 0, len(members))
		for _, m := range members {
			if m != id {
				survivors = append(survivors, m)
			}
		}
		return e.db.DeleteAccount(id, func() error {
			return e.graph.Rebuild(survivors)
		})
	})
}

func (e *Engine) mustExist(ids ...int64) error {
	for _, id := range ids {
		a, err := e.db.GetAccount(id)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("%w: %d", ErrUnknownAccount, id)
		}
	}
	return nil
}

// Vacuum commits, compacts the database file and reopens the batch
func (e *Engine) Vacuum() error {
	return e.db.Vacuum()
}
