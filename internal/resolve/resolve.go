// Package resolve assigns account ids to observed hostmasks.
package resolve

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"mycelica/aka/internal/db"
	"mycelica/aka/internal/graph"
)

// DefaultTrustedCloak matches hosts whose cloak was issued by network staff
const DefaultTrustedCloak = `^(?:user|staff|unaffiliated)/`

// Observation is one sighting of a nick!user@host
type Observation struct {
	Nick      string
	User      string
	Host      string
	PriorNick string    // set on nick changes
	At        time.Time // zero means now
}

// Mask returns the nick!user@host string
func (o Observation) Mask() string {
	return db.FormatMask(o.Nick, o.User, o.Host)
}

// PriorMask returns the mask the connection had before a nick change
func (o Observation) PriorMask() string {
	return db.FormatMask(o.PriorNick, o.User, o.Host)
}

func (o Observation) complete() bool {
	return o.Nick != "" && o.User != "" && o.Host != ""
}

// Match is the outcome of a rule: a prior record and how to attach to it
type Match struct {
	Rule       string
	Test       string       // battery test that fired, if any
	Record     *db.Hostmask // matched prior record, nil when only Origin is known
	Origin     *db.Hostmask // record linked to; defaults to Record
	Trust      db.Trust
	Adopt      bool // the new mask joins Record's account
	Nickchange bool
}

// Options configures a Resolver
type Options struct {
	TrustedCloak *regexp.Regexp // nil means DefaultTrustedCloak
}

// Resolver runs the ordered rule chain. It does not lock; callers hold the
// store lock (db.DB.Do).
type Resolver struct {
	db      *db.DB
	graph   *graph.Graph
	trusted *regexp.Regexp
	rules   []rule
}

// New creates a Resolver over a store and its alias graph
func New(d *db.DB, g *graph.Graph, opts Options) *Resolver {
	trusted := opts.TrustedCloak
	if trusted == nil {
		trusted = regexp.MustCompile(DefaultTrustedCloak)
	}
	return &Resolver{db: d, graph: g, trusted: trusted, rules: defaultRules()}
}

// Resolve returns the account id of an observation, creating or linking
// accounts as needed
func (r *Resolver) Resolve(o Observation) (int64, error) {
	if o.At.IsZero() {
		o.At = time.Now()
	}
	at := o.At.UnixMilli()
	mask := o.Mask()

	id, ok, err := r.db.MaskID(mask)
	if err != nil {
		return 0, fmt.Errorf("looking up %s: %w", mask, err)
	}
	if ok {
		if err := r.db.TouchHostmask(mask, at); err != nil {
			return id, fmt.Errorf("touching %s: %w", mask, err)
		}
		return id, nil
	}

	if !o.complete() {
		slog.Debug("incomplete hostmask, new account", "hostmask", mask)
		return r.newAccount(o, false)
	}

	c := &call{obs: o}
	if o.PriorNick != "" && !strings.EqualFold(o.PriorNick, o.Nick) {
		if c.origin, err = r.origin(o); err != nil {
			return 0, err
		}
	}

	for _, rl := range r.rules {
		m, err := rl.apply(r, c)
		if err != nil {
			return 0, fmt.Errorf("rule %s: %w", rl.name, err)
		}
		if m != nil {
			m.Rule = rl.name
			return r.apply(o, m)
		}
	}
	return r.newAccount(o, false)
}

// origin returns the record of the mask a nick change started from,
// resolving it first when it was never seen
func (r *Resolver) origin(o Observation) (*db.Hostmask, error) {
	prior := o.PriorMask()
	h, err := r.db.GetHostmask(prior)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", prior, err)
	}
	if h != nil {
		return h, nil
	}
	if _, err := r.Resolve(Observation{Nick: o.PriorNick, User: o.User, Host: o.Host, At: o.At}); err != nil {
		return nil, err
	}
	return r.db.GetHostmask(prior)
}

func (r *Resolver) newAccount(o Observation, nickchange bool) (int64, error) {
	mask := o.Mask()
	id, err := r.db.CreateAccount(mask)
	if err != nil {
		return 0, err
	}
	err = r.db.PutHostmask(db.Hostmask{
		Mask:       mask,
		ID:         id,
		LastSeen:   o.At.UnixMilli(),
		Nickchange: nickchange,
		Nick:       o.Nick,
		User:       o.User,
		Host:       o.Host,
	})
	if err != nil {
		return id, fmt.Errorf("storing %s: %w", mask, err)
	}
	slog.Debug("new account", "account_id", id, "hostmask", mask)
	return id, nil
}

// apply attaches the observation to a match: adopt the matched account or
// mint a new one, link it, invalidate channel vetting and store the mask
func (r *Resolver) apply(o Observation, m *Match) (int64, error) {
	origin := m.Origin
	if origin == nil {
		origin = m.Record
	}
	adopt := m.Record != nil && (m.Adopt || (m.Trust == db.Strong && strings.EqualFold(m.Record.Nick, o.Nick)))

	mask := o.Mask()
	var id int64
	if adopt {
		id = m.Record.ID
	} else {
		var err error
		if id, err = r.db.CreateAccount(mask); err != nil {
			return 0, err
		}
	}

	if origin != nil && origin.ID != id {
		trust, err := r.graph.Link(id, origin.ID, m.Trust, false)
		if err != nil {
			return id, err
		}
		if trust == db.Strong && r.Suspicious(o.Nick, o.Host, origin.Nick, origin.Host) {
			slog.Warn("suspicious strong link",
				"rule", m.Rule,
				"hostmask", mask,
				"account_id", id,
				"linked_hostmask", origin.Mask,
				"linked_id", origin.ID,
			)
		}
		if err := r.db.InvalidateChannels(origin.ID); err != nil {
			return id, err
		}
	}
	if err := r.db.InvalidateChannels(id); err != nil {
		return id, err
	}

	err := r.db.PutHostmask(db.Hostmask{
		Mask:       mask,
		ID:         id,
		LastSeen:   o.At.UnixMilli(),
		Nickchange: m.Nickchange,
		Nick:       o.Nick,
		User:       o.User,
		Host:       o.Host,
	})
	if err != nil {
		return id, fmt.Errorf("storing %s: %w", mask, err)
	}
	slog.Debug("hostmask matched",
		"rule", m.Rule,
		"test", m.Test,
		"hostmask", mask,
		"account_id", id,
		"trust", m.Trust,
		"adopted", adopt,
	)
	return id, nil
}
