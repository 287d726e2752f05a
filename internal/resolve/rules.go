package resolve

import (
	"mycelica/aka/internal/db"
	"mycelica/aka/internal/match"
)

// call is the state of one Resolve invocation
type call struct {
	obs    Observation
	origin *db.Hostmask // record of the prior nick on a nick change
}

// rule is one step of the resolver chain. apply returns nil when the rule
// does not fire.
type rule struct {
	name  string
	apply func(r *Resolver, c *call) (*Match, error)
}

// defaultRules is the resolver chain in evaluation order. The exact-mask
// lookup runs before it and a new account is minted after it.
func defaultRules() []rule {
	return []rule{
		{"nickchange-guest", (*Resolver).nickchangeGuest},
		{"nickchange-history", (*Resolver).nickchangeHistory},
		{"nickchange-unmatched", (*Resolver).nickchangeUnmatched},
		{"irccloud", (*Resolver).irccloud},
		{"nat-gateway", (*Resolver).natGateway},
		{"cloak", (*Resolver).cloak},
		{"guest", (*Resolver).guest},
		{"same-nick", (*Resolver).sameNick},
		{"userhost", (*Resolver).userHost},
	}
}

// byUserHost matches the latest record on the same user@host, STRONG unless stale
func (r *Resolver) byUserHost(c *call) (*Match, error) {
	h, err := r.db.LatestByUserHost(c.obs.User, c.obs.Host)
	if err != nil || h == nil {
		return nil, err
	}
	return &Match{Record: h, Trust: match.TrustForMillis(h.LastSeen, c.obs.At.UnixMilli())}, nil
}

// nickchangeGuest: a nick change to GuestNNNN keeps the connection's user@host
func (r *Resolver) nickchangeGuest(c *call) (*Match, error) {
	if c.origin == nil || !match.IsGuestNick(c.obs.Nick) {
		return nil, nil
	}
	return r.byUserHost(c)
}

// nickchangeHistory: someone who used the new nick before and is provably
// the originating account takes the new mask
func (r *Resolver) nickchangeHistory(c *call) (*Match, error) {
	if c.origin == nil {
		return nil, nil
	}
	candidates, err := r.db.HostmasksByNick(c.obs.Nick)
	if err != nil {
		return nil, err
	}
	t, err := r.targetOf(c.origin)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		cand := &candidates[i]
		fired, hit, err := r.closureMatches(cand.ID, t)
		if err != nil {
			return nil, err
		}
		if hit {
			return &Match{Record: cand, Origin: c.origin, Trust: db.Strong, Adopt: true, Test: fired}, nil
		}
	}
	return nil, nil
}

// nickchangeUnmatched: a new account WEAK-linked to the originating account
func (r *Resolver) nickchangeUnmatched(c *call) (*Match, error) {
	if c.origin == nil {
		return nil, nil
	}
	return &Match{Origin: c.origin, Trust: db.Weak, Nickchange: true}, nil
}

// irccloud matches other connections of the same IRCCloud account
func (r *Resolver) irccloud(c *call) (*Match, error) {
	uid, ok := match.IRCCloudUID(c.obs.User, c.obs.Host)
	if !ok {
		return nil, nil
	}
	h, err := r.db.LatestByCloudUID(uid)
	if err != nil || h == nil {
		return nil, err
	}
	return &Match{Record: h, Trust: db.Strong}, nil
}

// natGateway matches the same nick and ident behind the same NAT gateway
func (r *Resolver) natGateway(c *call) (*Match, error) {
	gw, ok := match.NATGateway(c.obs.Host)
	if !ok {
		return nil, nil
	}
	h, err := r.db.LatestByGateway(c.obs.Nick, c.obs.User, gw)
	if err != nil || h == nil {
		return nil, err
	}
	return &Match{Record: h, Trust: db.Strong}, nil
}

// cloak matches any record with the identical cloaked host
func (r *Resolver) cloak(c *call) (*Match, error) {
	if !match.IsCloaked(c.obs.Host) {
		return nil, nil
	}
	h, err := r.db.LatestByHost(c.obs.Host)
	if err != nil || h == nil {
		return nil, err
	}
	return &Match{Record: h, Trust: db.Strong}, nil
}

// guest matches a GuestNNNN nick by user@host
func (r *Resolver) guest(c *call) (*Match, error) {
	if !match.IsGuestNick(c.obs.Nick) {
		return nil, nil
	}
	return r.byUserHost(c)
}

// sameNick scans every record that used the nick, most recent first
func (r *Resolver) sameNick(c *call) (*Match, error) {
	candidates, err := r.db.HostmasksByNick(c.obs.Nick)
	if err != nil {
		return nil, err
	}
	t := target{User: c.obs.User, Host: c.obs.Host}
	for i := range candidates {
		cand := &candidates[i]
		fired, hit, err := r.closureMatches(cand.ID, t)
		if err != nil {
			return nil, err
		}
		if hit {
			return &Match{Record: cand, Trust: db.Strong, Test: fired}, nil
		}
	}
	return nil, nil
}

// userHost is the last resort: same user@host under any nick
func (r *Resolver) userHost(c *call) (*Match, error) {
	return r.byUserHost(c)
}
