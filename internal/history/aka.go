package history

import (
	"mycelica/aka/internal/db"
	"mycelica/aka/internal/graph"
)

// AKAEntry describes one hostmask of an also-known-as view
type AKAEntry struct {
	ID         int64    `json:"id"`
	Trust      db.Trust `json:"trust"`
	Nickchange bool     `json:"nickchange"`
	LastSeen   int64    `json:"last_seen"`
	Nickservs  []string `json:"nickservs"`
	Gecos      []string `json:"gecos"`
}

// AlsoKnownAs returns every hostmask of the identity last seen under nick,
// keyed by mask. Returns nil when the nick is unknown.
func (e *Engine) AlsoKnownAs(nick string, opts graph.ClosureOptions) map[string]AKAEntry {
	var out map[string]AKAEntry
	e.soft("also_known_as", func() error {
		h, err := e.db.LatestByNick(nick)
		if err != nil || h == nil {
			return err
		}
		out, err = e.akaOf(h.ID, opts)
		return err
	})
	return out
}

// AlsoKnownAsID is AlsoKnownAs seeded by account id
func (e *Engine) AlsoKnownAsID(id int64, opts graph.ClosureOptions) map[string]AKAEntry {
	var out map[string]AKAEntry
	e.soft("also_known_as", func() error {
		var err error
		out, err = e.akaOf(id, opts)
		return err
	})
	return out
}

func (e *Engine) akaOf(id int64, opts graph.ClosureOptions) (map[string]AKAEntry, error) {
	c, err := e.graph.Closure(id, opts)
	if err != nil {
		return nil, err
	}
	ids := c.IDs()
	logins, err := e.db.NickservByIDs(ids)
	if err != nil {
		return nil, err
	}
	gecos, err := e.db.GecosByIDs(ids)
	if err != nil {
		return nil, err
	}

	out := make(map[string]AKAEntry, len(c.Hostmasks))
	for _, h := range c.Hostmasks {
		trust, _ := c.TrustOf(h.ID)
		out[h.Mask] = AKAEntry{
			ID:         h.ID,
			Trust:      trust,
			Nickchange: h.Nickchange,
			LastSeen:   h.LastSeen,
			Nickservs:  logins[h.ID],
			Gecos:      gecos[h.ID],
		}
	}
	return out, nil
}
