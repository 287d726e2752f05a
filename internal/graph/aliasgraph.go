package graph

import (
	"fmt"
	"log/slog"
	"sort"

	"mycelica/aka/internal/db"
)

// Graph is the alias graph over account ids. STRONG edges feed a persisted
// union-find whose roots are the canonical ancestors; edge trust stays in the
// Aliases table for closure queries.
//
// Graph does not lock; callers hold the store lock (db.DB.Do).
type Graph struct {
	db *db.DB
	uf *UnionFind

	// LegacyAncestor answers Ancestor with the minimum of an id and its direct
	// STRONG aliases instead of the union-find root.
	LegacyAncestor bool
}

// New creates a Graph backed by d
func New(d *db.DB) *Graph {
	return &Graph{db: d, uf: NewUnionFind(d)}
}

// Link inserts or upgrades the symmetric edge between id and other and
// returns the trust the edge ends up with. An existing STRONG edge is only
// downgraded when force is set.
func (g *Graph) Link(id, other int64, trust db.Trust, force bool) (db.Trust, error) {
	if id == other {
		return trust, nil
	}
	existing, ok, err := g.db.AliasType(id, other)
	if err != nil {
		return trust, fmt.Errorf("reading alias %d-%d: %w", id, other, err)
	}
	if ok && existing == trust {
		return existing, nil
	}
	if ok && existing == db.Strong && !force {
		slog.Debug("alias downgrade refused", "account_id", id, "alias", other, "requested", trust)
		return existing, nil
	}

	var split []int64
	if ok && existing == db.Strong {
		if split, err = g.StrongComponent(id); err != nil {
			return existing, err
		}
	}

	if err := g.db.PutAlias(id, other, trust); err != nil {
		return existing, fmt.Errorf("writing alias %d-%d: %w", id, other, err)
	}

	if trust == db.Strong {
		if _, err := g.uf.Union(id, other); err != nil {
			return trust, fmt.Errorf("merging %d and %d: %w", id, other, err)
		}
		return trust, nil
	}
	if split != nil {
		slog.Info("strong alias downgraded", "account_id", id, "alias", other, "component", len(split))
		if err := g.Rebuild(split); err != nil {
			return trust, err
		}
	}
	return trust, nil
}

// Ancestor returns the canonical id of the STRONG component containing id
func (g *Graph) Ancestor(id int64) (int64, error) {
	if g.LegacyAncestor {
		return g.legacyAncestor(id)
	}
	return g.uf.Find(id)
}

func (g *Graph) legacyAncestor(id int64) (int64, error) {
	aliases, err := g.db.AliasesOf(id)
	if err != nil {
		return id, err
	}
	min := id
	for _, a := range aliases {
		if a.Type == db.Strong && a.Alias < min {
			min = a.Alias
		}
	}
	return min, nil
}

// StrongComponent returns every account reachable from seed over STRONG
// edges, seed included, sorted by id
func (g *Graph) StrongComponent(seed int64) ([]int64, error) {
	seen := map[int64]bool{seed: true}
	queue := []int64{seed}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		aliases, err := g.db.AliasesOf(id)
		if err != nil {
			return nil, fmt.Errorf("expanding %d: %w", id, err)
		}
		for _, a := range aliases {
			if a.Type != db.Strong || seen[a.Alias] {
				continue
			}
			seen[a.Alias] = true
			queue = append(queue, a.Alias)
		}
	}
	return sortedIDs(seen), nil
}

// Rebuild recomputes the union-find roots of ids from their STRONG edges.
// ids must cover whole former components.
func (g *Graph) Rebuild(ids []int64) error {
	if err := g.uf.Reset(ids); err != nil {
		return fmt.Errorf("resetting roots: %w", err)
	}
	for _, id := range ids {
		aliases, err := g.db.AliasesOf(id)
		if err != nil {
			return fmt.Errorf("rebuilding %d: %w", id, err)
		}
		for _, a := range aliases {
			if a.Type != db.Strong {
				continue
			}
			if _, err := g.uf.Union(id, a.Alias); err != nil {
				return fmt.Errorf("rebuilding %d: %w", id, err)
			}
		}
	}
	slog.Debug("union-find rebuilt", "accounts", len(ids))
	return nil
}

// ClosureOptions widens a closure query
type ClosureOptions struct {
	IncludeWeak       bool // add direct WEAK neighbours of the component
	IncludeNickchange bool // keep hostmasks created by an unmatched nick change
}

// Member is one account of a closure and the trust it was reached with
type Member struct {
	ID    int64    `json:"id"`
	Trust db.Trust `json:"trust"`
}

// Closure is the also-known-as view of a seed account
type Closure struct {
	Seed      int64         `json:"seed"`
	Members   []Member      `json:"members"`
	Hostmasks []db.Hostmask `json:"hostmasks"`
}

// IDs returns the member ids in closure order
func (c *Closure) IDs() []int64 {
	ids := make([]int64, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ID
	}
	return ids
}

// TrustOf returns the trust a member was reached with
func (c *Closure) TrustOf(id int64) (db.Trust, bool) {
	for _, m := range c.Members {
		if m.ID == id {
			return m.Trust, true
		}
	}
	return db.Weak, false
}

// Closure expands seed breadth-first over STRONG edges and collects the
// hostmasks of every account reached. Hostmasks flagged nick-change are left
// out unless opts.IncludeNickchange.
func (g *Graph) Closure(seed int64, opts ClosureOptions) (*Closure, error) {
	strong, err := g.StrongComponent(seed)
	if err != nil {
		return nil, err
	}

	c := &Closure{Seed: seed}
	inStrong := make(map[int64]bool, len(strong))
	for _, id := range strong {
		inStrong[id] = true
		c.Members = append(c.Members, Member{ID: id, Trust: db.Strong})
	}

	if opts.IncludeWeak {
		weak := make(map[int64]bool)
		for _, id := range strong {
			aliases, err := g.db.AliasesOf(id)
			if err != nil {
				return nil, fmt.Errorf("expanding %d: %w", id, err)
			}
			for _, a := range aliases {
				if a.Type == db.Weak && !inStrong[a.Alias] {
					weak[a.Alias] = true
				}
			}
		}
		for _, id := range sortedIDs(weak) {
			c.Members = append(c.Members, Member{ID: id, Trust: db.Weak})
		}
	}

	masks, err := g.db.HostmasksByIDs(c.IDs())
	if err != nil {
		return nil, fmt.Errorf("loading hostmasks: %w", err)
	}
	for _, h := range masks {
		if h.Nickchange && !opts.IncludeNickchange {
			continue
		}
		c.Hostmasks = append(c.Hostmasks, h)
	}
	return c, nil
}

func sortedIDs(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
