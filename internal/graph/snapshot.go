package graph

import (
	"sort"

	"mycelica/aka/internal/db"
)

// AccountInfo is a lightweight account representation decoupled from DB types
type AccountInfo struct {
	ID       int64
	Hostmask string
	Nickserv string
	Masks    int
	LastSeen int64
}

// EdgeInfo is one alias edge, stored once per unordered pair
type EdgeInfo struct {
	Source int64
	Target int64
	Trust  db.Trust
}

// GraphSnapshot holds the alias graph with precomputed adjacency lists
type GraphSnapshot struct {
	Accounts  map[int64]*AccountInfo
	Edges     []EdgeInfo
	Adj       map[int64][]int64 // every edge
	StrongAdj map[int64][]int64 // STRONG edges only
}

// NewSnapshot builds a GraphSnapshot from raw accounts and edges
func NewSnapshot(accounts []*AccountInfo, edges []EdgeInfo) *GraphSnapshot {
	accountMap := make(map[int64]*AccountInfo, len(accounts))
	adj := make(map[int64][]int64)
	strongAdj := make(map[int64][]int64)

	for _, a := range accounts {
		accountMap[a.ID] = a
		adj[a.ID] = nil
		strongAdj[a.ID] = nil
	}

	var kept []EdgeInfo
	for _, e := range edges {
		if _, ok := accountMap[e.Source]; !ok {
			continue
		}
		if _, ok := accountMap[e.Target]; !ok {
			continue
		}
		kept = append(kept, e)
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
		if e.Trust == db.Strong {
			strongAdj[e.Source] = append(strongAdj[e.Source], e.Target)
			strongAdj[e.Target] = append(strongAdj[e.Target], e.Source)
		}
	}

	return &GraphSnapshot{
		Accounts:  accountMap,
		Edges:     kept,
		Adj:       adj,
		StrongAdj: strongAdj,
	}
}

// AccountIDs returns a sorted list of all account IDs (for deterministic output)
func (s *GraphSnapshot) AccountIDs() []int64 {
	ids := make([]int64, 0, len(s.Accounts))
	for id := range s.Accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StrongEdges returns the STRONG subset of Edges
func (s *GraphSnapshot) StrongEdges() []EdgeInfo {
	var out []EdgeInfo
	for _, e := range s.Edges {
		if e.Trust == db.Strong {
			out = append(out, e)
		}
	}
	return out
}
