package graph

import (
	"sort"

	"mycelica/aka/internal/db"
)

// HubAccount is an account with many aliases
type HubAccount struct {
	ID           int64  `json:"id"`
	Hostmask     string `json:"hostmask"`
	Degree       int    `json:"degree"`
	StrongDegree int    `json:"strong_degree"`
	WeakDegree   int    `json:"weak_degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalAccounts   int            `json:"total_accounts"`
	StrongEdges     int            `json:"strong_edges"`
	WeakEdges       int            `json:"weak_edges"`
	NumIdentities   int            `json:"num_identities"` // STRONG components
	LargestIdentity int            `json:"largest_identity"`
	LargestAncestor int64          `json:"largest_ancestor"`
	OrphanCount     int            `json:"orphan_count"`
	OrphanIDs       []int64        `json:"orphan_ids"`
	DegreeHistogram []DegreeBucket `json:"degree_histogram"`
	Hubs            []HubAccount   `json:"hubs"`
}

// ComputeTopology analyzes the alias graph: identities, orphans, degree distribution, hubs
func ComputeTopology(snap *GraphSnapshot, hubThreshold, topN int) *TopologyReport {
	totalAccounts := len(snap.Accounts)
	if totalAccounts == 0 {
		return &TopologyReport{
			DegreeHistogram: defaultHistogram(),
		}
	}

	strongEdges := snap.StrongEdges()

	// Identities: components over STRONG edges. Errors are impossible in memory.
	ids := snap.AccountIDs()
	uf := NewMemUnionFind()
	for _, e := range strongEdges {
		uf.Union(e.Source, e.Target)
	}
	components, _ := uf.Components(ids)

	largest := 0
	var largestRoot int64
	for root, members := range components {
		if len(members) > largest || (len(members) == largest && root < largestRoot) {
			largest = len(members)
			largestRoot = root
		}
	}

	// Orphans: no alias of any trust
	var orphans []int64
	for _, id := range ids {
		if len(snap.Adj[id]) == 0 {
			orphans = append(orphans, id)
		}
	}
	orphanCount := len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}

	// Degree histogram (log-scale buckets)
	buckets := [7]int{}
	for _, id := range ids {
		buckets[degreeBucket(len(snap.Adj[id]))]++
	}
	histogram := defaultHistogram()
	for i := range histogram {
		histogram[i].Count = buckets[i]
	}

	// Hubs: degree > threshold
	var hubs []HubAccount
	for _, id := range ids {
		degree := len(snap.Adj[id])
		if degree > hubThreshold {
			strong := len(snap.StrongAdj[id])
			hubs = append(hubs, HubAccount{
				ID:           id,
				Hostmask:     snap.Accounts[id].Hostmask,
				Degree:       degree,
				StrongDegree: strong,
				WeakDegree:   degree - strong,
			})
		}
	}
	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}

	weak := 0
	for _, e := range snap.Edges {
		if e.Trust == db.Weak {
			weak++
		}
	}

	return &TopologyReport{
		TotalAccounts:   totalAccounts,
		StrongEdges:     len(strongEdges),
		WeakEdges:       weak,
		NumIdentities:   len(components),
		LargestIdentity: largest,
		LargestAncestor: largestRoot,
		OrphanCount:     orphanCount,
		OrphanIDs:       orphans,
		DegreeHistogram: histogram,
		Hubs:            hubs,
	}
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
