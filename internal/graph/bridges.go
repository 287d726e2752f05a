package graph

import (
	"sort"
	"strings"

	"mycelica/aka/internal/match"
)

// ArticulationPoint is an account whose removal splits an identity
type ArticulationPoint struct {
	ID                  int64  `json:"id"`
	Hostmask            string `json:"hostmask"`
	ComponentsIfRemoved int    `json:"components_if_removed"`
}

// BridgeEdge is a STRONG link whose removal splits an identity. Bridges
// between dissimilar nicks are the first candidates for a bogus merge.
type BridgeEdge struct {
	SourceID       int64   `json:"source_id"`
	TargetID       int64   `json:"target_id"`
	SourceHostmask string  `json:"source_hostmask"`
	TargetHostmask string  `json:"target_hostmask"`
	NickDistance   float64 `json:"nick_distance"`
}

// BridgeReport contains bridge analysis results
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeEdges        []BridgeEdge        `json:"bridge_edges"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
	SuspectCount       int                 `json:"suspect_count"`
}

// ComputeBridges finds articulation points and bridge edges of the STRONG subgraph
func ComputeBridges(snap *GraphSnapshot) *BridgeReport {
	if len(snap.Accounts) == 0 {
		return &BridgeReport{}
	}

	// Map account IDs to indices
	nodeIDs := snap.AccountIDs()
	idToIdx := make(map[int64]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idToIdx[id] = i
	}
	n := len(nodeIDs)

	// Build deduplicated undirected adjacency (as indices)
	adjIdx := make([][]int, n)
	type edgePair struct{ u, v int }
	seen := make(map[edgePair]bool)

	for _, e := range snap.StrongEdges() {
		u, okU := idToIdx[e.Source]
		v, okV := idToIdx[e.Target]
		if !okU || !okV || u == v {
			continue
		}
		key := edgePair{u, v}
		if u > v {
			key = edgePair{v, u}
		}
		if !seen[key] {
			seen[key] = true
			adjIdx[u] = append(adjIdx[u], v)
			adjIdx[v] = append(adjIdx[v], u)
		}
	}

	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isAP := make([]bool, n)
	var bridgePairs [][2]int
	counter := 1

	const noParent = -1

	// Iterative Tarjan for each connected component
	type frame struct {
		node, parent, ni int
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		visited[start] = true
		disc[start] = counter
		low[start] = counter
		counter++

		stack := []frame{{start, noParent, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := top.node
			parent := top.parent

			if top.ni < len(adjIdx[node]) {
				child := adjIdx[node][top.ni]
				top.ni++

				if child == parent {
					continue
				}

				if visited[child] {
					// Back edge
					if disc[child] < low[node] {
						low[node] = disc[child]
					}
				} else {
					// Tree edge
					visited[child] = true
					disc[child] = counter
					low[child] = counter
					counter++

					if node == start {
						rootChildren++
					}

					stack = append(stack, frame{child, node, 0})
				}
			} else {
				// Done with this node, pop and propagate
				stack = stack[:len(stack)-1]

				if len(stack) > 0 {
					parentFrame := &stack[len(stack)-1]
					pn := parentFrame.node

					if low[node] < low[pn] {
						low[pn] = low[node]
					}

					// Bridge check
					if low[node] > disc[pn] {
						bridgePairs = append(bridgePairs, [2]int{pn, node})
					}

					// AP check (non-root)
					if pn != start && low[node] >= disc[pn] {
						isAP[pn] = true
					}
				}
			}
		}

		// Root is AP if 2+ tree children
		if rootChildren >= 2 {
			isAP[start] = true
		}
	}

	// Convert results
	var aps []ArticulationPoint
	for i := 0; i < n; i++ {
		if isAP[i] {
			id := nodeIDs[i]
			aps = append(aps, ArticulationPoint{
				ID:                  id,
				Hostmask:            snap.Accounts[id].Hostmask,
				ComponentsIfRemoved: len(adjIdx[i]),
			})
		}
	}

	var bridges []BridgeEdge
	suspects := 0
	for _, pair := range bridgePairs {
		uid := nodeIDs[pair[0]]
		vid := nodeIDs[pair[1]]
		if uid > vid {
			uid, vid = vid, uid
		}
		b := BridgeEdge{
			SourceID:       uid,
			TargetID:       vid,
			SourceHostmask: snap.Accounts[uid].Hostmask,
			TargetHostmask: snap.Accounts[vid].Hostmask,
		}
		b.NickDistance = match.NormalizedDistance(nickOf(b.SourceHostmask), nickOf(b.TargetHostmask))
		if b.NickDistance >= match.Threshold {
			suspects++
		}
		bridges = append(bridges, b)
	}
	sort.Slice(bridges, func(i, j int) bool { return bridges[i].NickDistance > bridges[j].NickDistance })

	return &BridgeReport{
		ArticulationPoints: aps,
		BridgeEdges:        bridges,
		APCount:            len(aps),
		BridgeCount:        len(bridges),
		SuspectCount:       suspects,
	}
}

// nickOf returns the nick part of a nick!user@host mask
func nickOf(mask string) string {
	if i := strings.IndexByte(mask, '!'); i >= 0 {
		return mask[:i]
	}
	return mask
}
