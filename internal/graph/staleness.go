package graph

import (
	"sort"
	"time"
)

// DormantAccount is an account nobody has used for a while but which still
// anchors aliases
type DormantAccount struct {
	ID              int64  `json:"id"`
	Hostmask        string `json:"hostmask"`
	DaysSinceSeen   int64  `json:"days_since_seen"`
	AliasCount      int    `json:"alias_count"`
	StrongAliasSeen bool   `json:"strong_alias_seen"` // a STRONG alias was seen since
}

// StalenessReport contains dormancy analysis results
type StalenessReport struct {
	Dormant      []DormantAccount `json:"dormant"`
	DormantCount int              `json:"dormant_count"`
}

// ComputeStaleness finds linked accounts not seen for staleDays
func ComputeStaleness(snap *GraphSnapshot, staleDays int64, now time.Time) *StalenessReport {
	nowMs := now.UnixMilli()
	staleThresholdMs := staleDays * 86_400_000

	var dormant []DormantAccount
	for _, id := range snap.AccountIDs() {
		a := snap.Accounts[id]
		if a.LastSeen == 0 || len(snap.Adj[id]) == 0 {
			continue
		}
		ageMs := nowMs - a.LastSeen
		if ageMs <= staleThresholdMs {
			continue
		}

		recent := false
		for _, other := range snap.StrongAdj[id] {
			if o := snap.Accounts[other]; o != nil && o.LastSeen > a.LastSeen {
				recent = true
				break
			}
		}

		dormant = append(dormant, DormantAccount{
			ID:              id,
			Hostmask:        a.Hostmask,
			DaysSinceSeen:   ageMs / 86_400_000,
			AliasCount:      len(snap.Adj[id]),
			StrongAliasSeen: recent,
		})
	}
	sort.SliceStable(dormant, func(i, j int) bool {
		return dormant[i].DaysSinceSeen > dormant[j].DaysSinceSeen
	})

	return &StalenessReport{
		Dormant:      dormant,
		DormantCount: len(dormant),
	}
}
