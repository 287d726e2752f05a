package graph

import (
	"math"
	"time"
)

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Certainty float64 `json:"certainty"`
	Activity  float64 `json:"activity"`
	Fragility float64 `json:"fragility"`
	Plausible float64 `json:"plausible"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	HealthScore     float64          `json:"health_score"`
	HealthBreakdown HealthBreakdown  `json:"health_breakdown"`
	Topology        *TopologyReport  `json:"topology"`
	Staleness       *StalenessReport `json:"staleness"`
	Bridges         *BridgeReport    `json:"bridges"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
	StaleDays    int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 10,
		TopN:         50,
		StaleDays:    30,
	}
}

// Analyze runs all analyses and computes a composite health score
func Analyze(snap *GraphSnapshot, config *AnalyzerConfig, now time.Time) *AnalysisReport {
	topology := ComputeTopology(snap, config.HubThreshold, config.TopN)
	staleness := ComputeStaleness(snap, config.StaleDays, now)
	bridges := ComputeBridges(snap)

	total := float64(topology.TotalAccounts)
	edges := float64(topology.StrongEdges + topology.WeakEdges)

	// an empty graph is perfectly healthy
	certainty, activity, fragility, plausible := 1.0, 1.0, 1.0, 1.0

	if edges > 0 {
		certainty = clamp(float64(topology.StrongEdges)/edges, 0, 1)
	}
	if total > 0 {
		activity = clamp(1.0-math.Min(float64(staleness.DormantCount)/total, 0.2)*5.0, 0, 1)
		fragility = clamp(1.0-math.Min(float64(bridges.APCount)/total, 0.05)*20.0, 0, 1)
	}
	if bridges.BridgeCount > 0 {
		plausible = clamp(1.0-float64(bridges.SuspectCount)/float64(bridges.BridgeCount), 0, 1)
	}

	healthScore := 0.25*certainty + 0.20*activity + 0.20*fragility + 0.35*plausible

	return &AnalysisReport{
		HealthScore: healthScore,
		HealthBreakdown: HealthBreakdown{
			Certainty: certainty,
			Activity:  activity,
			Fragility: fragility,
			Plausible: plausible,
		},
		Topology:  topology,
		Staleness: staleness,
		Bridges:   bridges,
	}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
