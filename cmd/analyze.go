package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mycelica/aka/internal/graph"
)

var (
	analyzeJSON         bool
	analyzeTopN         int
	analyzeStaleDays    int64
	analyzeHubThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the alias graph: identities, dormancy, fragile links, health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := OpenEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		d := e.DB()
		var snap *graph.GraphSnapshot
		err = d.Do(func() error {
			var err error
			snap, err = graph.SnapshotFromDB(d)
			return err
		})
		if err != nil {
			return fmt.Errorf("loading graph: %w", err)
		}

		config := &graph.AnalyzerConfig{
			HubThreshold: analyzeHubThreshold,
			TopN:         analyzeTopN,
			StaleDays:    analyzeStaleDays,
		}

		report := graph.Analyze(snap, config, time.Now())

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHumanReadable(report, snap)
		return nil
	},
}

func init() {
	defaults := graph.DefaultConfig()
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().Int64Var(&analyzeStaleDays, "stale-days", defaults.StaleDays, "Days since last sighting to consider a linked account dormant")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", defaults.HubThreshold, "Minimum alias count to consider an account a hub")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *graph.AnalysisReport, snap *graph.GraphSnapshot) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Alias Graph Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Printf("  breakdown: certainty=%.2f activity=%.2f fragility=%.2f plausible=%.2f\n\n",
		report.HealthBreakdown.Certainty,
		report.HealthBreakdown.Activity,
		report.HealthBreakdown.Fragility,
		report.HealthBreakdown.Plausible)

	// Topology
	t := report.Topology
	fmt.Println("  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Accounts: %d  Strong aliases: %d  Weak aliases: %d\n", t.TotalAccounts, t.StrongEdges, t.WeakEdges)
	fmt.Printf("  Identities: %d  Largest: %d accounts (ancestor %d)\n", t.NumIdentities, t.LargestIdentity, t.LargestAncestor)

	if t.OrphanCount > 0 {
		fmt.Printf("  Unlinked: %d accounts with no alias\n", t.OrphanCount)
		limit := 5
		if len(t.OrphanIDs) < limit {
			limit = len(t.OrphanIDs)
		}
		for _, id := range t.OrphanIDs[:limit] {
			mask := "?"
			if a := snap.Accounts[id]; a != nil {
				mask = truncMask(a.Hostmask, 50)
			}
			fmt.Printf("    - %d (%s)\n", id, mask)
		}
		if t.OrphanCount > 5 {
			fmt.Printf("    ... and %d more\n", t.OrphanCount-5)
		}
	}

	// Degree distribution
	fmt.Println("\n  Alias count distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			if barWidth < 1 {
				barWidth = 1
			}
			fmt.Printf("    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Hubs
	if len(t.Hubs) > 0 {
		fmt.Println("\n  Top hubs (aliases > threshold):")
		for _, hub := range t.Hubs {
			fmt.Printf("    %d aliases=%d (strong=%d, weak=%d)  %s\n",
				hub.ID, hub.Degree, hub.StrongDegree, hub.WeakDegree, truncMask(hub.Hostmask, 40))
		}
	}

	// Dormancy
	s := report.Staleness
	if s.DormantCount > 0 {
		fmt.Println("\n  DORMANCY")
		fmt.Println("  ────────────────────────────────────────")
		fmt.Printf("  %d linked accounts not seen recently:\n", s.DormantCount)
		limit := 10
		if len(s.Dormant) < limit {
			limit = len(s.Dormant)
		}
		for _, n := range s.Dormant[:limit] {
			note := ""
			if n.StrongAliasSeen {
				note = ", identity still active"
			}
			fmt.Printf("    %d %dd unseen, %d aliases%s  %s\n",
				n.ID, n.DaysSinceSeen, n.AliasCount, note, truncMask(n.Hostmask, 40))
		}
	}

	// Bridges
	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 {
		fmt.Println("\n  STRUCTURAL FRAGILITY")
		fmt.Println("  ────────────────────────────────────────")
		if br.APCount > 0 {
			fmt.Printf("  %d articulation accounts (removal splits an identity):\n", br.APCount)
			limit := 10
			if len(br.ArticulationPoints) < limit {
				limit = len(br.ArticulationPoints)
			}
			for _, ap := range br.ArticulationPoints[:limit] {
				fmt.Printf("    %d (pieces ~%d)  %s\n",
					ap.ID, ap.ComponentsIfRemoved, truncMask(ap.Hostmask, 40))
			}
		}
		if br.BridgeCount > 0 {
			fmt.Printf("  %d bridge links, %d between dissimilar nicks:\n", br.BridgeCount, br.SuspectCount)
			limit := 10
			if len(br.BridgeEdges) < limit {
				limit = len(br.BridgeEdges)
			}
			for _, be := range br.BridgeEdges[:limit] {
				fmt.Printf("    %s <-> %s (nick distance %.2f)\n",
					truncMask(be.SourceHostmask, 30), truncMask(be.TargetHostmask, 30), be.NickDistance)
			}
		}
	}

	fmt.Println()
}
