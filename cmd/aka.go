package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mycelica/aka/internal/db"
	"mycelica/aka/internal/graph"
	"mycelica/aka/internal/history"
)

var (
	akaWeak        bool
	akaNickchanges bool
	akaJSON        bool
)

var akaCmd = &cobra.Command{
	Use:   "aka <nick|id>",
	Short: "List every hostmask known to belong to the same person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := OpenEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := ResolveAccount(e, args[0])
		if err != nil {
			return err
		}

		opts := graph.ClosureOptions{IncludeWeak: akaWeak, IncludeNickchange: akaNickchanges}
		entries := e.AlsoKnownAsID(id, opts)
		rows := sortedAKA(entries)

		if akaJSON {
			output := struct {
				Query    string   `json:"query"`
				ID       int64    `json:"id"`
				Ancestor int64    `json:"ancestor"`
				Masks    []akaRow `json:"masks"`
				Count    int      `json:"count"`
			}{
				Query:    args[0],
				ID:       id,
				Ancestor: e.AncestorOf(id),
				Masks:    rows,
				Count:    len(rows),
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(output)
		}

		printAKAHumanReadable(args[0], id, e.AncestorOf(id), rows)
		return nil
	},
}

func init() {
	akaCmd.Flags().BoolVar(&akaWeak, "weak", false, "Include WEAK (plausible) aliases one hop out")
	akaCmd.Flags().BoolVar(&akaNickchanges, "nickchanges", false, "Include masks only linked by an unmatched nick change")
	akaCmd.Flags().BoolVar(&akaJSON, "json", false, "JSON output")
	rootCmd.AddCommand(akaCmd)
}

type akaRow struct {
	Hostmask string `json:"hostmask"`
	history.AKAEntry
}

// sortedAKA orders entries most recently seen first
func sortedAKA(entries map[string]history.AKAEntry) []akaRow {
	rows := make([]akaRow, 0, len(entries))
	for mask, entry := range entries {
		rows = append(rows, akaRow{Hostmask: mask, AKAEntry: entry})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LastSeen != rows[j].LastSeen {
			return rows[i].LastSeen > rows[j].LastSeen
		}
		return rows[i].Hostmask < rows[j].Hostmask
	})
	return rows
}

func printAKAHumanReadable(query string, id, ancestor int64, rows []akaRow) {
	if len(rows) == 0 {
		fmt.Printf("No hostmasks known for: %s\n", query)
		return
	}

	fmt.Printf("Also known as: %s (account %d, ancestor %d)\n\n", query, id, ancestor)

	for _, r := range rows {
		marker := "[S]"
		if r.Trust == db.Weak {
			marker = "[W]"
		}
		if r.Nickchange {
			marker += "~"
		}
		seen := time.UnixMilli(r.LastSeen).UTC().Format("2006-01-02 15:04")
		fmt.Printf("  %-4s %-50s id=%-6d %s\n", marker, truncMask(r.Hostmask, 50), r.ID, seen)
		if len(r.Nickservs) > 0 {
			fmt.Printf("        nickserv: %s\n", strings.Join(r.Nickservs, ", "))
		}
		if len(r.Gecos) > 0 {
			fmt.Printf("        gecos:    %s\n", strings.Join(r.Gecos, " | "))
		}
	}

	fmt.Printf("\n%d hostmask(s)\n", len(rows))
}
