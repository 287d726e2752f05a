package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mycelica/aka/internal/db"
)

var (
	linkWeak  bool
	linkForce bool
)

var linkCmd = &cobra.Command{
	Use:   "link <id> <other>",
	Short: "Record that two accounts belong to the same person",
	Long:  "Creates or upgrades an alias between two accounts. A STRONG alias is never downgraded unless --force is given, in which case the identity is split and its roots rebuilt.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		other, err := parseID(args[1])
		if err != nil {
			return err
		}

		e, err := OpenEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		trust := db.Strong
		if linkWeak {
			trust = db.Weak
		}
		got, err := e.Link(id, other, trust, linkForce)
		if err != nil {
			return err
		}
		if got != trust {
			fmt.Printf("%d <-> %d kept %s (use --force to downgrade)\n", id, other, got)
		} else {
			fmt.Printf("%d <-> %d %s\n", id, other, got)
		}
		fmt.Printf("ancestor: %d\n", e.AncestorOf(id))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account and every row that refers to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		e, err := OpenEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.DeleteAccount(id); err != nil {
			return fmt.Errorf("deleting account %d: %w", id, err)
		}
		fmt.Printf("deleted account %d\n", id)
		return nil
	},
}

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Commit pending writes and compact the database file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := OpenEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		return e.Vacuum()
	},
}

func init() {
	linkCmd.Flags().BoolVar(&linkWeak, "weak", false, "Create a WEAK (plausible) alias instead of a STRONG one")
	linkCmd.Flags().BoolVar(&linkForce, "force", false, "Allow downgrading an existing STRONG alias")
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(vacuumCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}
