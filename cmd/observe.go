package cmd

import (
	"fmt"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/spf13/cobra"
)

var observeFrom string

var observeCmd = &cobra.Command{
	Use:   "observe <nick!user@host>",
	Short: "Resolve one sighting of a hostmask and print its account id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nuh, err := ircmsg.ParseNUH(args[0])
		if err != nil {
			return fmt.Errorf("invalid hostmask %q: %w", args[0], err)
		}
		if nuh.Name == "" || nuh.User == "" || nuh.Host == "" {
			return fmt.Errorf("invalid hostmask %q: want nick!user@host", args[0])
		}

		e, err := OpenEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		id := e.Observe(nuh.Name, nuh.User, nuh.Host, observeFrom, time.Now())
		if id == 0 {
			return fmt.Errorf("could not resolve %s (see log)", args[0])
		}
		fmt.Println(id)
		return nil
	},
}

var ancestorCmd = &cobra.Command{
	Use:   "ancestor <id>",
	Short: "Print the canonical account id of an identity",
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

		fmt.Println(e.AncestorOf(id))
		return nil
	},
}

func init() {
	observeCmd.Flags().StringVar(&observeFrom, "from", "", "Prior nick when the sighting is a nick change")
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(ancestorCmd)
}
