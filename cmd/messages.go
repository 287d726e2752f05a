package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mycelica/aka/internal/db"
	"mycelica/aka/internal/history"
)

var (
	msgChannel string
	msgLimit   int
	msgMode    string
	msgOffset  int
	msgGrep    string
	msgJSON    bool
)

var messagesCmd = &cobra.Command{
	Use:   "messages <nick|id>",
	Short: "Show the message history of an identity",
	Long:  "Lists messages sent from any account of the identity, most recent first. --grep takes a glob (* and ?); a pattern without wildcards matches as a substring.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch msgMode {
		case "", db.ModePrivmsg, db.ModeAction, db.ModeNotice:
		default:
			return fmt.Errorf("invalid --mode %q (want %s, %s or %s)", msgMode, db.ModePrivmsg, db.ModeAction, db.ModeNotice)
		}

		e, err := OpenEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := ResolveAccount(e, args[0])
		if err != nil {
			return err
		}

		msgs := e.SearchMessages(id, history.MessageQuery{
			Channel: msgChannel,
			Mode:    msgMode,
			Pattern: msgGrep,
			Limit:   msgLimit,
			Offset:  msgOffset,
		})

		if msgJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(msgs)
		}

		if len(msgs) == 0 {
			fmt.Printf("No messages for: %s\n", args[0])
			return nil
		}
		for _, m := range msgs {
			fmt.Println(formatMessage(m))
		}
		return nil
	},
}

func init() {
	messagesCmd.Flags().StringVar(&msgChannel, "channel", "", "Only messages sent to this channel")
	messagesCmd.Flags().IntVar(&msgLimit, "limit", 20, "Max messages to show")
	messagesCmd.Flags().StringVar(&msgMode, "mode", "", "Only this mode: privmsg, action or notice")
	messagesCmd.Flags().IntVar(&msgOffset, "offset", 0, "Skip this many of the most recent messages")
	messagesCmd.Flags().StringVar(&msgGrep, "grep", "", "Glob the message text must match")
	messagesCmd.Flags().BoolVar(&msgJSON, "json", false, "JSON output")
	rootCmd.AddCommand(messagesCmd)
}

func formatMessage(m db.Message) string {
	ts := time.UnixMilli(m.Timestamp).UTC().Format("2006-01-02 15:04:05")
	nick := m.Hostmask
	for i := 0; i < len(nick); i++ {
		if nick[i] == '!' {
			nick = nick[:i]
			break
		}
	}
	switch m.Mode {
	case db.ModeAction:
		return fmt.Sprintf("%s %s * %s %s", ts, m.Channel, nick, m.Msg)
	case db.ModeNotice:
		return fmt.Sprintf("%s %s -%s- %s", ts, m.Channel, nick, m.Msg)
	default:
		return fmt.Sprintf("%s %s <%s> %s", ts, m.Channel, nick, m.Msg)
	}
}
