package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mycelica/aka/internal/config"
	"mycelica/aka/internal/db"
	"mycelica/aka/internal/feed"
	"mycelica/aka/internal/history"
	"mycelica/aka/internal/logging"
)

const maxLineBytes = 1 << 20

var ingestQuiet bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Feed raw IRC protocol lines (file or stdin) through the identity engine",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.ReadCloser(os.Stdin)
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			in = f
		}
		defer in.Close()

		e, err := OpenEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		committer := e.Committer(cfg.Commit.Interval)
		if configPath != "" {
			config.Watch(settings, func(c *config.Config) {
				committer.SetInterval(c.Commit.Interval)
				if level, err := config.ParseLevel(c.Log.Level); err == nil {
					logging.Level.Set(level)
				}
			})
		}

		commitCtx, stopCommits := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- committer.Run(commitCtx) }()

		// unblock the scanner on interrupt
		go func() {
			<-ctx.Done()
			in.Close()
		}()

		start := time.Now()
		stats, readErr := runIngest(ctx, e, in)
		stopCommits()
		commitErr := <-done

		slog.Info("ingest finished",
			"lines", stats.lines,
			"handled", stats.handled,
			"skipped", stats.skipped,
			"failed", stats.failed,
			"elapsed", time.Since(start).Round(time.Millisecond))
		if !ingestQuiet {
			fmt.Printf("%d lines: %d handled, %d skipped, %d failed\n",
				stats.lines, stats.handled, stats.skipped, stats.failed)
		}
		if errors.Is(commitErr, db.ErrClosed) {
			commitErr = nil
		}
		return errors.Join(readErr, commitErr)
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestQuiet, "quiet", false, "Suppress the summary line")
	rootCmd.AddCommand(ingestCmd)
}

type ingestStats struct {
	lines, handled, skipped, failed int
}

// runIngest dispatches every line of r until EOF or ctx is done. Lines that
// fail to parse are logged and counted, never fatal.
func runIngest(ctx context.Context, e *history.Engine, r io.Reader) (ingestStats, error) {
	var stats ingestStats
	dispatcher := feed.NewDispatcher(e)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		stats.lines++
		if err := dispatcher.Handle(scanner.Text()); err != nil {
			stats.failed++
			slog.Debug("line rejected", "line", stats.lines, "error", err)
		}
	}
	stats.handled, stats.skipped = dispatcher.Stats()

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return stats, fmt.Errorf("reading input at line %d: %w", stats.lines+1, err)
	}
	return stats, nil
}
