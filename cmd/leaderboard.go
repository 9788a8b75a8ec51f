package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/report"
)

var (
	flagBoardEvent string
	flagLimit      int
	flagFormat     string
	flagSummary    bool
)

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show ranked scores",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboard,
	}
	cmd.Flags().StringVar(&flagBoardEvent, "event", "", "event id (all events when empty)")
	cmd.Flags().IntVar(&flagLimit, "limit", report.DefaultLimit, "number of teams to show")
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table|markdown|json)")
	cmd.Flags().BoolVar(&flagSummary, "summary", false, "show per-event summary instead of standings")
	return cmd
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	if flagLimit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", flagLimit)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), cfg, func(a *app) error {
		w := cmd.OutOrStdout()
		if flagSummary {
			recs, err := a.store.ListScores(cmd.Context(), flagBoardEvent)
			if err != nil {
				return err
			}
			return report.WriteSummary(report.Summarize(recs), flagFormat, w)
		}
		standings, err := report.Leaderboard(cmd.Context(), a.store, flagBoardEvent, flagLimit)
		if err != nil {
			return err
		}
		return report.Write(standings, flagFormat, w)
	})
}
