package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagSweepEvent string

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-evaluate every registered submission once",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	cmd.Flags().StringVar(&flagSweepEvent, "event", "", "only sweep submissions of this event")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eventID := cfg.Sweep.EventID
	if cmd.Flags().Changed("event") {
		eventID = flagSweepEvent
	}
	return withApp(cmd.Context(), cfg, func(a *app) error {
		sum, err := a.sweeper(eventID).RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d submissions: %d evaluated, %d failed (%s)\n",
			sum.Submissions, sum.Evaluated, sum.Failed, sum.Duration.Round(time.Millisecond))
		return nil
	})
}
