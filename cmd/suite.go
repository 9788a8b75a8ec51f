package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/suite"
)

var flagSuiteEvent string

func newSuiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suite",
		Short: "List the test cases an event is evaluated with",
		Args:  cobra.NoArgs,
		RunE:  runSuite,
	}
	cmd.Flags().StringVar(&flagSuiteEvent, "event", "", "event id")
	return cmd
}

func runSuite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	src, err := suite.NewSource(cfg.Suite.File, cfg.Suite.Dir)
	if err != nil {
		return err
	}
	cases, err := src.Cases(cmd.Context(), flagSuiteEvent)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Test cases (%d):\n", len(cases))
	for _, c := range cases {
		fmt.Fprintf(w, "  %-20s -> %-20s weight %g\n", c.Input, c.ExpectedOutput, c.Weight)
	}
	return nil
}
