package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

var (
	flagInput  string
	flagExpect string
)

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <endpoint-url>",
		Short: "Send one test input to an endpoint and show the outcome",
		Args:  cobra.ExactArgs(1),
		RunE:  runProbe,
	}
	cmd.Flags().StringVar(&flagInput, "input", "test_data_1", "input to send")
	cmd.Flags().StringVar(&flagExpect, "expect", "", "expected output; compared when set")
	return cmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := newProber(cfg, nil).Probe(cmd.Context(), args[0], flagInput)
	w := cmd.OutOrStdout()

	if !out.Success {
		fmt.Fprintf(w, "%s %s (%.0fms)\n", red(out.Kind.String()), out.Message, out.LatencyMs())
		return nil
	}
	verdict := green("OK")
	if flagExpect != "" && (out.Raw || out.Output != flagExpect) {
		verdict = yellow("MISMATCH")
	}
	fmt.Fprintf(w, "%s output=%q (%.0fms)\n", verdict, out.Output, out.LatencyMs())
	return nil
}
