package cmd

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/config"
)

var cfgFile string

const defaultConfigFile = "arena.yaml"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "arena",
		Short:        "Evaluation and scoring engine for AI Battle Arena",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file path")
	root.AddCommand(newServeCmd())
	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newLeaderboardCmd())
	root.AddCommand(newSuiteCmd())
	return root
}

// loadConfig reads --config. A missing default config file is not an error:
// the built-in defaults and the environment are used instead.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if f := cmd.Flag("config"); (f == nil || !f.Changed) && errors.Is(err, fs.ErrNotExist) {
		return config.Default()
	}
	return nil, err
}
