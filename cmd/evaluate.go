package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/evaluator"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
)

var (
	flagTeam       string
	flagEvent      string
	flagEndpoint   string
	flagSubmission string
	flagLevel      string
)

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one team endpoint and record its score",
		Args:  cobra.NoArgs,
		RunE:  runEvaluate,
	}
	cmd.Flags().StringVar(&flagTeam, "team", "", "team id")
	cmd.Flags().StringVar(&flagEvent, "event", "", "event id")
	cmd.Flags().StringVar(&flagEndpoint, "endpoint", "", "team endpoint URL")
	cmd.Flags().StringVar(&flagSubmission, "submission", "", "submission id to update")
	cmd.Flags().StringVar(&flagLevel, "level", "", "level id")
	return cmd
}

// evaluateOutput mirrors the body of POST /api/evaluate-api.
type evaluateOutput struct {
	Success bool           `json:"success"`
	Scores  *result.Scores `json:"scores,omitempty"`
	Error   string         `json:"error,omitempty"`
}

var errEvaluationFailed = errors.New("evaluation failed")

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := evaluator.Request{
		TeamID:       flagTeam,
		EventID:      flagEvent,
		EndpointURL:  flagEndpoint,
		SubmissionID: flagSubmission,
	}
	if flagLevel != "" {
		level := flagLevel
		req.LevelID = &level
	}

	return withApp(cmd.Context(), cfg, func(a *app) error {
		scores, err := a.evaluator.Evaluate(cmd.Context(), req)
		out := evaluateOutput{Success: err == nil, Scores: scores}
		if err != nil {
			out.Error = err.Error()
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
		if err != nil {
			cmd.SilenceErrors = true
			return errEvaluationFailed
		}
		return nil
	})
}
