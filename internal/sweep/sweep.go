// Package sweep periodically re-evaluates every registered submission.
package sweep

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/evaluator"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/runner"
)

type SubmissionLister interface {
	ListSubmissions(ctx context.Context, eventID string) ([]result.Submission, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, req evaluator.Request) (*result.Scores, error)
}

type Sweeper struct {
	Submissions SubmissionLister
	Evaluator   Evaluator
	// Parallel bounds concurrent evaluations. Each evaluation still probes
	// its own endpoint sequentially.
	Parallel int
	// EventID restricts the sweep to one event when set.
	EventID string
	Logger  *zap.Logger
}

type Summary struct {
	Submissions int
	Evaluated   int
	Failed      int
	Duration    time.Duration
}

// RunOnce evaluates every submission once. Individual evaluation failures are
// counted and logged; only a failure to list submissions is returned.
func (s *Sweeper) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	log := s.logger()

	subs, err := s.Submissions.ListSubmissions(ctx, s.EventID)
	if err != nil {
		return Summary{}, err
	}

	jobs := make([]runner.Job, len(subs))
	for i, sub := range subs {
		req := evaluator.Request{
			TeamID:       sub.TeamID,
			EventID:      sub.EventID,
			EndpointURL:  sub.EndpointURL,
			SubmissionID: sub.ID,
		}
		jobs[i] = func(ctx context.Context) error {
			scores, err := s.Evaluator.Evaluate(ctx, req)
			if err != nil {
				log.Warn("sweep evaluation failed",
					zap.String("submission_id", req.SubmissionID),
					zap.String("team_id", req.TeamID),
					zap.Error(err))
				return err
			}
			log.Debug("sweep evaluation done",
				zap.String("submission_id", req.SubmissionID),
				zap.Float64("total_score", scores.TotalScore))
			return nil
		}
	}

	errs := runner.RunPool(ctx, s.Parallel, jobs)
	sum := Summary{
		Submissions: len(subs),
		Evaluated:   len(subs) - len(errs),
		Failed:      len(errs),
		Duration:    time.Since(start),
	}
	log.Info("sweep finished",
		zap.Int("submissions", sum.Submissions),
		zap.Int("evaluated", sum.Evaluated),
		zap.Int("failed", sum.Failed),
		zap.Duration("duration", sum.Duration))
	return sum, nil
}

// Run sweeps immediately and then every interval until ctx is done. A sweep
// in progress when ctx ends is cut short by the cancelled context.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger().Error("sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
