// Package evaluator runs one full evaluation of a team endpoint: probe every
// test case, score the results, persist the score and update the submission.
package evaluator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/notify"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/runner"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/scoring"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/suite"
)

// Store is the part of store.Gateway an evaluation writes through.
type Store interface {
	FindScore(ctx context.Context, teamID, eventID string) (*result.ScoreRecord, error)
	UpsertScore(ctx context.Context, rec *result.ScoreRecord) error
	UpdateSubmission(ctx context.Context, id string, u result.SubmissionUpdate) error
}

type Observer interface {
	ObserveEvaluation(status string, duration time.Duration)
	ObserveSubmissionUpdateFailure()
}

// Evaluation statuses reported to the Observer.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

type Request struct {
	TeamID       string  `json:"team_id"`
	EventID      string  `json:"event_id"`
	EndpointURL  string  `json:"endpoint_url"`
	SubmissionID string  `json:"submission_id,omitempty"`
	LevelID      *string `json:"level_id,omitempty"`
}

// Evaluator holds the collaborators of an evaluation. Store and Prober are
// required; the rest fall back to no-ops or defaults. An Evaluator keeps no
// state between calls and is safe for concurrent use.
type Evaluator struct {
	Suite    suite.Source
	Prober   runner.Prober
	Store    Store
	Notifier notify.Notifier
	Observer Observer
	Logger   *zap.Logger
	Now      func() time.Time
}

// Evaluate scores req.EndpointURL and records the result. A malformed request
// returns a *ValidationError, a failed score read or write a
// *PersistenceError. Endpoint failures are part of the score, not errors.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*result.Scores, error) {
	start := time.Now()
	scores, err := e.evaluate(ctx, req)
	status := StatusOK
	if err != nil {
		status = StatusError
		if _, ok := err.(*ValidationError); ok {
			status = StatusInvalid
		}
	}
	if e.Observer != nil {
		e.Observer.ObserveEvaluation(status, time.Since(start))
	}
	return scores, err
}

func (e *Evaluator) evaluate(ctx context.Context, req Request) (*result.Scores, error) {
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}
	log := e.logger().With(zap.String("team_id", req.TeamID), zap.String("event_id", req.EventID))

	cases, err := e.source().Cases(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	log.Debug("evaluating endpoint", zap.String("endpoint_url", req.EndpointURL), zap.Int("cases", len(cases)))
	results := runner.RunSuite(ctx, e.Prober, req.EndpointURL, cases)
	// Cases cut short by cancellation say nothing about the endpoint; keep
	// the stored score.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}
	scores := scoring.Compute(results, cases)
	evaluatedAt := e.now()

	existing, err := e.Store.FindScore(ctx, req.TeamID, req.EventID)
	if err != nil {
		return nil, &PersistenceError{Op: "finding score", Err: err}
	}
	rec := &result.ScoreRecord{
		TeamID:      req.TeamID,
		EventID:     req.EventID,
		LevelID:     req.LevelID,
		EvaluatedAt: evaluatedAt,
		Scores:      scores,
	}
	if existing != nil {
		rec.ID = existing.ID
	} else {
		rec.ID = uuid.NewString()
	}
	if err := e.Store.UpsertScore(ctx, rec); err != nil {
		return nil, &PersistenceError{Op: "writing score", Err: err}
	}
	log.Info("score recorded",
		zap.String("score_id", rec.ID),
		zap.Float64("total_score", scores.TotalScore),
		zap.Int("tests_passed", scores.Details.TestsPassed),
		zap.Int("avg_latency_ms", scores.Details.AvgLatencyMs))

	if req.SubmissionID != "" {
		update := result.SubmissionUpdate{
			LastTestAt:     evaluatedAt,
			LastTestResult: scores.Details,
			IsValidated:    scores.AccuracyScore > 0,
		}
		if err := e.Store.UpdateSubmission(ctx, req.SubmissionID, update); err != nil {
			uerr := &SubmissionUpdateError{SubmissionID: req.SubmissionID, Err: err}
			log.Warn("submission not updated", zap.Error(uerr))
			if e.Observer != nil {
				e.Observer.ObserveSubmissionUpdateFailure()
			}
		}
	}

	if e.Notifier != nil {
		ev := notify.ScoreEvent{
			TeamID:      rec.TeamID,
			EventID:     rec.EventID,
			LevelID:     rec.LevelID,
			Scores:      scores,
			EvaluatedAt: evaluatedAt,
		}
		if err := e.Notifier.Notify(ctx, ev); err != nil {
			log.Warn("score event not published", zap.Error(err))
		}
	}
	return &scores, nil
}

// Normalize trims the identifiers and checks that they are present and that
// the endpoint is an absolute http(s) URL.
func Normalize(req Request) (Request, error) {
	req.TeamID = strings.TrimSpace(req.TeamID)
	req.EventID = strings.TrimSpace(req.EventID)
	req.EndpointURL = strings.TrimSpace(req.EndpointURL)
	req.SubmissionID = strings.TrimSpace(req.SubmissionID)
	if req.LevelID != nil {
		level := strings.TrimSpace(*req.LevelID)
		req.LevelID = nil
		if level != "" {
			req.LevelID = &level
		}
	}

	for _, f := range []struct{ name, value string }{
		{"team_id", req.TeamID},
		{"event_id", req.EventID},
		{"endpoint_url", req.EndpointURL},
	} {
		if f.value == "" {
			return req, &ValidationError{Field: f.name, Reason: "is required"}
		}
	}
	u, err := url.Parse(req.EndpointURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return req, &ValidationError{Field: "endpoint_url", Reason: "must be an absolute http or https URL"}
	}
	return req, nil
}

func (e *Evaluator) source() suite.Source {
	if e.Suite == nil {
		return suite.Static(suite.Default())
	}
	return e.Suite
}

func (e *Evaluator) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Evaluator) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}
