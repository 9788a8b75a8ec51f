package evaluator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/evaluator"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/notify"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/probe"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/store"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/suite"
)

// echoProber answers "test_data_N" with "result_N" after a fixed latency,
// unless the input has a canned outcome.
type echoProber struct {
	mu      sync.Mutex
	calls   int
	latency time.Duration
	canned  map[string]probe.Outcome
}

func (p *echoProber) Probe(_ context.Context, _, input string) probe.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if out, ok := p.canned[input]; ok {
		return out
	}
	var n string
	if len(input) > len("test_data_") {
		n = input[len("test_data_"):]
	}
	return probe.Outcome{Success: true, Output: "result_" + n, Latency: p.latency}
}

type failingStore struct {
	*store.Memory
	findErr, upsertErr error
}

func (f *failingStore) FindScore(ctx context.Context, team, event string) (*result.ScoreRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.Memory.FindScore(ctx, team, event)
}

func (f *failingStore) UpsertScore(ctx context.Context, rec *result.ScoreRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.Memory.UpsertScore(ctx, rec)
}

type recordingNotifier struct {
	events []notify.ScoreEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.ScoreEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingNotifier) Close() error { return nil }

type countingObserver struct {
	statuses      []string
	updateFailure int
}

func (c *countingObserver) ObserveEvaluation(status string, _ time.Duration) {
	c.statuses = append(c.statuses, status)
}

func (c *countingObserver) ObserveSubmissionUpdateFailure() { c.updateFailure++ }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEvaluator(t *testing.T, st evaluator.Store, p *echoProber) *evaluator.Evaluator {
	t.Helper()
	return &evaluator.Evaluator{
		Prober: p,
		Store:  st,
		Logger: zaptest.NewLogger(t),
		Now:    func() time.Time { return fixedNow },
	}
}

func validRequest() evaluator.Request {
	return evaluator.Request{TeamID: "team-1", EventID: "event-1", EndpointURL: "http://team.example/api"}
}

func TestEvaluatePerfectEndpoint(t *testing.T) {
	mem := store.NewMemory()
	ctx := t.Context()
	sub := &result.Submission{TeamID: "team-1", EventID: "event-1", EndpointURL: "http://team.example/api"}
	require.NoError(t, mem.SaveSubmission(ctx, sub))

	p := &echoProber{latency: 150 * time.Millisecond}
	obs := &countingObserver{}
	ev := newEvaluator(t, mem, p)
	ev.Observer = obs

	req := validRequest()
	req.SubmissionID = sub.ID
	scores, err := ev.Evaluate(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 5, p.calls)
	require.Equal(t, 100.0, scores.AccuracyScore)
	require.Equal(t, 100.0, scores.LatencyScore)
	require.Equal(t, 100.0, scores.StabilityScore)
	require.Equal(t, 0.0, scores.PenaltyPoints)
	require.Equal(t, 100.0, scores.TotalScore)
	require.Equal(t, result.Details{TestsPassed: 5, AvgLatencyMs: 150}, scores.Details)

	rec, err := mem.FindScore(ctx, "team-1", "event-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, *scores, rec.Scores)
	require.True(t, rec.EvaluatedAt.Equal(fixedNow))

	subs, err := mem.ListSubmissions(ctx, "event-1")
	require.NoError(t, err)
	require.True(t, subs[0].IsValidated)
	require.True(t, subs[0].LastTestAt.Equal(fixedNow))
	require.Equal(t, scores.Details, *subs[0].LastTestResult)

	require.Equal(t, []string{evaluator.StatusOK}, obs.statuses)
}

func TestEvaluateMixedFailures(t *testing.T) {
	p := &echoProber{
		latency: time.Second,
		canned: map[string]probe.Outcome{
			"test_data_4": {Kind: probe.Timeout, Message: "Timeout", Latency: time.Second},
			"test_data_5": {Kind: probe.InvalidFormat, Message: "Invalid response format: missing output field", Latency: time.Second},
		},
	}
	scores, err := newEvaluator(t, store.NewMemory(), p).Evaluate(t.Context(), validRequest())
	require.NoError(t, err)
	require.Equal(t, 60.0, scores.AccuracyScore)
	require.Equal(t, 83.33, scores.LatencyScore)
	require.Equal(t, 15.0, scores.PenaltyPoints)
	require.Equal(t, 50.83, scores.TotalScore)
	require.Equal(t, 1, scores.Details.TimeoutCount)
	require.Equal(t, 1, scores.Details.InvalidResponseCount)
}

func TestEvaluateValidation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(r *evaluator.Request)
		field string
	}{
		{"missing team", func(r *evaluator.Request) { r.TeamID = "" }, "team_id"},
		{"blank event", func(r *evaluator.Request) { r.EventID = "   " }, "event_id"},
		{"missing endpoint", func(r *evaluator.Request) { r.EndpointURL = "" }, "endpoint_url"},
		{"relative endpoint", func(r *evaluator.Request) { r.EndpointURL = "/api/answer" }, "endpoint_url"},
		{"ftp endpoint", func(r *evaluator.Request) { r.EndpointURL = "ftp://team.example/x" }, "endpoint_url"},
		{"garbage endpoint", func(r *evaluator.Request) { r.EndpointURL = "http://%zz" }, "endpoint_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory()
			p := &echoProber{}
			obs := &countingObserver{}
			ev := newEvaluator(t, mem, p)
			ev.Observer = obs

			req := validRequest()
			tt.mut(&req)
			scores, err := ev.Evaluate(t.Context(), req)
			require.Nil(t, scores)

			var verr *evaluator.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
			require.Zero(t, p.calls)

			all, _ := mem.ListScores(t.Context(), "")
			require.Empty(t, all)
			require.Equal(t, []string{evaluator.StatusInvalid}, obs.statuses)
		})
	}
}

func TestEvaluateTrimsIdentifiers(t *testing.T) {
	mem := store.NewMemory()
	req := evaluator.Request{TeamID: " team-1 ", EventID: "event-1\n", EndpointURL: " https://team.example "}
	_, err := newEvaluator(t, mem, &echoProber{}).Evaluate(t.Context(), req)
	require.NoError(t, err)
	rec, err := mem.FindScore(t.Context(), "team-1", "event-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestEmptyLevelStoredAsNull(t *testing.T) {
	mem := store.NewMemory()
	ev := newEvaluator(t, mem, &echoProber{})
	for _, level := range []string{"", "   "} {
		req := validRequest()
		req.LevelID = &level
		_, err := ev.Evaluate(t.Context(), req)
		require.NoError(t, err)
		rec, err := mem.FindScore(t.Context(), "team-1", "event-1")
		require.NoError(t, err)
		require.Nil(t, rec.LevelID, "level %q", level)
	}

	req, err := evaluator.Normalize(evaluator.Request{
		TeamID: "t", EventID: "e", EndpointURL: "http://x.example", LevelID: ptr(" level-3 "),
	})
	require.NoError(t, err)
	require.Equal(t, "level-3", *req.LevelID)
}

func ptr(s string) *string { return &s }

// cancellingProber cancels the evaluation context after answering `after`
// probes.
type cancellingProber struct {
	echoProber
	after  int
	cancel context.CancelFunc
}

func (p *cancellingProber) Probe(ctx context.Context, url, input string) probe.Outcome {
	out := p.echoProber.Probe(ctx, url, input)
	if p.calls == p.after {
		p.cancel()
	}
	return out
}

func TestCancelledEvaluationKeepsStoredScore(t *testing.T) {
	mem := store.NewMemory()
	sub := &result.Submission{TeamID: "team-1", EventID: "event-1", EndpointURL: "http://team.example/api"}
	require.NoError(t, mem.SaveSubmission(t.Context(), sub))

	good := newEvaluator(t, mem, &echoProber{latency: 100 * time.Millisecond})
	_, err := good.Evaluate(t.Context(), validRequest())
	require.NoError(t, err)
	before, err := mem.FindScore(t.Context(), "team-1", "event-1")
	require.NoError(t, err)
	require.Equal(t, 100.0, before.TotalScore)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	p := &cancellingProber{echoProber: echoProber{latency: 20 * time.Millisecond}, after: 1, cancel: cancel}
	notifier := &recordingNotifier{}
	obs := &countingObserver{}
	ev := newEvaluator(t, mem, nil)
	ev.Prober = p
	ev.Notifier = notifier
	ev.Observer = obs

	req := validRequest()
	req.SubmissionID = sub.ID
	scores, err := ev.Evaluate(ctx, req)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, scores)
	require.Equal(t, 1, p.calls)

	after, err := mem.FindScore(t.Context(), "team-1", "event-1")
	require.NoError(t, err)
	require.Equal(t, before.TotalScore, after.TotalScore)
	require.Equal(t, before.Details, after.Details)

	subs, err := mem.ListSubmissions(t.Context(), "event-1")
	require.NoError(t, err)
	require.Nil(t, subs[0].LastTestAt)
	require.Empty(t, notifier.events)
	require.Equal(t, []string{evaluator.StatusError}, obs.statuses)
}

func TestReevaluationOverwrites(t *testing.T) {
	mem := store.NewMemory()
	p := &echoProber{latency: 100 * time.Millisecond}
	ev := newEvaluator(t, mem, p)
	ctx := t.Context()

	_, err := ev.Evaluate(ctx, validRequest())
	require.NoError(t, err)
	first, _ := mem.FindScore(ctx, "team-1", "event-1")

	p.canned = map[string]probe.Outcome{"test_data_1": {Kind: probe.HTTPError, Message: "HTTP 500"}}
	level := "level-2"
	req := validRequest()
	req.LevelID = &level
	ev.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	scores, err := ev.Evaluate(ctx, req)
	require.NoError(t, err)

	all, err := mem.ListScores(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, first.ID, all[0].ID)
	require.Equal(t, scores.TotalScore, all[0].TotalScore)
	require.Equal(t, "level-2", *all[0].LevelID)
	require.True(t, all[0].EvaluatedAt.Equal(fixedNow.Add(time.Hour)))
}

func TestPersistenceFailures(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name string
		st   *failingStore
	}{
		{"lookup", &failingStore{Memory: store.NewMemory(), findErr: boom}},
		{"write", &failingStore{Memory: store.NewMemory(), upsertErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &countingObserver{}
			ev := newEvaluator(t, tt.st, &echoProber{})
			ev.Observer = obs
			scores, err := ev.Evaluate(t.Context(), validRequest())
			require.Nil(t, scores)

			var perr *evaluator.PersistenceError
			require.ErrorAs(t, err, &perr)
			require.ErrorIs(t, err, boom)
			require.Equal(t, []string{evaluator.StatusError}, obs.statuses)
		})
	}
}

func TestSubmissionUpdateFailureIsNotFatal(t *testing.T) {
	mem := store.NewMemory()
	obs := &countingObserver{}
	ev := newEvaluator(t, mem, &echoProber{})
	ev.Observer = obs

	req := validRequest()
	req.SubmissionID = "does-not-exist"
	scores, err := ev.Evaluate(t.Context(), req)
	require.NoError(t, err)
	require.NotNil(t, scores)
	require.Equal(t, 1, obs.updateFailure)

	rec, err := mem.FindScore(t.Context(), "team-1", "event-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestZeroAccuracyIsNotValidated(t *testing.T) {
	mem := store.NewMemory()
	ctx := t.Context()
	sub := &result.Submission{TeamID: "team-1", EventID: "event-1", EndpointURL: "http://team.example/api"}
	require.NoError(t, mem.SaveSubmission(ctx, sub))

	canned := map[string]probe.Outcome{}
	for _, c := range suite.Default() {
		canned[c.Input] = probe.Outcome{Kind: probe.HTTPError, Message: "HTTP 503"}
	}
	req := validRequest()
	req.SubmissionID = sub.ID
	scores, err := newEvaluator(t, mem, &echoProber{canned: canned}).Evaluate(ctx, req)
	require.NoError(t, err)
	require.Zero(t, scores.AccuracyScore)

	subs, _ := mem.ListSubmissions(ctx, "")
	require.False(t, subs[0].IsValidated)
	require.NotNil(t, subs[0].LastTestAt)
}

func TestNotifierReceivesEvent(t *testing.T) {
	n := &recordingNotifier{err: errors.New("nats down")}
	ev := newEvaluator(t, store.NewMemory(), &echoProber{})
	ev.Notifier = n

	scores, err := ev.Evaluate(t.Context(), validRequest())
	require.NoError(t, err)
	require.Len(t, n.events, 1)
	require.Equal(t, "team-1", n.events[0].TeamID)
	require.Equal(t, *scores, n.events[0].Scores)
}

type brokenSource struct{}

func (brokenSource) Cases(context.Context, string) ([]suite.TestCase, error) {
	return nil, errors.New("suite unavailable")
}

func TestSourceErrorStopsEvaluation(t *testing.T) {
	p := &echoProber{}
	ev := newEvaluator(t, store.NewMemory(), p)
	ev.Suite = brokenSource{}
	_, err := ev.Evaluate(t.Context(), validRequest())
	require.ErrorContains(t, err, "suite unavailable")
	require.Zero(t, p.calls)
}

func TestCustomSuite(t *testing.T) {
	p := &echoProber{canned: map[string]probe.Outcome{
		"capital of France": {Success: true, Output: "Paris"},
		"2+2":               {Success: true, Output: "5"},
	}}
	ev := newEvaluator(t, store.NewMemory(), p)
	ev.Suite = suite.Static{
		{Input: "capital of France", ExpectedOutput: "Paris", Weight: 3},
		{Input: "2+2", ExpectedOutput: "4", Weight: 1},
	}
	scores, err := ev.Evaluate(t.Context(), validRequest())
	require.NoError(t, err)
	require.Equal(t, 75.0, scores.AccuracyScore)
	require.Equal(t, 50.0, scores.StabilityScore)
}
