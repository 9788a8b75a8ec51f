package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/evaluator"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/probe"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/report"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/server"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEvaluator struct {
	scores *result.Scores
	err    error
	got    evaluator.Request
}

func (f *fakeEvaluator) Evaluate(_ context.Context, req evaluator.Request) (*result.Scores, error) {
	f.got = req
	return f.scores, f.err
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Scores  *result.Scores `json:"scores"`
	ID      string         `json:"id"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

const evalBody = `{"team_id":"t1","event_id":"e1","endpoint_url":"http://team.example","submission_id":"s1","level_id":"l2"}`

func TestEvaluateSuccess(t *testing.T) {
	ev := &fakeEvaluator{scores: &result.Scores{TotalScore: 100, AccuracyScore: 100, Details: result.Details{TestsPassed: 5}}}
	h := server.New(ev, store.NewMemory(), zaptest.NewLogger(t), server.Options{})

	w := do(t, h, http.MethodPost, "/api/evaluate-api", evalBody)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.True(t, env.Success)
	require.Equal(t, 100.0, env.Scores.TotalScore)
	require.Equal(t, 5, env.Scores.Details.TestsPassed)

	require.Equal(t, "t1", ev.got.TeamID)
	require.Equal(t, "s1", ev.got.SubmissionID)
	require.NotNil(t, ev.got.LevelID)
	require.Equal(t, "l2", *ev.got.LevelID)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, k := range []string{"accuracy_score", "latency_score", "stability_score", "penalty_points", "total_score", "details"} {
		require.Contains(t, raw["scores"], k)
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"malformed json", `{"team_id":`, nil, http.StatusBadRequest},
		{"validation", evalBody, &evaluator.ValidationError{Field: "team_id", Reason: "is required"}, http.StatusBadRequest},
		{"persistence", evalBody, &evaluator.PersistenceError{Op: "writing score", Err: errors.New("db down")}, http.StatusInternalServerError},
		{"suite source", evalBody, errors.New("reading suite finals.toml: permission denied"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := server.New(&fakeEvaluator{err: tt.err}, store.NewMemory(), zaptest.NewLogger(t), server.Options{})
			w := do(t, h, http.MethodPost, "/api/evaluate-api", tt.body)
			require.Equal(t, tt.wantCode, w.Code)
			env := decode(t, w)
			require.False(t, env.Success)
			require.NotEmpty(t, env.Error)
			require.Nil(t, env.Scores)
		})
	}
}

func TestTokenAuth(t *testing.T) {
	ev := &fakeEvaluator{scores: &result.Scores{}}
	h := server.New(ev, store.NewMemory(), zaptest.NewLogger(t), server.Options{AuthToken: "s3cret"})

	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/evaluate-api", evalBody).Code)
	require.Equal(t, http.StatusUnauthorized,
		do(t, h, http.MethodPost, "/api/evaluate-api", evalBody, "Authorization", "Bearer wrong").Code)
	require.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/api/evaluate-api", evalBody, "Authorization", "Bearer s3cret").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	h := server.New(&fakeEvaluator{}, store.NewMemory(), zaptest.NewLogger(t), server.Options{AuthToken: "s3cret"})
	w := do(t, h, http.MethodOptions, "/api/evaluate-api", "",
		"Origin", "https://arena.example",
		"Access-Control-Request-Method", "POST",
		"Access-Control-Request-Headers", "authorization, x-client-info, apikey, content-type")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
	for _, hdr := range []string{"authorization", "x-client-info", "apikey", "content-type"} {
		require.Contains(t, allowed, hdr)
	}
}

func TestSubmissions(t *testing.T) {
	mem := store.NewMemory()
	h := server.New(&fakeEvaluator{}, mem, zaptest.NewLogger(t), server.Options{})

	w := do(t, h, http.MethodPost, "/api/submissions", `{"team_id":"t1","event_id":"e1","endpoint_url":"https://t1.example/answer"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	require.True(t, env.Success)
	require.NotEmpty(t, env.ID)

	w = do(t, h, http.MethodPost, "/api/submissions", `{"team_id":"t2","event_id":"e1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decode(t, w).Error, "endpoint_url")

	w = do(t, h, http.MethodGet, "/api/submissions?event_id=e1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var subs []result.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	require.Equal(t, env.ID, subs[0].ID)

	w = do(t, h, http.MethodGet, "/api/submissions?event_id=nope", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestLeaderboard(t *testing.T) {
	mem := store.NewMemory()
	ctx := t.Context()
	for i := range 12 {
		rec := &result.ScoreRecord{
			TeamID:      fmt.Sprintf("team-%02d", i),
			EventID:     "e1",
			EvaluatedAt: time.Now(),
			Scores:      result.Scores{TotalScore: float64(i * 5)},
		}
		require.NoError(t, mem.UpsertScore(ctx, rec))
	}
	h := server.New(&fakeEvaluator{}, mem, zaptest.NewLogger(t), server.Options{})

	w := do(t, h, http.MethodGet, "/api/leaderboard?event_id=e1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var standings []report.Standing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &standings))
	require.Len(t, standings, 10)
	require.Equal(t, "team-11", standings[0].TeamID)
	require.Equal(t, 1, standings[0].Rank)

	w = do(t, h, http.MethodGet, "/api/leaderboard?event_id=e1&limit=3", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &standings))
	require.Len(t, standings, 3)

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/leaderboard?limit=zero", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/leaderboard?limit=0", "").Code)
}

func TestEvaluateEndToEnd(t *testing.T) {
	team := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Input string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]string{"output": strings.Replace(in.Input, "test_data_", "result_", 1)})
	}))
	defer team.Close()

	mem := store.NewMemory()
	ev := &evaluator.Evaluator{Prober: probe.NewClient(), Store: mem, Logger: zaptest.NewLogger(t)}
	h := server.New(ev, mem, zaptest.NewLogger(t), server.Options{})

	body := fmt.Sprintf(`{"team_id":"t1","event_id":"e1","endpoint_url":%q}`, team.URL)
	w := do(t, h, http.MethodPost, "/api/evaluate-api", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode(t, w)
	require.Equal(t, 100.0, env.Scores.AccuracyScore)
	require.Equal(t, 5, env.Scores.Details.TestsPassed)

	w = do(t, h, http.MethodPost, "/api/evaluate-api", `{"team_id":"","event_id":"e1","endpoint_url":"http://x.example"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/leaderboard", "")
	var standings []report.Standing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &standings))
	require.Len(t, standings, 1)
	require.Equal(t, "t1", standings[0].TeamID)
}
