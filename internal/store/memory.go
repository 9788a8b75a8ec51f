package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
)

type scoreKey struct {
	team, event string
}

// Memory keeps everything in process. It is the default backend and the one
// used by tests.
type Memory struct {
	scores      *xsync.MapOf[scoreKey, result.ScoreRecord]
	submissions *xsync.MapOf[string, result.Submission]
}

func NewMemory() *Memory {
	return &Memory{
		scores:      xsync.NewMapOf[scoreKey, result.ScoreRecord](),
		submissions: xsync.NewMapOf[string, result.Submission](),
	}
}

func (m *Memory) FindScore(_ context.Context, teamID, eventID string) (*result.ScoreRecord, error) {
	rec, ok := m.scores.Load(scoreKey{teamID, eventID})
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) UpsertScore(_ context.Context, rec *result.ScoreRecord) error {
	stored, _ := m.scores.Compute(scoreKey{rec.TeamID, rec.EventID}, func(old result.ScoreRecord, loaded bool) (result.ScoreRecord, bool) {
		next := *rec
		switch {
		case loaded:
			next.ID = old.ID
		case next.ID == "":
			next.ID = uuid.NewString()
		}
		return next, false
	})
	rec.ID = stored.ID
	return nil
}

func (m *Memory) ListScores(_ context.Context, eventID string) ([]result.ScoreRecord, error) {
	var out []result.ScoreRecord
	m.scores.Range(func(k scoreKey, rec result.ScoreRecord) bool {
		if eventID == "" || k.event == eventID {
			out = append(out, rec)
		}
		return true
	})
	sortScores(out)
	return out, nil
}

func (m *Memory) SaveSubmission(_ context.Context, s *result.Submission) error {
	stampSubmission(s, time.Now().UTC())
	m.submissions.Store(s.ID, *s)
	return nil
}

func (m *Memory) ListSubmissions(_ context.Context, eventID string) ([]result.Submission, error) {
	var out []result.Submission
	m.submissions.Range(func(_ string, s result.Submission) bool {
		if eventID == "" || s.EventID == eventID {
			out = append(out, s)
		}
		return true
	})
	sortSubmissions(out)
	return out, nil
}

func (m *Memory) UpdateSubmission(_ context.Context, id string, u result.SubmissionUpdate) error {
	found := false
	m.submissions.Compute(id, func(old result.Submission, loaded bool) (result.Submission, bool) {
		if !loaded {
			return old, true
		}
		found = true
		u.Apply(&old)
		return old, false
	})
	if !found {
		return ErrNotFound
	}
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

// stampSubmission fills the id and timestamps of a new submission.
func stampSubmission(s *result.Submission, now time.Time) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
}
