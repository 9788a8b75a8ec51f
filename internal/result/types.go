package result

import (
	"cmp"
	"time"
)

// Scores is the outcome of one evaluation pass. It is recomputed from scratch
// on every evaluation and replaced wholesale in storage.
type Scores struct {
	AccuracyScore  float64 `json:"accuracy_score" bson:"accuracy_score"`
	LatencyScore   float64 `json:"latency_score" bson:"latency_score"`
	StabilityScore float64 `json:"stability_score" bson:"stability_score"`
	PenaltyPoints  float64 `json:"penalty_points" bson:"penalty_points"`
	TotalScore     float64 `json:"total_score" bson:"total_score"`
	Details        Details `json:"details" bson:"details"`
}

type Details struct {
	TestsPassed          int `json:"tests_passed" bson:"tests_passed"`
	TestsFailed          int `json:"tests_failed" bson:"tests_failed"`
	AvgLatencyMs         int `json:"avg_latency_ms" bson:"avg_latency_ms"`
	TimeoutCount         int `json:"timeout_count" bson:"timeout_count"`
	InvalidResponseCount int `json:"invalid_response_count" bson:"invalid_response_count"`
}

// ScoreRecord is the persisted score of a team in an event. There is at most
// one record per (TeamID, EventID).
type ScoreRecord struct {
	ID          string    `json:"id" bson:"_id"`
	TeamID      string    `json:"team_id" bson:"team_id"`
	EventID     string    `json:"event_id" bson:"event_id"`
	LevelID     *string   `json:"level_id" bson:"level_id"`
	EvaluatedAt time.Time `json:"evaluated_at" bson:"evaluated_at"`
	Scores      `bson:",inline"`
}

type Submission struct {
	ID             string     `json:"id" bson:"_id"`
	TeamID         string     `json:"team_id" bson:"team_id"`
	EventID        string     `json:"event_id" bson:"event_id"`
	EndpointURL    string     `json:"endpoint_url" bson:"endpoint_url"`
	IsValidated    bool       `json:"is_validated" bson:"is_validated"`
	LastTestAt     *time.Time `json:"last_test_at" bson:"last_test_at"`
	LastTestResult *Details   `json:"last_test_result" bson:"last_test_result"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
}

// SubmissionUpdate carries the bookkeeping written to a submission after it
// has been evaluated.
type SubmissionUpdate struct {
	LastTestAt     time.Time
	LastTestResult Details
	IsValidated    bool
}

// Apply copies the update onto s.
func (u SubmissionUpdate) Apply(s *Submission) {
	at := u.LastTestAt
	details := u.LastTestResult
	s.LastTestAt = &at
	s.LastTestResult = &details
	s.IsValidated = u.IsValidated
	s.UpdatedAt = at
}

// CompareStanding orders records for a leaderboard: highest total score
// first, then the earliest evaluation, then team id.
func CompareStanding(a, b ScoreRecord) int {
	if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
		return c
	}
	if c := a.EvaluatedAt.Compare(b.EvaluatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.TeamID, b.TeamID)
}
