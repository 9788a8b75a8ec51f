// Package store persists score records and submissions.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
)

// ErrNotFound is returned when an update targets a record that does not exist.
var ErrNotFound = errors.New("not found")

// Gateway is the persistence boundary of the arena. Implementations must be
// safe for concurrent use.
type Gateway interface {
	// FindScore returns the record for (teamID, eventID), or nil if there is none.
	FindScore(ctx context.Context, teamID, eventID string) (*result.ScoreRecord, error)
	// UpsertScore writes rec keyed by (TeamID, EventID). If a record already
	// exists its id is kept and copied back into rec.
	UpsertScore(ctx context.Context, rec *result.ScoreRecord) error
	// ListScores returns the records of one event, or all records when
	// eventID is empty, ordered by total score descending.
	ListScores(ctx context.Context, eventID string) ([]result.ScoreRecord, error)

	SaveSubmission(ctx context.Context, s *result.Submission) error
	ListSubmissions(ctx context.Context, eventID string) ([]result.Submission, error)
	// UpdateSubmission returns ErrNotFound for an unknown id.
	UpdateSubmission(ctx context.Context, id string, u result.SubmissionUpdate) error

	Close(ctx context.Context) error
}

type Options struct {
	Backend  string
	Dir      string
	MongoURI string
	Database string
}

// Open builds the gateway selected by opts.Backend. An empty backend means
// file; memory must be asked for.
func Open(ctx context.Context, opts Options) (Gateway, error) {
	switch opts.Backend {
	case "memory":
		return NewMemory(), nil
	case "", "file":
		return NewFile(opts.Dir)
	case "mongo":
		return NewMongo(ctx, opts.MongoURI, opts.Database)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func sortScores(recs []result.ScoreRecord) {
	slices.SortStableFunc(recs, result.CompareStanding)
}

func sortSubmissions(subs []result.Submission) {
	slices.SortStableFunc(subs, func(a, b result.Submission) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
