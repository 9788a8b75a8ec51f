package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
)

// File stores one JSON document per record under a base directory:
//
//	<dir>/scores/<event_id>/<team_id>.json
//	<dir>/submissions/<id>.json
//
// Writes are serialised by a mutex and land through a rename, so readers
// never see a partial file.
type File struct {
	dir string
	mu  sync.Mutex
}

func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("file store: dir is required")
	}
	for _, sub := range []string{"scores", "submissions"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}
	return &File{dir: dir}, nil
}

func (f *File) scorePath(teamID, eventID string) string {
	return filepath.Join(f.dir, "scores", safeName(eventID), safeName(teamID)+".json")
}

func (f *File) submissionPath(id string) string {
	return filepath.Join(f.dir, "submissions", safeName(id)+".json")
}

func (f *File) FindScore(_ context.Context, teamID, eventID string) (*result.ScoreRecord, error) {
	var rec result.ScoreRecord
	err := readJSON(f.scorePath(teamID, eventID), &rec)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (f *File) UpsertScore(_ context.Context, rec *result.ScoreRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.scorePath(rec.TeamID, rec.EventID)
	var old result.ScoreRecord
	switch err := readJSON(path, &old); {
	case err == nil:
		rec.ID = old.ID
	case errors.Is(err, fs.ErrNotExist):
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
	default:
		return err
	}
	return writeJSON(path, rec)
}

func (f *File) ListScores(_ context.Context, eventID string) ([]result.ScoreRecord, error) {
	root := filepath.Join(f.dir, "scores")
	if eventID != "" {
		root = filepath.Join(root, safeName(eventID))
	}
	var out []result.ScoreRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		var rec result.ScoreRecord
		if err := readJSON(path, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	sortScores(out)
	return out, nil
}

func (f *File) SaveSubmission(_ context.Context, s *result.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stampSubmission(s, time.Now().UTC())
	return writeJSON(f.submissionPath(s.ID), s)
}

func (f *File) ListSubmissions(_ context.Context, eventID string) ([]result.Submission, error) {
	entries, err := os.ReadDir(filepath.Join(f.dir, "submissions"))
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	var out []result.Submission
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var s result.Submission
		if err := readJSON(filepath.Join(f.dir, "submissions", e.Name()), &s); err != nil {
			return nil, err
		}
		if eventID == "" || s.EventID == eventID {
			out = append(out, s)
		}
	}
	sortSubmissions(out)
	return out, nil
}

func (f *File) UpdateSubmission(_ context.Context, id string, u result.SubmissionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.submissionPath(id)
	var s result.Submission
	err := readJSON(path, &s)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	u.Apply(&s)
	return writeJSON(path, &s)
}

func (f *File) Close(context.Context) error { return nil }

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// safeName turns an arbitrary id into a single path element.
func safeName(s string) string {
	s = url.PathEscape(s)
	if s == "" || strings.Trim(s, ".") == "" {
		s = strings.ReplaceAll(s, ".", "%2E") + "_"
	}
	return s
}
