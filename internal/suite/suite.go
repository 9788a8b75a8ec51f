// Package suite defines the weighted test cases an endpoint is evaluated
// against and where they come from.
package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type TestCase struct {
	Input          string  `toml:"input" json:"input"`
	ExpectedOutput string  `toml:"expected_output" json:"expected_output"`
	Weight         float64 `toml:"weight" json:"weight"`
}

// Default returns the built-in five-case suite used when no file is configured.
func Default() []TestCase {
	cases := make([]TestCase, 5)
	for i := range cases {
		cases[i] = TestCase{
			Input:          fmt.Sprintf("test_data_%d", i+1),
			ExpectedOutput: fmt.Sprintf("result_%d", i+1),
			Weight:         1,
		}
	}
	return cases
}

// Validate checks that every weight is positive. A suite with no cases is
// rejected because accuracy would divide by a zero total weight.
func Validate(cases []TestCase) error {
	if len(cases) == 0 {
		return errors.New("suite has no test cases")
	}
	for i, c := range cases {
		if c.Weight <= 0 {
			return fmt.Errorf("case %d: weight must be positive, got %v", i, c.Weight)
		}
	}
	return nil
}

type file struct {
	Cases []TestCase `toml:"cases"`
}

// LoadFile parses a TOML suite:
//
//	[[cases]]
//	input = "test_data_1"
//	expected_output = "result_1"
//	weight = 1
//
// A case without a weight gets weight 1.
func LoadFile(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite %s: %w", path, err)
	}
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing suite %s: %w", path, err)
	}
	for i := range f.Cases {
		if f.Cases[i].Weight == 0 {
			f.Cases[i].Weight = 1
		}
	}
	if err := Validate(f.Cases); err != nil {
		return nil, fmt.Errorf("invalid suite %s: %w", path, err)
	}
	return f.Cases, nil
}

// Source supplies the test cases for an evaluation of the given event.
type Source interface {
	Cases(ctx context.Context, eventID string) ([]TestCase, error)
}

// Static serves the same cases for every event.
type Static []TestCase

func (s Static) Cases(context.Context, string) ([]TestCase, error) {
	out := make([]TestCase, len(s))
	copy(out, s)
	return out, nil
}

// Dir looks for <Dir>/<eventID>.toml and falls back to Fallback when the
// event has no suite of its own.
type Dir struct {
	Path     string
	Fallback Source
}

func (d *Dir) Cases(ctx context.Context, eventID string) ([]TestCase, error) {
	if eventID != "" && !strings.ContainsAny(eventID, `/\`) && eventID != "." && eventID != ".." {
		path := filepath.Join(d.Path, eventID+".toml")
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	if d.Fallback == nil {
		return Default(), nil
	}
	return d.Fallback.Cases(ctx, eventID)
}

// NewSource builds the configured source: a global suite file (or the
// built-in cases) optionally overridden per event from dir.
func NewSource(suiteFile, dir string) (Source, error) {
	base := Static(Default())
	if suiteFile != "" {
		cases, err := LoadFile(suiteFile)
		if err != nil {
			return nil, err
		}
		base = Static(cases)
	}
	if dir == "" {
		return base, nil
	}
	return &Dir{Path: dir, Fallback: base}, nil
}
