package runner

import (
	"context"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/probe"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/suite"
)

// Prober performs one call against an endpoint.
type Prober interface {
	Probe(ctx context.Context, endpointURL, input string) probe.Outcome
}

// TestResult is the verdict for one test case.
type TestResult struct {
	Passed    bool
	LatencyMs float64
	Kind      probe.ErrorKind
	Message   string
}

// RunSuite drives p over every case one at a time, so each latency reflects
// an isolated round trip. The result has the same length and order as cases.
// Failures are recorded, never returned. Once ctx is done the remaining
// cases are marked as transport failures without being sent.
func RunSuite(ctx context.Context, p Prober, endpointURL string, cases []suite.TestCase) []TestResult {
	results := make([]TestResult, len(cases))
	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			results[i] = TestResult{Kind: probe.Transport, Message: err.Error()}
			continue
		}
		out := p.Probe(ctx, endpointURL, tc.Input)
		results[i] = TestResult{
			Passed:    out.Success && !out.Raw && out.Output == tc.ExpectedOutput,
			LatencyMs: out.LatencyMs(),
			Kind:      out.Kind,
			Message:   out.Message,
		}
	}
	return results
}
