// Package scoring reduces raw test results to the composite arena score.
package scoring

import (
	"math"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/probe"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/runner"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/suite"
)

// Weights blends the three sub-scores into the total.
type Weights struct {
	Accuracy  float64
	Latency   float64
	Stability float64
}

var DefaultWeights = Weights{
	Accuracy:  0.5,
	Latency:   0.25,
	Stability: 0.25,
}

const (
	// Full latency marks at or below this average.
	latencyFloorMs = 200
	// One point lost per this many ms above the floor; reaches 0 near the 5s timeout.
	latencyDecayPerPoint = 48

	timeoutPenalty         = 5
	invalidResponsePenalty = 10
)

// Compute scores results against the cases they were produced from. The two
// slices must have the same length. Compute is pure.
func Compute(results []runner.TestResult, cases []suite.TestCase) result.Scores {
	var (
		totalWeight, passedWeight float64
		totalLatency              float64
		passed, failed            int
		timeouts, invalid         int
	)
	for _, c := range cases {
		totalWeight += c.Weight
	}
	for i, r := range results {
		if r.Passed {
			passedWeight += cases[i].Weight
			passed++
		} else {
			failed++
		}
		switch r.Kind {
		case probe.Timeout:
			timeouts++
		case probe.InvalidFormat:
			invalid++
		}
		totalLatency += r.LatencyMs
	}

	var avgLatency, successRate, accuracy float64
	if len(results) > 0 {
		avgLatency = totalLatency / float64(len(results))
		successRate = float64(passed) / float64(len(results))
	}
	if totalWeight > 0 {
		accuracy = passedWeight / totalWeight * 100
	}
	latency := LatencyScore(avgLatency)
	stability := successRate * 100
	penalty := float64(timeouts*timeoutPenalty + invalid*invalidResponsePenalty)
	total := CompositeScore(accuracy, latency, stability, penalty, DefaultWeights)

	return result.Scores{
		AccuracyScore:  Round2(accuracy),
		LatencyScore:   Round2(latency),
		StabilityScore: Round2(stability),
		PenaltyPoints:  Round2(penalty),
		TotalScore:     Round2(total),
		Details: result.Details{
			TestsPassed:          passed,
			TestsFailed:          failed,
			AvgLatencyMs:         int(math.Round(avgLatency)),
			TimeoutCount:         timeouts,
			InvalidResponseCount: invalid,
		},
	}
}

// LatencyScore decays linearly from 100 at 200ms average latency to 0 at
// 5000ms, clamped to [0, 100].
func LatencyScore(avgLatencyMs float64) float64 {
	return clamp(100-(avgLatencyMs-latencyFloorMs)/latencyDecayPerPoint, 0, 100)
}

// CompositeScore blends the sub-scores and subtracts penalties. The result is
// floored at zero but has no upper cap.
func CompositeScore(accuracy, latency, stability, penalty float64, w Weights) float64 {
	return math.Max(0, accuracy*w.Accuracy+latency*w.Latency+stability*w.Stability-penalty)
}

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
