// Package report ranks score records into a leaderboard and renders it.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
)

// DefaultLimit is the number of standings shown when no limit is given.
const DefaultLimit = 10

type Standing struct {
	Rank           int       `json:"rank"`
	TeamID         string    `json:"team_id"`
	EventID        string    `json:"event_id"`
	LevelID        *string   `json:"level_id"`
	TotalScore     float64   `json:"total_score"`
	AccuracyScore  float64   `json:"accuracy_score"`
	LatencyScore   float64   `json:"latency_score"`
	StabilityScore float64   `json:"stability_score"`
	PenaltyPoints  float64   `json:"penalty_points"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

// EventSummary aggregates the records of one event.
type EventSummary struct {
	EventID     string  `json:"event_id"`
	Teams       int     `json:"teams"`
	Scoring     int     `json:"scoring"`
	MeanScore   float64 `json:"mean_score"`
	TopTeam     string  `json:"top_team"`
	TopScore    float64 `json:"top_score"`
	MeanLatency float64 `json:"mean_latency_ms"`
}

type Lister interface {
	ListScores(ctx context.Context, eventID string) ([]result.ScoreRecord, error)
}

// Leaderboard loads the records of eventID (all events when empty) and ranks
// the first limit of them. limit <= 0 means DefaultLimit.
func Leaderboard(ctx context.Context, l Lister, eventID string, limit int) ([]Standing, error) {
	recs, err := l.ListScores(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("loading scores: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Rank(recs, limit), nil
}

// Rank orders recs best first and numbers them from 1. recs is not modified.
// A non-positive limit keeps every record.
func Rank(recs []result.ScoreRecord, limit int) []Standing {
	sorted := slices.Clone(recs)
	slices.SortStableFunc(sorted, result.CompareStanding)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	standings := make([]Standing, len(sorted))
	for i, r := range sorted {
		standings[i] = Standing{
			Rank:           i + 1,
			TeamID:         r.TeamID,
			EventID:        r.EventID,
			LevelID:        r.LevelID,
			TotalScore:     r.TotalScore,
			AccuracyScore:  r.AccuracyScore,
			LatencyScore:   r.LatencyScore,
			StabilityScore: r.StabilityScore,
			PenaltyPoints:  r.PenaltyPoints,
			EvaluatedAt:    r.EvaluatedAt,
		}
	}
	return standings
}

// Summarize groups recs by event.
func Summarize(recs []result.ScoreRecord) []EventSummary {
	type accum struct {
		count   int
		scoring int
		score   float64
		latency float64
		top     result.ScoreRecord
	}
	byEvent := map[string]*accum{}

	for _, r := range recs {
		a, ok := byEvent[r.EventID]
		if !ok {
			a = &accum{top: r}
			byEvent[r.EventID] = a
		}
		a.count++
		a.score += r.TotalScore
		a.latency += float64(r.Details.AvgLatencyMs)
		if r.TotalScore > 0 {
			a.scoring++
		}
		if result.CompareStanding(r, a.top) < 0 {
			a.top = r
		}
	}

	var summaries []EventSummary
	for event, a := range byEvent {
		summaries = append(summaries, EventSummary{
			EventID:     event,
			Teams:       a.count,
			Scoring:     a.scoring,
			MeanScore:   a.score / float64(a.count),
			TopTeam:     a.top.TeamID,
			TopScore:    a.top.TotalScore,
			MeanLatency: a.latency / float64(a.count),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].EventID < summaries[j].EventID
	})
	return summaries
}

// Write renders standings as "table" (default), "markdown" or "json".
func Write(standings []Standing, format string, w io.Writer) error {
	switch format {
	case "markdown":
		return writeMarkdown(standings, w)
	case "json":
		return writeJSON(standings, w)
	default:
		return writeTable(standings, w)
	}
}

func writeTable(standings []Standing, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTEAM\tEVENT\tTOTAL\tACCURACY\tLATENCY\tSTABILITY\tPENALTY")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range standings {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.0f\n",
			s.Rank, s.TeamID, s.EventID, s.TotalScore, s.AccuracyScore, s.LatencyScore, s.StabilityScore, s.PenaltyPoints)
	}
	return tw.Flush()
}

func writeMarkdown(standings []Standing, w io.Writer) error {
	fmt.Fprintln(w, "| Rank | Team | Event | Total | Accuracy | Latency | Stability | Penalty |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|")
	for _, s := range standings {
		fmt.Fprintf(w, "| %d | %s | %s | %.2f | %.2f | %.2f | %.2f | %.0f |\n",
			s.Rank, s.TeamID, s.EventID, s.TotalScore, s.AccuracyScore, s.LatencyScore, s.StabilityScore, s.PenaltyPoints)
	}
	return nil
}

func writeJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSummary renders per-event summaries in the same formats as Write.
func WriteSummary(summaries []EventSummary, format string, w io.Writer) error {
	switch format {
	case "json":
		return writeJSON(summaries, w)
	case "markdown":
		fmt.Fprintln(w, "| Event | Teams | Scoring | Mean Score | Mean Latency | Leader |")
		fmt.Fprintln(w, "|---|---|---|---|---|---|")
		for _, s := range summaries {
			fmt.Fprintf(w, "| %s | %d | %d | %.2f | %.0fms | %s (%.2f) |\n",
				s.EventID, s.Teams, s.Scoring, s.MeanScore, s.MeanLatency, s.TopTeam, s.TopScore)
		}
		return nil
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EVENT\tTEAMS\tSCORING\tMEAN SCORE\tMEAN LATENCY\tLEADER")
		fmt.Fprintln(tw, strings.Repeat("-", 80))
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.0fms\t%s (%.2f)\n",
				s.EventID, s.Teams, s.Scoring, s.MeanScore, s.MeanLatency, s.TopTeam, s.TopScore)
		}
		return tw.Flush()
	}
}
