// Package notify announces score updates to live scoreboards.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
)

const DefaultSubjectPrefix = "arena.scores"

// ScoreEvent is published after every successful score write.
type ScoreEvent struct {
	TeamID      string        `json:"team_id"`
	EventID     string        `json:"event_id"`
	LevelID     *string       `json:"level_id"`
	Scores      result.Scores `json:"scores"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev ScoreEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, ScoreEvent) error { return nil }
func (Nop) Close() error                             { return nil }

type publisher interface {
	Publish(subj string, data []byte) error
}

// NATS publishes events as JSON on "<prefix>.<event_id>".
type NATS struct {
	pub    publisher
	conn   *nats.Conn
	prefix string
}

// Connect dials the NATS server at url.
func Connect(url, prefix string) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("arena"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", url, err)
	}
	n := newNATS(nc, prefix)
	n.conn = nc
	return n, nil
}

func newNATS(pub publisher, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject events of eventID are published on.
func (n *NATS) Subject(eventID string) string {
	return n.prefix + "." + subjectToken(eventID)
}

func (n *NATS) Notify(_ context.Context, ev ScoreEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling score event: %w", err)
	}
	if err := n.pub.Publish(n.Subject(ev.EventID), b); err != nil {
		return fmt.Errorf("publishing score event: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

// subjectToken keeps an id from adding tokens or wildcards to the subject.
func subjectToken(id string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, id)
}
