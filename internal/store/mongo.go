package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
)

const (
	scoresCollection      = "scores"
	submissionsCollection = "api_submissions"
)

// Mongo stores records in the "scores" and "api_submissions" collections.
type Mongo struct {
	client      *mongo.Client
	scores      *mongo.Collection
	submissions *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("mongo store: uri is required")
	}
	if database == "" {
		database = "ai_arena"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	db := client.Database(database)
	m := &Mongo{
		client:      client,
		scores:      db.Collection(scoresCollection),
		submissions: db.Collection(submissionsCollection),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// ensureIndexes makes (team_id, event_id) unique so racing upserts for the
// same pair fail instead of inserting twice.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.scores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "event_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating score index: %w", err)
	}
	return nil
}

func (m *Mongo) FindScore(ctx context.Context, teamID, eventID string) (*result.ScoreRecord, error) {
	var rec result.ScoreRecord
	err := m.scores.FindOne(ctx, bson.M{"team_id": teamID, "event_id": eventID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding score: %w", err)
	}
	return &rec, nil
}

// UpsertScore is a single UpdateOne with upsert. Together with the unique
// index, concurrent writers for the same pair cannot create duplicates.
func (m *Mongo) UpsertScore(ctx context.Context, rec *result.ScoreRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	filter := bson.M{"team_id": rec.TeamID, "event_id": rec.EventID}
	update := bson.M{
		"$set": bson.M{
			"level_id":        rec.LevelID,
			"evaluated_at":    rec.EvaluatedAt,
			"accuracy_score":  rec.AccuracyScore,
			"latency_score":   rec.LatencyScore,
			"stability_score": rec.StabilityScore,
			"penalty_points":  rec.PenaltyPoints,
			"total_score":     rec.TotalScore,
			"details":         rec.Details,
		},
		"$setOnInsert": bson.M{"_id": rec.ID},
	}
	res, err := m.scores.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting score: %w", err)
	}
	if res.UpsertedCount == 0 {
		existing, err := m.FindScore(ctx, rec.TeamID, rec.EventID)
		if err != nil {
			return err
		}
		if existing != nil {
			rec.ID = existing.ID
		}
	}
	return nil
}

func (m *Mongo) ListScores(ctx context.Context, eventID string) ([]result.ScoreRecord, error) {
	filter := bson.M{}
	if eventID != "" {
		filter["event_id"] = eventID
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "total_score", Value: -1},
		{Key: "evaluated_at", Value: 1},
		{Key: "team_id", Value: 1},
	})
	cur, err := m.scores.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	var out []result.ScoreRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding scores: %w", err)
	}
	return out, nil
}

func (m *Mongo) SaveSubmission(ctx context.Context, s *result.Submission) error {
	stampSubmission(s, time.Now().UTC())
	if _, err := m.submissions.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("saving submission: %w", err)
	}
	return nil
}

func (m *Mongo) ListSubmissions(ctx context.Context, eventID string) ([]result.Submission, error) {
	filter := bson.M{}
	if eventID != "" {
		filter["event_id"] = eventID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := m.submissions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decoding submissions: %w", err)
	}
	out := make([]result.Submission, 0, len(raw))
	for _, doc := range raw {
		s, err := decodeSubmission(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *Mongo) UpdateSubmission(ctx context.Context, id string, u result.SubmissionUpdate) error {
	update := bson.M{"$set": bson.M{
		"last_test_at":     u.LastTestAt,
		"last_test_result": u.LastTestResult,
		"is_validated":     u.IsValidated,
		"updated_at":       u.LastTestAt,
	}}
	res, err := m.submissions.UpdateOne(ctx, bson.M{"_id": submissionID(id)}, update)
	if err != nil {
		return fmt.Errorf("updating submission %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// submissionID matches both driver-generated ObjectIDs and the string ids
// this package assigns.
func submissionID(id string) any {
	if oid, err := bson.ObjectIDFromHex(id); err == nil {
		return bson.M{"$in": bson.A{oid, id}}
	}
	return id
}

// decodeSubmission accepts documents whose _id is an ObjectID, as written by
// other clients of the same database.
func decodeSubmission(doc bson.M) (result.Submission, error) {
	if oid, ok := doc["_id"].(bson.ObjectID); ok {
		doc["_id"] = oid.Hex()
	}
	var s result.Submission
	data, err := bson.Marshal(doc)
	if err != nil {
		return s, fmt.Errorf("decoding submission: %w", err)
	}
	if err := bson.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decoding submission: %w", err)
	}
	return s, nil
}
