package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"solo-quiz-service/internal/domain"
)

const (
	defaultRecentLimit = 100
	historyCollection  = "quiz_history"
)

// historyDocument mirrors domain.HistoryEntry with bson tags; the attempt
// log nests as an array of subdocuments.
type historyDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	QuizID         string             `bson:"quiz_id,omitempty"`
	FinishedAt     time.Time          `bson:"finished_at"`
	Score          int                `bson:"score"`
	TotalQuestions int                `bson:"total_questions"`
	Attempts       []attemptDocument  `bson:"attempts"`
}

type attemptDocument struct {
	Question       string `bson:"question"`
	SelectedAnswer string `bson:"selected_answer"`
	Correct        bool   `bson:"correct"`
	AttemptNumber  int    `bson:"attempt_number"`
	QuestionIndex  int    `bson:"question_index"`
}

// HistoryStore persists completed-run summaries in a MongoDB collection.
type HistoryStore struct {
	collection *mongo.Collection
}

func NewHistoryStore(client *mongo.Client, database string) *HistoryStore {
	return &HistoryStore{
		collection: client.Database(database).Collection(historyCollection),
	}
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	doc := historyDocument{
		QuizID:         entry.QuizID,
		FinishedAt:     entry.Timestamp,
		Score:          entry.Score,
		TotalQuestions: entry.TotalQuestions,
		Attempts:       toAttemptDocuments(entry.Attempts),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "finished_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []historyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, domain.HistoryEntry{
			ID:             doc.ID.Hex(),
			QuizID:         doc.QuizID,
			Timestamp:      doc.FinishedAt,
			Score:          doc.Score,
			TotalQuestions: doc.TotalQuestions,
			Attempts:       toAttemptRecords(doc.Attempts),
		})
	}
	return entries, nil
}

func toAttemptDocuments(attempts []domain.AttemptRecord) []attemptDocument {
	docs := make([]attemptDocument, 0, len(attempts))
	for _, attempt := range attempts {
		docs = append(docs, attemptDocument{
			Question:       attempt.Question,
			SelectedAnswer: attempt.SelectedAnswer,
			Correct:        attempt.Correct,
			AttemptNumber:  attempt.AttemptNumber,
			QuestionIndex:  attempt.QuestionIndex,
		})
	}
	return docs
}

func toAttemptRecords(docs []attemptDocument) []domain.AttemptRecord {
	attempts := make([]domain.AttemptRecord, 0, len(docs))
	for _, doc := range docs {
		attempts = append(attempts, domain.AttemptRecord{
			Question:       doc.Question,
			SelectedAnswer: doc.SelectedAnswer,
			Correct:        doc.Correct,
			AttemptNumber:  doc.AttemptNumber,
			QuestionIndex:  doc.QuestionIndex,
		})
	}
	return attempts
}
