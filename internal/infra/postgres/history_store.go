package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4/pgxpool"

	"solo-quiz-service/internal/domain"
)

const defaultRecentLimit = 100

// HistoryStore persists completed-run summaries as rows with the attempt
// log folded into a JSONB column.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	attempts, err := json.Marshal(entry.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_history (quiz_id, finished_at, score, total_questions, attempts)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.QuizID, entry.Timestamp, entry.Score, entry.TotalQuestions, attempts)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, finished_at, score, total_questions, attempts
		 FROM quiz_history
		 ORDER BY finished_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			id       int64
			entry    domain.HistoryEntry
			attempts []byte
		)
		if err := rows.Scan(&id, &entry.QuizID, &entry.Timestamp, &entry.Score, &entry.TotalQuestions, &attempts); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if err := json.Unmarshal(attempts, &entry.Attempts); err != nil {
			return nil, fmt.Errorf("unmarshal attempts: %w", err)
		}
		entry.ID = strconv.FormatInt(id, 10)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}
