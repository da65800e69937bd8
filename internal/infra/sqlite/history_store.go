package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"solo-quiz-service/internal/domain"
)

const defaultRecentLimit = 100

// historyRecord is the table row. The attempt log is stored as one JSON
// blob since it is only ever read back whole.
type historyRecord struct {
	ID             uint `gorm:"primaryKey"`
	QuizID         string
	FinishedAt     time.Time `gorm:"index"`
	Score          int
	TotalQuestions int
	Attempts       string
}

func (historyRecord) TableName() string { return "quiz_history" }

// HistoryStore keeps quiz summaries in a local SQLite file. It is the
// default store, so results survive restarts without any database setup.
type HistoryStore struct {
	db *gorm.DB
}

// Open opens (or creates) the database file and ensures the schema.
func Open(path string) (*HistoryStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&historyRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	attempts, err := json.Marshal(entry.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}
	record := historyRecord{
		QuizID:         entry.QuizID,
		FinishedAt:     entry.Timestamp,
		Score:          entry.Score,
		TotalQuestions: entry.TotalQuestions,
		Attempts:       string(attempts),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	var records []historyRecord
	err := s.db.WithContext(ctx).
		Order("finished_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(records))
	for _, record := range records {
		entry := domain.HistoryEntry{
			ID:             strconv.FormatUint(uint64(record.ID), 10),
			QuizID:         record.QuizID,
			Timestamp:      record.FinishedAt,
			Score:          record.Score,
			TotalQuestions: record.TotalQuestions,
		}
		if err := json.Unmarshal([]byte(record.Attempts), &entry.Attempts); err != nil {
			return nil, fmt.Errorf("unmarshal attempts: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
