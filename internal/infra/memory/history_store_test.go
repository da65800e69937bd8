package memory

import (
	"context"
	"testing"
	"time"

	"solo-quiz-service/internal/domain"
)

func TestHistoryStoreAppendAndRecent(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	for i, score := range []int{3, 7, 10} {
		entry := domain.HistoryEntry{
			QuizID:         "quiz-1",
			Timestamp:      time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC),
			Score:          score,
			TotalQuestions: 10,
			Attempts: []domain.AttemptRecord{
				{Question: "q", SelectedAnswer: "a", Correct: true, AttemptNumber: 1, QuestionIndex: 0},
			},
		}
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Score != 10 || recent[1].Score != 7 {
		t.Fatalf("expected newest first, got %d then %d", recent[0].Score, recent[1].Score)
	}
	if recent[0].ID == "" {
		t.Fatalf("expected assigned id")
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
}
