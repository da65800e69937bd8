package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"solo-quiz-service/internal/domain"
)

func TestHistoryStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, score := range []int{4, 9} {
		entry := domain.HistoryEntry{
			QuizID:         "solar-system",
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			Score:          score,
			TotalQuestions: 10,
			Attempts: []domain.AttemptRecord{
				{Question: "Which planet is closest to the Sun?", SelectedAnswer: "Mercury", Correct: true, AttemptNumber: 1, QuestionIndex: 0},
				{Question: "How many planets orbit the Sun?", SelectedAnswer: domain.NoAnswerText, Correct: false, AttemptNumber: 1, QuestionIndex: 1},
			},
		}
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Score != 9 || entries[1].Score != 4 {
		t.Fatalf("expected newest first, got %d then %d", entries[0].Score, entries[1].Score)
	}
	got := entries[0]
	if got.ID == "" || got.QuizID != "solar-system" || got.TotalQuestions != 10 {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if len(got.Attempts) != 2 || got.Attempts[1].SelectedAnswer != domain.NoAnswerText {
		t.Fatalf("attempt log lost in round trip: %+v", got.Attempts)
	}

	// Reopen the same file: rows must still be there.
	store2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entries, err = store2.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent after reopen: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != 9 {
		t.Fatalf("expected persisted newest entry, got %+v", entries)
	}
}
