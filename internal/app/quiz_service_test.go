package app_test

import (
	"context"
	"testing"
	"time"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/domain"
	"solo-quiz-service/internal/infra/memory"
)

func TestStartSessionUnknownQuiz(t *testing.T) {
	service, _ := newTestService()

	if _, err := service.StartSession(context.Background(), "no-such-quiz"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestStartSessionOpensFirstQuestion(t *testing.T) {
	service, _ := newTestService()

	view, err := service.StartSession(context.Background(), memory.DefaultQuizID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if view.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if view.QuestionIndex != 0 || view.TotalQuestions != 10 {
		t.Fatalf("expected first of 10 questions, got %+v", view)
	}
	if view.Question == nil || view.Question.Text != "Which planet is closest to the Sun?" {
		t.Fatalf("unexpected first question: %+v", view.Question)
	}
	if view.TimeRemaining != app.DefaultQuestionSeconds {
		t.Fatalf("expected full countdown, got %d", view.TimeRemaining)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if _, err := service.SubmitAnswer(ctx, "missing", "Mercury"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}

	view, err := service.StartSession(ctx, memory.DefaultQuizID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for _, blank := range []string{"", "   ", "\t"} {
		if _, err := service.SubmitAnswer(ctx, view.SessionID, blank); err != domain.ErrEmptyAnswer {
			t.Fatalf("expected empty answer error for %q, got %v", blank, err)
		}
	}

	state, err := service.State(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	if state.AttemptCount != 0 || len(state.Attempts) != 0 {
		t.Fatalf("blank input must not count as an attempt: %+v", state)
	}
}

func TestRetryUntilCorrect(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	view, err := service.StartSession(ctx, memory.DefaultQuizID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	view, err = service.SubmitAnswer(ctx, view.SessionID, "Venus")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if view.Answered || view.Score != 0 || view.AttemptCount != 1 {
		t.Fatalf("wrong answer handled badly: %+v", view)
	}

	view, err = service.SubmitAnswer(ctx, view.SessionID, "Mercury")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !view.Answered || view.Score != 1 || view.AttemptCount != 2 {
		t.Fatalf("correct answer handled badly: %+v", view)
	}
	if got := view.Attempts[1]; got.AttemptNumber != 2 || !got.Correct {
		t.Fatalf("unexpected attempt record: %+v", got)
	}
}

func TestFullRunPersistsOneSummary(t *testing.T) {
	ctx := context.Background()
	service, history := newTestService()

	view, err := service.StartSession(ctx, memory.DefaultQuizID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	sessionID := view.SessionID

	answers := []string{
		"Mercury", "Mars", "8", "Saturn", "Jupiter",
		"Uranus", "Milky Way", "Venus", "Moon", "Neptune",
	}
	for _, answer := range answers {
		if _, err := service.SubmitAnswer(ctx, sessionID, answer); err != nil {
			t.Fatalf("submit %q failed: %v", answer, err)
		}
		if view, err = service.Advance(ctx, sessionID); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	if !view.Finished || view.QuestionIndex != 10 || view.Score != 10 {
		t.Fatalf("expected perfect finished run, got %+v", view)
	}
	if view.Question != nil {
		t.Fatalf("finished view must not carry a question")
	}

	waitForEntries(t, history, 1)
	entries, err := history.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	entry := entries[0]
	if entry.Score != 10 || entry.TotalQuestions != 10 || len(entry.Attempts) != 10 {
		t.Fatalf("unexpected history entry: %+v", entry)
	}
	if entry.QuizID != memory.DefaultQuizID {
		t.Fatalf("expected quiz id on entry, got %q", entry.QuizID)
	}

	// Once finished, further submissions are rejected and advancing changes nothing.
	if _, err := service.SubmitAnswer(ctx, sessionID, "Mercury"); err != domain.ErrSessionFinished {
		t.Fatalf("expected finished error, got %v", err)
	}
	if view, err = service.Advance(ctx, sessionID); err != nil || !view.Finished {
		t.Fatalf("advance after finish: %v %+v", err, view)
	}
	time.Sleep(20 * time.Millisecond)
	waitForEntries(t, history, 1)
}

func TestRestartResetsWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	service, history := newTestService()

	view, err := service.StartSession(ctx, memory.DefaultQuizID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, view.SessionID, "Mercury"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := service.Advance(ctx, view.SessionID); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	view, err = service.Restart(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if view.QuestionIndex != 0 || view.Score != 0 || len(view.Attempts) != 0 {
		t.Fatalf("restart must reset the run: %+v", view)
	}

	time.Sleep(20 * time.Millisecond)
	waitForEntries(t, history, 0)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	view, err := service.StartSession(ctx, memory.DefaultQuizID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ch, cancel, err := service.Subscribe(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	if _, err := service.SubmitAnswer(ctx, view.SessionID, "Mercury"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Countdown ticks can interleave, so read until the scored snapshot shows up.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case update := <-ch:
			if update.Score == 1 && update.Answered {
				return
			}
		case <-deadline:
			t.Fatalf("expected a scored subscription update")
		}
	}
}

func TestCloseSessionForgetsState(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	view, err := service.StartSession(ctx, memory.DefaultQuizID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	service.CloseSession(view.SessionID)

	if _, err := service.State(ctx, view.SessionID); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func newTestService() (*app.QuizService, *memory.HistoryStore) {
	sessionStore := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(memory.DefaultCatalog()), 5*time.Minute)
	history := memory.NewHistoryStore()
	return app.NewQuizService(sessionStore, quizRepo, history), history
}

func waitForEntries(t *testing.T, history *memory.HistoryStore, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := history.Recent(context.Background(), 0)
		if err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if len(entries) == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d history entries, have %d", want, len(entries))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
