package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"solo-quiz-service/internal/domain"
	"solo-quiz-service/internal/infra/memory"
)

func newRESTServer(t *testing.T) (*httptest.Server, *memory.HistoryStore) {
	t.Helper()
	service, history := newTestService()
	router := mux.NewRouter()
	NewRESTHandler(service).Register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, history
}

func TestHealthz(t *testing.T) {
	server, _ := newRESTServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestGetQuizSanitized(t *testing.T) {
	server, _ := newRESTServer(t)

	resp, err := http.Get(server.URL + "/api/v1/quizzes/quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		ID        string           `json:"id"`
		Title     string           `json:"title"`
		Questions []map[string]any `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "quiz-1" || len(body.Questions) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	for _, question := range body.Questions {
		if _, leaked := question["correctAnswer"]; leaked {
			t.Fatalf("correct answer leaked: %+v", question)
		}
	}
	if body.Questions[1]["freeText"] != true {
		t.Fatalf("expected free text marker: %+v", body.Questions[1])
	}
}

func TestGetQuizNotFound(t *testing.T) {
	server, _ := newRESTServer(t)

	resp, err := http.Get(server.URL + "/api/v1/quizzes/missing")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetHistory(t *testing.T) {
	server, history := newRESTServer(t)

	resp, err := http.Get(server.URL + "/api/v1/history")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	var entries []domain.HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %+v", entries)
	}

	err = history.Append(context.Background(), domain.HistoryEntry{
		QuizID:         "quiz-1",
		Timestamp:      time.Now().UTC(),
		Score:          2,
		TotalQuestions: 2,
		Attempts: []domain.AttemptRecord{
			{Question: "What is 2 + 2?", SelectedAnswer: "4", Correct: true, AttemptNumber: 1},
		},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	resp, err = http.Get(server.URL + "/api/v1/history?limit=5")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != 2 {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestGetHistoryBadLimit(t *testing.T) {
	server, _ := newRESTServer(t)

	for _, raw := range []string{"abc", "-1", "0"} {
		resp, err := http.Get(server.URL + "/api/v1/history?limit=" + raw)
		if err != nil {
			t.Fatalf("get history: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("limit=%s: expected 400, got %d", raw, resp.StatusCode)
		}
	}
}
