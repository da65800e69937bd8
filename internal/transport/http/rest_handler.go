package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/domain"
)

const defaultHistoryLimit = 20

// RESTHandler serves the read-side endpoints: health, sanitized quiz
// content and the persisted results history.
type RESTHandler struct {
	service *app.QuizService
}

func NewRESTHandler(service *app.QuizService) *RESTHandler {
	return &RESTHandler{service: service}
}

// Register mounts the routes on the router.
func (h *RESTHandler) Register(router *mux.Router) {
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/quizzes/{id}", h.getQuiz).Methods(http.MethodGet)
	api.HandleFunc("/history", h.getHistory).Methods(http.MethodGet)
}

func (h *RESTHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type quizResponse struct {
	ID        string                `json:"id"`
	Title     string                `json:"title,omitempty"`
	Questions []domain.QuestionView `json:"questions"`
}

// getQuiz returns the question sequence with the correct answers stripped.
func (h *RESTHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["id"]

	title, questions, err := h.service.QuizQuestions(r.Context(), quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		writeError(w, http.StatusNotFound, "quiz not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{ID: quizID, Title: title, Questions: questions})
}

func (h *RESTHandler) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.service.RecentHistory(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
