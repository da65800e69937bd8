package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"solo-quiz-service/internal/domain"
)

// DefaultQuizID names the built-in quiz that is always playable, even with
// no backing store configured.
const DefaultQuizID = "solar-system"

// DefaultCatalog returns the built-in quiz content keyed by quiz id.
func DefaultCatalog() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		DefaultQuizID: {
			ID:    DefaultQuizID,
			Title: "Solar System Quiz",
			Questions: []domain.Question{
				{
					Text:          "Which planet is closest to the Sun?",
					Options:       []string{"Venus", "Mercury", "Mars", "Earth"},
					CorrectAnswer: "Mercury",
				},
				{
					Text:          "Which planet is known as the Red Planet?",
					Options:       []string{"Jupiter", "Saturn", "Mars", "Venus"},
					CorrectAnswer: "Mars",
				},
				{
					Text:          "How many planets orbit the Sun?",
					CorrectAnswer: "8",
				},
				{
					Text:          "Which planet has the most prominent ring system?",
					Options:       []string{"Saturn", "Uranus", "Neptune", "Jupiter"},
					CorrectAnswer: "Saturn",
				},
				{
					Text:          "What is the largest planet in the solar system?",
					Options:       []string{"Earth", "Neptune", "Jupiter", "Saturn"},
					CorrectAnswer: "Jupiter",
				},
				{
					Text:          "Which planet rotates on its side, tilted almost 98 degrees?",
					Options:       []string{"Mercury", "Uranus", "Venus", "Mars"},
					CorrectAnswer: "Uranus",
				},
				{
					Text:          "Name the galaxy that contains our solar system.",
					CorrectAnswer: "Milky Way",
				},
				{
					Text:          "Which planet is the hottest in the solar system?",
					Options:       []string{"Mercury", "Venus", "Mars", "Jupiter"},
					CorrectAnswer: "Venus",
				},
				{
					Text:          "What is the name of Earth's natural satellite?",
					CorrectAnswer: "Moon",
				},
				{
					Text:          "Which planet is farthest from the Sun?",
					Options:       []string{"Uranus", "Neptune", "Pluto", "Saturn"},
					CorrectAnswer: "Neptune",
				},
			},
		},
	}
}

// StaticQuizLoader is a loader backed by an in-memory map. It serves the
// built-in catalog and any quizzes loaded from a file.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// LoadCatalogFile reads extra quizzes from a JSON file holding an array of
// quiz documents. Entries are validated so a broken file fails at startup
// instead of mid-session.
func LoadCatalogFile(path string) (map[string]domain.Quiz, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz catalog %s: %w", path, err)
	}

	var quizzes []domain.Quiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		return nil, fmt.Errorf("parse quiz catalog %s: %w", path, err)
	}

	catalog := make(map[string]domain.Quiz, len(quizzes))
	for _, quiz := range quizzes {
		if err := validateQuiz(quiz); err != nil {
			return nil, fmt.Errorf("quiz catalog %s: %w", path, err)
		}
		catalog[quiz.ID] = quiz
	}
	return catalog, nil
}

func validateQuiz(quiz domain.Quiz) error {
	if quiz.ID == "" {
		return fmt.Errorf("quiz without id")
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("quiz %s: %w", quiz.ID, domain.ErrQuizEmpty)
	}
	for i, question := range quiz.Questions {
		if question.Text == "" {
			return fmt.Errorf("quiz %s: question %d has no text", quiz.ID, i)
		}
		if question.CorrectAnswer == "" {
			return fmt.Errorf("quiz %s: question %d has no correct answer", quiz.ID, i)
		}
		if question.FreeText() {
			continue
		}
		found := false
		for _, option := range question.Options {
			if option == question.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("quiz %s: question %d correct answer not among options", quiz.ID, i)
		}
	}
	return nil
}

// FallbackLoader tries a primary loader and falls back to another when the
// primary does not know the quiz id. It lets a database-backed catalog keep
// serving the built-in quiz.
type FallbackLoader struct {
	primary  QuizLoader
	fallback QuizLoader
}

func NewFallbackLoader(primary, fallback QuizLoader) *FallbackLoader {
	return &FallbackLoader{primary: primary, fallback: fallback}
}

func (l *FallbackLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := l.primary.LoadQuiz(ctx, quizID)
	if err == nil {
		return quiz, nil
	}
	if errors.Is(err, domain.ErrQuizNotFound) {
		return l.fallback.LoadQuiz(ctx, quizID)
	}
	return domain.Quiz{}, err
}
