package domain

import "time"

// NoAnswerText is recorded as the selected answer when a question times out
// without a single submission.
const NoAnswerText = "No Answer"

// Question is one entry in a quiz's fixed, order-significant sequence.
// An empty Options slice marks a free-text question; otherwise the answer
// is picked from the listed options.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// FreeText reports whether the question expects a typed answer.
func (q Question) FreeText() bool {
	return len(q.Options) == 0
}

// Quiz is an immutable ordered set of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// AttemptRecord logs a single answer submission, or a timer-forced skip.
// The log is append-only; attempt numbers are 1-based and reset per question.
type AttemptRecord struct {
	Question       string `json:"question"`
	SelectedAnswer string `json:"selectedAnswer"`
	Correct        bool   `json:"isCorrect"`
	AttemptNumber  int    `json:"attemptNumber"`
	QuestionIndex  int    `json:"questionIndex"`
}

// HistoryEntry is the persisted summary of one completed quiz run.
// It is written once when a session finishes and never updated; consumers
// must tolerate additive fields.
type HistoryEntry struct {
	ID             string          `json:"id,omitempty"`
	QuizID         string          `json:"quizId,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	Attempts       []AttemptRecord `json:"attempts"`
}

// QuestionView is the sanitized question payload crossing the rendering
// boundary. It never carries the correct answer.
type QuestionView struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	Options  []string `json:"options,omitempty"`
	FreeText bool     `json:"freeText"`
}

// SessionView is a read-only snapshot of one quiz session.
type SessionView struct {
	SessionID      string          `json:"sessionId"`
	QuizID         string          `json:"quizId"`
	Title          string          `json:"title,omitempty"`
	QuestionIndex  int             `json:"questionIndex"`
	TotalQuestions int             `json:"totalQuestions"`
	Question       *QuestionView   `json:"question,omitempty"` // nil once finished
	TimeRemaining  int             `json:"timeRemaining"`
	AttemptCount   int             `json:"attemptCount"`
	Score          int             `json:"score"`
	Feedback       string          `json:"feedback,omitempty"`
	Answered       bool            `json:"answered"`
	Finished       bool            `json:"finished"`
	Attempts       []AttemptRecord `json:"attempts"`
	HistorySaved   *bool           `json:"historySaved,omitempty"` // nil until the write settles
}
