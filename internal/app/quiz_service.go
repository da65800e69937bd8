package app

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"solo-quiz-service/internal/domain"
)

// SessionRepository abstracts how open quiz sessions are tracked
// (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// HistoryStore appends one summary record per completed quiz run and lists
// recent records. Append failures are treated as non-fatal by the service.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

// QuizService contains the core quiz use cases: session lifecycle, answer
// handling, per-question countdowns and completion persistence.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	history  HistoryStore

	questionSeconds int
	tickInterval    time.Duration

	mu     sync.Mutex
	timers map[string]context.CancelFunc
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, history HistoryStore) *QuizService {
	return &QuizService{
		sessions:        store,
		quizzes:         quizzes,
		history:         history,
		questionSeconds: DefaultQuestionSeconds,
		tickInterval:    time.Second,
		timers:          make(map[string]context.CancelFunc),
	}
}

// WithQuestionSeconds overrides the per-question countdown start value.
func (s *QuizService) WithQuestionSeconds(seconds int) *QuizService {
	if seconds > 0 {
		s.questionSeconds = seconds
	}
	return s
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string, quiz domain.Quiz, questionSeconds int) *Session {
	return newSession(id, quiz, questionSeconds)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, quiz domain.Quiz, questionSeconds int, now func() time.Time) *Session {
	return newSessionWithClock(id, quiz, questionSeconds, now)
}

// StartSession loads the quiz, opens a fresh session on its first question
// and starts the countdown.
func (s *QuizService) StartSession(ctx context.Context, quizID string) (domain.SessionView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if len(quiz.Questions) == 0 {
		return domain.SessionView{}, domain.ErrQuizEmpty
	}

	session := newSession(uuid.NewString(), quiz, s.questionSeconds)
	s.sessions.Put(session)
	s.startCountdown(session)
	return session.View(), nil
}

// SubmitAnswer records one attempt for the session's current question.
// Blank input is rejected before it reaches the session, so it never counts
// as an attempt.
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID, answer string) (domain.SessionView, error) {
	if strings.TrimSpace(answer) == "" {
		return domain.SessionView{}, domain.ErrEmptyAnswer
	}
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	return session.submit(answer)
}

// Advance moves the session to the next question; on the last question it
// finishes the quiz and kicks off the history write.
func (s *QuizService) Advance(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	view, finished := session.advance()
	if finished {
		s.finishSession(session)
	}
	return view, nil
}

// Restart resets the session to its initial state and resumes the countdown.
// Restarting never writes history; only reaching the end of the quiz does.
func (s *QuizService) Restart(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	view := session.restart()
	s.startCountdown(session)
	return view, nil
}

// State returns the session's current snapshot.
func (s *QuizService) State(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	return session.View(), nil
}

// Subscribe returns a channel that receives session snapshots on every
// state change, countdown ticks included. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionView, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// CloseSession stops the countdown and forgets the session.
func (s *QuizService) CloseSession(sessionID string) {
	s.stopCountdown(sessionID)
	s.sessions.Delete(sessionID)
}

// QuizQuestions returns the quiz's questions with the correct answers
// stripped, for clients that render the sequence themselves.
func (s *QuizService) QuizQuestions(ctx context.Context, quizID string) (string, []domain.QuestionView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", nil, err
	}
	views := make([]domain.QuestionView, 0, len(quiz.Questions))
	for i, question := range quiz.Questions {
		options := make([]string, len(question.Options))
		copy(options, question.Options)
		views = append(views, domain.QuestionView{
			Index:    i,
			Text:     question.Text,
			Options:  options,
			FreeText: question.FreeText(),
		})
	}
	return quiz.Title, views, nil
}

// RecentHistory lists the latest persisted quiz summaries, newest first.
func (s *QuizService) RecentHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	return s.history.Recent(ctx, limit)
}

// startCountdown launches the per-session ticker goroutine. It is a no-op
// while a runner for the session is already alive, so a restart mid-run
// reuses the existing one.
func (s *QuizService) startCountdown(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.timers[session.ID()]; running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.timers[session.ID()] = cancel
	go s.runCountdown(ctx, session)
}

func (s *QuizService) stopCountdown(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.timers[sessionID]; ok {
		cancel()
		delete(s.timers, sessionID)
	}
}

func (s *QuizService) runCountdown(ctx context.Context, session *Session) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if finished := session.tick(); finished {
				s.finishSession(session)
				return
			}
		}
	}
}

// finishSession runs once per completion: it stops the countdown and hands
// the summary to the history store in the background. The caller gets its
// results view immediately; the write outcome arrives as a later update.
func (s *QuizService) finishSession(session *Session) {
	s.stopCountdown(session.ID())
	entry, ok := session.takeFinishedEntry()
	if !ok {
		return
	}
	go s.persistHistory(session, entry)
}

func (s *QuizService) persistHistory(session *Session, entry domain.HistoryEntry) {
	err := s.history.Append(context.Background(), entry)
	if err != nil {
		// Fire-and-forget: log and move on, the results screen stays usable.
		log.Printf("quiz history append failed for session %s: %v", session.ID(), err)
	}
	session.markHistorySaved(err == nil)
}
