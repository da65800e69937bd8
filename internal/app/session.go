package app

import (
	"strings"
	"sync"
	"time"

	"solo-quiz-service/internal/domain"
)

// DefaultQuestionSeconds is the countdown value every question starts from.
const DefaultQuestionSeconds = 30

// Feedback lines are transient per-question state, cleared on every
// question transition.
const (
	feedbackCorrect   = "Correct!"
	feedbackIncorrect = "Incorrect, try again."
)

// Session is the mutable state of one quiz run: current question, running
// score, attempt log, countdown and finished flag. Every transition happens
// under the session mutex, so snapshots observe a consistent state.
type Session struct {
	id   string
	quiz domain.Quiz

	mu              sync.RWMutex
	index           int
	score           int
	attempts        []domain.AttemptRecord
	attemptCount    int
	timeRemaining   int
	answered        bool
	feedback        string
	finished        bool
	historySaved    *bool
	finishedEntry   *domain.HistoryEntry
	questionSeconds int
	now             func() time.Time
	subscribers     map[chan domain.SessionView]struct{}
}

func newSession(id string, quiz domain.Quiz, questionSeconds int) *Session {
	return newSessionWithClock(id, quiz, questionSeconds, time.Now)
}

func newSessionWithClock(id string, quiz domain.Quiz, questionSeconds int, now func() time.Time) *Session {
	if questionSeconds <= 0 {
		questionSeconds = DefaultQuestionSeconds
	}
	return &Session{
		id:              id,
		quiz:            quiz,
		timeRemaining:   questionSeconds,
		questionSeconds: questionSeconds,
		now:             now,
		subscribers:     make(map[chan domain.SessionView]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// View returns the current read-only snapshot.
func (s *Session) View() domain.SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// submit records one answer attempt against the current question.
// Submissions are ignored once the question is answered correctly; the
// already-correct guard is also what keeps the score increment idempotent.
func (s *Session) submit(raw string) (domain.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return s.snapshotLocked(), domain.ErrSessionFinished
	}
	if s.answered {
		return s.snapshotLocked(), nil
	}

	question := s.quiz.Questions[s.index]
	s.attemptCount++
	correct := normalizeAnswer(raw) == normalizeAnswer(question.CorrectAnswer)
	s.attempts = append(s.attempts, domain.AttemptRecord{
		Question:       question.Text,
		SelectedAnswer: raw,
		Correct:        correct,
		AttemptNumber:  s.attemptCount,
		QuestionIndex:  s.index,
	})
	if correct {
		s.answered = true
		s.score++
		s.feedback = feedbackCorrect
	} else {
		s.feedback = feedbackIncorrect
	}
	return s.broadcastLocked(), nil
}

// tick burns one second off the countdown. It is a no-op while the current
// question is already answered or the session is finished. Hitting zero
// logs a synthetic "No Answer" attempt when nothing was submitted for the
// question, then advances unconditionally.
func (s *Session) tick() (finishedNow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished || s.answered {
		return false
	}
	if s.timeRemaining > 0 {
		s.timeRemaining--
	}
	if s.timeRemaining > 0 {
		s.broadcastLocked()
		return false
	}

	if s.attemptCount == 0 {
		question := s.quiz.Questions[s.index]
		s.attempts = append(s.attempts, domain.AttemptRecord{
			Question:       question.Text,
			SelectedAnswer: domain.NoAnswerText,
			Correct:        false,
			AttemptNumber:  1,
			QuestionIndex:  s.index,
		})
	}
	finishedNow = s.advanceLocked()
	s.broadcastLocked()
	return finishedNow
}

// advance moves to the next question, or into the finished state when the
// current question was the last. Advancing a finished session is a no-op.
func (s *Session) advance() (domain.SessionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return s.snapshotLocked(), false
	}
	finishedNow := s.advanceLocked()
	return s.broadcastLocked(), finishedNow
}

// advanceLocked resets the per-question transient state (attempt counter,
// timer, feedback) and steps the index. The index lands on questionCount
// exactly when the session finishes; the history entry is materialized in
// the same transition so later mutations cannot leak into it.
func (s *Session) advanceLocked() bool {
	s.attemptCount = 0
	s.timeRemaining = s.questionSeconds
	s.feedback = ""
	s.answered = false

	if s.index+1 < len(s.quiz.Questions) {
		s.index++
		return false
	}
	s.index = len(s.quiz.Questions)
	s.finished = true
	entry := s.historyEntryLocked()
	s.finishedEntry = &entry
	return true
}

// restart resets the whole session to its initial state. It has no
// persistence side effect.
func (s *Session) restart() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = 0
	s.score = 0
	s.attempts = nil
	s.attemptCount = 0
	s.timeRemaining = s.questionSeconds
	s.answered = false
	s.feedback = ""
	s.finished = false
	s.historySaved = nil
	s.finishedEntry = nil
	return s.broadcastLocked()
}

// takeFinishedEntry hands out the summary built at the finishing transition,
// at most once per completion.
func (s *Session) takeFinishedEntry() (domain.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finishedEntry == nil {
		return domain.HistoryEntry{}, false
	}
	entry := *s.finishedEntry
	s.finishedEntry = nil
	return entry, true
}

// markHistorySaved folds the persistence outcome into the snapshot and
// notifies subscribers. Ignored if the session was restarted meanwhile.
func (s *Session) markHistorySaved(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finished {
		return
	}
	saved := ok
	s.historySaved = &saved
	s.broadcastLocked()
}

func (s *Session) subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionView {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the stale snapshot so a slow consumer never blocks ticks.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}

func (s *Session) snapshotLocked() domain.SessionView {
	attempts := make([]domain.AttemptRecord, len(s.attempts))
	copy(attempts, s.attempts)

	view := domain.SessionView{
		SessionID:      s.id,
		QuizID:         s.quiz.ID,
		Title:          s.quiz.Title,
		QuestionIndex:  s.index,
		TotalQuestions: len(s.quiz.Questions),
		TimeRemaining:  s.timeRemaining,
		AttemptCount:   s.attemptCount,
		Score:          s.score,
		Feedback:       s.feedback,
		Answered:       s.answered,
		Finished:       s.finished,
		Attempts:       attempts,
		HistorySaved:   s.historySaved,
	}
	if !s.finished {
		question := s.quiz.Questions[s.index]
		options := make([]string, len(question.Options))
		copy(options, question.Options)
		view.Question = &domain.QuestionView{
			Index:    s.index,
			Text:     question.Text,
			Options:  options,
			FreeText: question.FreeText(),
		}
	}
	return view
}

func (s *Session) historyEntryLocked() domain.HistoryEntry {
	attempts := make([]domain.AttemptRecord, len(s.attempts))
	copy(attempts, s.attempts)
	return domain.HistoryEntry{
		QuizID:         s.quiz.ID,
		Timestamp:      s.now().UTC(),
		Score:          s.score,
		TotalQuestions: len(s.quiz.Questions),
		Attempts:       attempts,
	}
}

// normalizeAnswer trims surrounding whitespace and case-folds, so judging
// is exact string equality after normalization. No partial matching.
func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
