package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/domain"
)

// Bot plays quizzes over Telegram: one active session per chat, options as
// inline buttons, free-text questions answered by typing. The question card
// is a single message edited in place, so each countdown tick updates the
// visible timer.
type Bot struct {
	bot           *tele.Bot
	service       *app.QuizService
	defaultQuizID string

	mu    sync.Mutex
	chats map[int64]*chatSession
}

type chatSession struct {
	sessionID string
	chat      *tele.Chat
	message   *tele.Message
	cancel    func()
}

func NewBot(token string, service *app.QuizService, defaultQuizID string) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	bot := &Bot{
		bot:           b,
		service:       service,
		defaultQuizID: defaultQuizID,
		chats:         make(map[int64]*chatSession),
	}
	bot.route()
	return bot, nil
}

// Start begins long polling and blocks until Stop is called.
func (b *Bot) Start() {
	b.bot.Start()
}

// Stop shuts down polling and closes every open session.
func (b *Bot) Stop() {
	b.mu.Lock()
	for chatID, cs := range b.chats {
		cs.cancel()
		b.service.CloseSession(cs.sessionID)
		delete(b.chats, chatID)
	}
	b.mu.Unlock()
	b.bot.Stop()
}

var (
	btnAnswer  = tele.Btn{Unique: "quiz_answer"}
	btnSkip    = tele.Btn{Unique: "quiz_skip"}
	btnRestart = tele.Btn{Unique: "quiz_restart"}
)

func (b *Bot) route() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/play", b.handlePlay)
	b.bot.Handle("/history", b.handleHistory)
	b.bot.Handle(&btnAnswer, b.handleAnswerButton)
	b.bot.Handle(&btnSkip, b.handleSkip)
	b.bot.Handle(&btnRestart, b.handleRestart)
	b.bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send("Welcome! Send /play to start the quiz. " +
		"Pick answers with the buttons, or just type when a question asks for text. " +
		"Wrong answers can be retried until the 30 second timer runs out. /history shows past results.")
}

func (b *Bot) handlePlay(c tele.Context) error {
	if err := b.openSession(c.Chat()); err != nil {
		return c.Send("Could not start the quiz: " + err.Error())
	}
	return nil
}

func (b *Bot) handleHistory(c tele.Context) error {
	entries, err := b.service.RecentHistory(context.Background(), 5)
	if err != nil {
		return c.Send("Could not load history: " + err.Error())
	}
	if len(entries) == 0 {
		return c.Send("No finished quizzes yet.")
	}

	var sb strings.Builder
	sb.WriteString("Recent results:\n")
	for _, entry := range entries {
		fmt.Fprintf(&sb, "%s  %d/%d\n",
			entry.Timestamp.Local().Format("2006-01-02 15:04"),
			entry.Score, entry.TotalQuestions)
	}
	return c.Send(sb.String())
}

func (b *Bot) handleAnswerButton(c tele.Context) error {
	cs := b.session(c.Chat().ID)
	if cs == nil {
		return c.Respond(&tele.CallbackResponse{Text: "No quiz running, send /play."})
	}
	if _, err := b.service.SubmitAnswer(context.Background(), cs.sessionID, c.Data()); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error()})
	}
	return c.Respond()
}

func (b *Bot) handleSkip(c tele.Context) error {
	cs := b.session(c.Chat().ID)
	if cs == nil {
		return c.Respond(&tele.CallbackResponse{Text: "No quiz running, send /play."})
	}
	if _, err := b.service.Advance(context.Background(), cs.sessionID); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error()})
	}
	return c.Respond()
}

func (b *Bot) handleRestart(c tele.Context) error {
	cs := b.session(c.Chat().ID)
	if cs == nil {
		return c.Respond(&tele.CallbackResponse{Text: "No quiz running, send /play."})
	}
	if _, err := b.service.Restart(context.Background(), cs.sessionID); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error()})
	}
	return c.Respond()
}

// handleText treats plain messages as answers while a quiz is open.
func (b *Bot) handleText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if text == "" || strings.HasPrefix(text, "/") {
		return nil
	}
	cs := b.session(c.Chat().ID)
	if cs == nil {
		return c.Send("Send /play to start the quiz.")
	}
	if _, err := b.service.SubmitAnswer(context.Background(), cs.sessionID, text); err != nil {
		if err == domain.ErrSessionFinished {
			return c.Send("The quiz is over. Hit the restart button or send /play.")
		}
		return c.Send("Could not submit that answer: " + err.Error())
	}
	return nil
}

// openSession replaces any running session for the chat with a fresh one
// and begins rendering its snapshots.
func (b *Bot) openSession(chat *tele.Chat) error {
	view, err := b.service.StartSession(context.Background(), b.defaultQuizID)
	if err != nil {
		return err
	}
	updates, cancel, err := b.service.Subscribe(context.Background(), view.SessionID)
	if err != nil {
		b.service.CloseSession(view.SessionID)
		return err
	}

	cs := &chatSession{sessionID: view.SessionID, chat: chat, cancel: cancel}

	b.mu.Lock()
	if old, ok := b.chats[chat.ID]; ok {
		old.cancel()
		b.service.CloseSession(old.sessionID)
	}
	b.chats[chat.ID] = cs
	b.mu.Unlock()

	go b.renderLoop(cs, updates)
	return nil
}

func (b *Bot) session(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chats[chatID]
}

// renderLoop redraws the chat's question card for every snapshot, countdown
// ticks included.
func (b *Bot) renderLoop(cs *chatSession, updates <-chan domain.SessionView) {
	for view := range updates {
		text := renderView(view)
		markup := b.renderMarkup(view)

		if cs.message == nil {
			msg, err := b.bot.Send(cs.chat, text, markup)
			if err != nil {
				log.Printf("telegram send failed for chat %d: %v", cs.chat.ID, err)
				continue
			}
			cs.message = msg
			continue
		}
		if _, err := b.bot.Edit(cs.message, text, markup); err != nil {
			if !strings.Contains(err.Error(), "message is not modified") {
				log.Printf("telegram edit failed for chat %d: %v", cs.chat.ID, err)
			}
		}
	}
}

func renderView(view domain.SessionView) string {
	var sb strings.Builder
	title := view.Title
	if title == "" {
		title = "Quiz"
	}

	if view.Finished {
		fmt.Fprintf(&sb, "%s complete!\nScore: %d of %d\n\n", title, view.Score, view.TotalQuestions)
		for _, attempt := range finalAttempts(view.Attempts) {
			mark := "x"
			if attempt.Correct {
				mark = "ok"
			}
			fmt.Fprintf(&sb, "%d. [%s] %s - %s\n", attempt.QuestionIndex+1, mark, attempt.Question, attempt.SelectedAnswer)
		}
		if view.HistorySaved != nil {
			if *view.HistorySaved {
				sb.WriteString("\nResult saved to history.")
			} else {
				sb.WriteString("\nResult could not be saved.")
			}
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "%s\nQuestion %d of %d | Time left: %ds | Score: %d\n\n",
		title, view.QuestionIndex+1, view.TotalQuestions, view.TimeRemaining, view.Score)
	if view.Question != nil {
		sb.WriteString(view.Question.Text)
		if view.Question.FreeText && !view.Answered {
			sb.WriteString("\n\n(type your answer)")
		}
	}
	if view.Feedback != "" {
		fmt.Fprintf(&sb, "\n\n%s", view.Feedback)
	}
	if view.AttemptCount > 1 {
		fmt.Fprintf(&sb, " (attempt %d)", view.AttemptCount)
	}
	return sb.String()
}

// finalAttempts reduces the attempt log to the last attempt per question,
// which is what the results card shows.
func finalAttempts(attempts []domain.AttemptRecord) []domain.AttemptRecord {
	byQuestion := make(map[int]domain.AttemptRecord, len(attempts))
	order := make([]int, 0, len(attempts))
	for _, attempt := range attempts {
		if _, seen := byQuestion[attempt.QuestionIndex]; !seen {
			order = append(order, attempt.QuestionIndex)
		}
		byQuestion[attempt.QuestionIndex] = attempt
	}
	out := make([]domain.AttemptRecord, 0, len(order))
	for _, index := range order {
		out = append(out, byQuestion[index])
	}
	return out
}

func (b *Bot) renderMarkup(view domain.SessionView) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	if view.Finished {
		markup.Inline(markup.Row(markup.Data("Play again", btnRestart.Unique)))
		return markup
	}

	var rows []tele.Row
	if view.Question != nil && !view.Answered {
		for _, option := range view.Question.Options {
			rows = append(rows, markup.Row(markup.Data(option, btnAnswer.Unique, option)))
		}
	}
	next := "Skip"
	if view.Answered {
		next = "Next"
	}
	rows = append(rows, markup.Row(
		markup.Data(next, btnSkip.Unique),
		markup.Data("Restart", btnRestart.Unique),
	))
	markup.Inline(rows...)
	return markup
}
