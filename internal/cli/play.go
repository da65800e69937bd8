package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/config"
	"solo-quiz-service/internal/domain"
)

// NewPlayCmd runs a quiz in the terminal against the same engine the server
// uses, including the countdown and history persistence.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play [quiz-id]",
		Short: "Play a quiz in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			quizID := defaultQuizID(cfg)
			if len(args) > 0 {
				quizID = args[0]
			}
			service, cleanup, err := buildQuizService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return runPlay(cmd.Context(), service, quizID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runPlay(ctx context.Context, service *app.QuizService, quizID string, in io.Reader, out io.Writer) error {
	view, err := service.StartSession(ctx, quizID)
	if err != nil {
		return err
	}
	sessionID := view.SessionID
	defer service.CloseSession(sessionID)

	title := view.Title
	if title == "" {
		title = view.QuizID
	}
	fmt.Fprintf(out, "%s, %d questions. Answer with the option letter or type the answer, /skip moves on.\n",
		title, view.TotalQuestions)

	reader := bufio.NewReader(in)
	shown := -1
	for {
		view, err = service.State(ctx, sessionID)
		if err != nil {
			return err
		}

		if view.Finished {
			printSummary(ctx, out, service, sessionID, view)
			again, err := askYesNo(reader, out, "Play again? [y/N] ")
			if err != nil || !again {
				return nil
			}
			if _, err := service.Restart(ctx, sessionID); err != nil {
				return err
			}
			shown = -1
			continue
		}

		if view.Answered {
			if _, err := service.Advance(ctx, sessionID); err != nil {
				return err
			}
			continue
		}

		if view.QuestionIndex != shown {
			printQuestion(out, view)
			shown = view.QuestionIndex
		}

		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "/skip" {
			if _, err := service.Advance(ctx, sessionID); err != nil {
				return err
			}
			continue
		}

		// The countdown may have moved the quiz on while the prompt was open.
		current, err := service.State(ctx, sessionID)
		if err != nil {
			return err
		}
		if current.Finished || current.QuestionIndex != view.QuestionIndex {
			fmt.Fprintln(out, "Time ran out, moving on.")
			continue
		}

		next, err := service.SubmitAnswer(ctx, sessionID, resolveAnswer(input, view))
		if errors.Is(err, domain.ErrSessionFinished) {
			continue
		}
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if next.Feedback != "" {
			fmt.Fprintln(out, next.Feedback)
		}
	}
}

func printQuestion(out io.Writer, view domain.SessionView) {
	fmt.Fprintf(out, "\nQuestion %d of %d (%ds on the clock)\n%s\n",
		view.QuestionIndex+1, view.TotalQuestions, view.TimeRemaining, view.Question.Text)
	for i, option := range view.Question.Options {
		fmt.Fprintf(out, "  %c. %s\n", 'A'+i, option)
	}
	if view.Question.FreeText {
		fmt.Fprintln(out, "  (type your answer)")
	}
}

func printSummary(ctx context.Context, out io.Writer, service *app.QuizService, sessionID string, view domain.SessionView) {
	title := view.Title
	if title == "" {
		title = view.QuizID
	}
	fmt.Fprintf(out, "\n%s complete! Score: %d of %d\n", title, view.Score, view.TotalQuestions)
	for _, attempt := range view.Attempts {
		mark := "x"
		if attempt.Correct {
			mark = "ok"
		}
		fmt.Fprintf(out, "  Q%d attempt %d [%s] %s\n",
			attempt.QuestionIndex+1, attempt.AttemptNumber, mark, attempt.SelectedAnswer)
	}
	if saved := waitForSave(ctx, service, sessionID); saved != nil {
		if *saved {
			fmt.Fprintln(out, "Result saved to history.")
		} else {
			fmt.Fprintln(out, "Result could not be saved.")
		}
	}
}

// resolveAnswer maps a single option letter to its text; anything else is
// submitted as typed.
func resolveAnswer(input string, view domain.SessionView) string {
	if view.Question == nil || len(view.Question.Options) == 0 {
		return input
	}
	if len(input) != 1 {
		return input
	}
	idx := int(strings.ToUpper(input)[0] - 'A')
	if idx >= 0 && idx < len(view.Question.Options) {
		return view.Question.Options[idx]
	}
	return input
}

func askYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// waitForSave gives the background history write a moment to settle so the
// summary can report the outcome.
func waitForSave(ctx context.Context, service *app.QuizService, sessionID string) *bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, err := service.State(ctx, sessionID)
		if err != nil {
			return nil
		}
		if view.HistorySaved != nil {
			return view.HistorySaved
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}
