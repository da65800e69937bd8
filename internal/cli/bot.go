package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"solo-quiz-service/internal/config"
	"solo-quiz-service/internal/transport/telegram"
)

// NewBotCmd starts the Telegram frontend.
func NewBotCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Start the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Telegram.Token == "" {
				return fmt.Errorf("telegram token not configured")
			}

			service, cleanup, err := buildQuizService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			bot, err := telegram.NewBot(cfg.Telegram.Token, service, defaultQuizID(cfg))
			if err != nil {
				return err
			}

			go bot.Start()
			log.Println("telegram bot started")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-stop:
			case <-cmd.Context().Done():
			}
			log.Println("stopping telegram bot...")
			bot.Stop()
			return nil
		},
	}
}
