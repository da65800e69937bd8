package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"solo-quiz-service/internal/app"
	"solo-quiz-service/internal/config"
	"solo-quiz-service/internal/infra/memory"
	mongostore "solo-quiz-service/internal/infra/mongo"
	pgstore "solo-quiz-service/internal/infra/postgres"
	redisstore "solo-quiz-service/internal/infra/redis"
	sqlitestore "solo-quiz-service/internal/infra/sqlite"
	transport "solo-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, cleanup, err := buildQuizService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	wsHandler := transport.NewWSHandler(service, defaultQuizID(cfg))
	restHandler := transport.NewRESTHandler(service)

	router := mux.NewRouter()
	restHandler.Register(router)
	router.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func defaultQuizID(cfg config.Config) string {
	if cfg.Quiz.Default != "" {
		return cfg.Quiz.Default
	}
	return memory.DefaultQuizID
}

// buildQuizService wires stores and caches from config. The returned cleanup
// closes whatever connections were opened, in reverse order.
func buildQuizService(ctx context.Context, cfg config.Config) (*app.QuizService, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, pool.Close)
	}

	loader, err := buildQuizLoader(cfg, pool)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	history, err := buildHistoryStore(ctx, cfg, pool, &cleanups)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	service := app.NewQuizService(store, quizRepo, history)
	if cfg.Quiz.QuestionSeconds > 0 {
		service.WithQuestionSeconds(cfg.Quiz.QuestionSeconds)
	}
	return service, cleanup, nil
}

// buildQuizLoader merges the built-in catalog with an optional catalog file.
// With Postgres configured, DB rows win and the catalog serves the rest.
func buildQuizLoader(cfg config.Config, pool *pgxpool.Pool) (memory.QuizLoader, error) {
	catalog := memory.DefaultCatalog()
	if cfg.Quiz.File != "" {
		extra, err := memory.LoadCatalogFile(cfg.Quiz.File)
		if err != nil {
			return nil, err
		}
		for id, quiz := range extra {
			catalog[id] = quiz
		}
	}
	static := memory.NewStaticQuizLoader(catalog)
	if pool == nil {
		return static, nil
	}
	return memory.NewFallbackLoader(pgstore.NewQuizLoader(pool), static), nil
}

// buildHistoryStore picks the first configured backend: Postgres, then Mongo,
// then the local SQLite file.
func buildHistoryStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, cleanups *[]func()) (app.HistoryStore, error) {
	if pool != nil {
		return pgstore.NewHistoryStore(pool), nil
	}

	if cfg.Mongo.URI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		*cleanups = append(*cleanups, func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		})
		database := cfg.Mongo.Database
		if database == "" {
			database = "soloquiz"
		}
		return mongostore.NewHistoryStore(client, database), nil
	}

	path := cfg.SQLite.Path
	if path == "" {
		path = "history.db"
	}
	return sqlitestore.Open(path)
}
