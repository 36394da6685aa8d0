package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classquiz-service/internal/app"
	"classquiz-service/internal/config"
	"classquiz-service/internal/infra/bunstore"
	"classquiz-service/internal/infra/memory"
	redisinfra "classquiz-service/internal/infra/redis"
	"classquiz-service/internal/report"
	transport "classquiz-service/internal/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	publicURL := cfg.Server.PublicURL
	if publicURL == "" {
		publicURL = "http://localhost:" + finalPort
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	// Schema and seed data land on first startup.
	if err := runMigrations(ctx, db); err != nil {
		return err
	}
	store := bunstore.NewStore(db)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var questions app.QuestionSource
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, store, cacheTTL)
	} else {
		questions = memory.NewQuestionCache(store, cacheTTL)
	}

	quizDuration := config.TTLDuration(cfg.Quiz.Duration, 5*time.Minute)
	sessions := app.NewSessionService(store)
	runner := app.NewRunner(store, questions, store, quizDuration)
	runs := app.NewRunRegistry(runner)
	runs.StartSweeper(ctx, config.TTLDuration(cfg.Quiz.SweepInterval, 30*time.Second))
	aggregator := app.NewAggregator(store, store)

	apiKey := cfg.Report.APIKey
	if env := os.Getenv("OPENAI_API_KEY"); env != "" {
		apiKey = env
	}
	reporter := report.NewReporter(report.NewClient(cfg.Report.BaseURL, apiKey, cfg.Report.Model))

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = "change-me"
	}
	authn := app.NewAuthenticator(store, secret, config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour))

	handler := transport.NewHandler(sessions, runner, runs, aggregator, reporter, authn, publicURL)
	wsHandler := transport.NewWSHandler(aggregator, authn, 5*time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("GET /ws/sessions/{id}", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session service on :%s", finalPort)
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
