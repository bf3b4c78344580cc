package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/event"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/postgres"
	"quiz-session-service/internal/infra/rabbitmq"
	infraredis "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/telemetry"
	transport "quiz-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, *port)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, portFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	bus := event.NewBus()

	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := telemetry.MonitorRedis(redisClient); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: ping: %w", err)
		}
	}

	var (
		loader memory.QuizLoader
		auth   app.Authenticator
	)
	if cfg.Postgres.URL != "" {
		if err := RunMigrations(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		loader = postgres.NewQuizLoader(pool)
		auth = postgres.NewTokenResolver(pool)
	} else {
		slog.WarnContext(ctx, "server: postgres not configured, serving the demo quiz", "quiz", demoQuizID, "owner", demoOwnerID)
		loader = memory.NewStaticQuizLoader(map[string]domain.Quiz{demoQuizID: demoQuiz()})
		auth = memory.NewTokenTable(cfg.Auth.Tokens)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo app.QuizRepository
		store    app.SessionRepository
	)
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		sessions := infraredis.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
		bus.Subscribe(domain.EventNameSessionEnded, sessions.HandleEvent)
		store = sessions
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		store = memory.NewSessionStore()
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		return err
	}
	defer publisher.Close()
	// drain in-flight handlers before the publisher and clients close
	defer bus.Stop()
	publisher.SubscribeTo(bus,
		domain.EventNameSessionStarted,
		domain.EventNameSessionStateChanged,
		domain.EventNameSessionEnded,
		domain.EventNamePlayerJoined,
	)

	limits := app.DefaultLimits()
	limits.MaxActiveSessions = config.IntOr(cfg.Session.MaxActive, limits.MaxActiveSessions)
	limits.MaxAutoStart = config.IntOr(cfg.Session.MaxAutoStart, limits.MaxAutoStart)
	limits.Countdown = config.TTLDuration(cfg.Session.Countdown, limits.Countdown)

	service := app.NewQuizService(store, quizRepo, auth,
		app.WithEventBus(bus),
		app.WithLimits(limits),
	)
	defer service.Reset(context.Background())

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, transport.RouterConfig{CORSOrigins: cfg.Server.CORSOrigins}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.InfoContext(ctx, "server: HTTP listening", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.InfoContext(ctx, "server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
		return err
	}
	slog.InfoContext(ctx, "server: shutdown completed")
	return nil
}
