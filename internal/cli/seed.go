package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/postgres"
)

const (
	demoOwnerID = "demo-owner"
	demoQuizID  = "quiz-1"
)

// NewSeedCmd stores the demo quiz and the configured tokens in Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo quiz and auth.tokens into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return seed(cmd.Context(), cfg)
		},
	}
}

func seed(ctx context.Context, cfg config.Config) error {
	if err := RunMigrations(ctx, cfg.Postgres.URL); err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.NewQuizLoader(pool).SaveQuiz(ctx, demoQuiz()); err != nil {
		return err
	}
	tokens := postgres.NewTokenResolver(pool)
	for token, userID := range cfg.Auth.Tokens {
		if err := tokens.IssueToken(ctx, token, userID, 0); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "seed: done", "quiz", demoQuizID, "tokens", len(cfg.Auth.Tokens))
	return nil
}

// demoQuiz is served when no database is configured and written by the seed command.
func demoQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          demoQuizID,
		OwnerID:     demoOwnerID,
		Name:        "Warm-up",
		Description: "Two quick questions",
		Version:     1,
		Questions: []domain.Question{
			{
				ID:       "q1",
				Prompt:   "What is 2 + 2?",
				Duration: 15,
				Points:   5,
				Answers: []domain.Answer{
					{ID: "q1-a", Text: "3", Colour: "red"},
					{ID: "q1-b", Text: "4", Colour: "green", Correct: true},
					{ID: "q1-c", Text: "5", Colour: "blue"},
				},
			},
			{
				ID:       "q2",
				Prompt:   "Which of these are prime?",
				Duration: 20,
				Points:   10,
				Answers: []domain.Answer{
					{ID: "q2-a", Text: "2", Colour: "red", Correct: true},
					{ID: "q2-b", Text: "9", Colour: "green"},
					{ID: "q2-c", Text: "13", Colour: "blue", Correct: true},
				},
			},
		},
	}
}
