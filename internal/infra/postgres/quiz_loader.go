package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// QuizLoader loads quizzes from Postgres. Ownership, version and trash flag
// live in columns; the editable content is a JSONB document.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

// quizDocument is the JSONB payload of a quiz row.
type quizDocument struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Questions   []domain.Question `json:"questions"`
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz := domain.Quiz{ID: quizID}
	var raw []byte
	err := l.pool.QueryRow(ctx,
		`SELECT owner_id, version, trashed, data FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.OwnerID, &quiz.Version, &quiz.Trashed, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound.Withf("%s", quizID)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	var doc quizDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.Name = doc.Name
	quiz.Description = doc.Description
	quiz.Questions = doc.Questions
	return quiz, nil
}

// SaveQuiz inserts or replaces a quiz row. Used for seeding.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	raw, err := json.Marshal(quizDocument{
		Name:        quiz.Name,
		Description: quiz.Description,
		Questions:   quiz.Questions,
	})
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO quizzes (id, owner_id, version, trashed, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    version = EXCLUDED.version,
		    trashed = EXCLUDED.trashed,
		    data = EXCLUDED.data,
		    updated_at = now()`,
		quiz.ID, quiz.OwnerID, quiz.Version, quiz.Trashed, raw,
	)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}
