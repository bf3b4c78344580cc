package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func newSession(id, quizID string) *app.Session {
	quiz := domain.Quiz{ID: quizID, Questions: []domain.Question{{ID: "q1", Duration: 60}}}
	return app.NewSession(app.SessionConfig{
		ID:       id,
		QuizID:   quizID,
		Snapshot: domain.NewSnapshot(quiz, time.Now()),
	})
}

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	s1 := newSession("s-1", "quiz-1")
	require.NoError(t, store.Insert(ctx, s1, 10))

	got, ok := store.Get(ctx, "s-1")
	require.True(t, ok)
	assert.Same(t, s1, got)

	store.BindPlayer(ctx, "p-1", s1)
	got, ok = store.PlayerSession(ctx, "p-1")
	require.True(t, ok)
	assert.Same(t, s1, got)

	assert.Len(t, store.ListByQuiz(ctx, "quiz-1"), 1)
	assert.Empty(t, store.ListByQuiz(ctx, "quiz-2"))

	store.Reset(ctx)
	_, ok = store.Get(ctx, "s-1")
	assert.False(t, ok)
	_, ok = store.PlayerSession(ctx, "p-1")
	assert.False(t, ok)
}

func TestSessionStoreActiveLimit(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	first := newSession("s-1", "quiz-1")
	require.NoError(t, store.Insert(ctx, first, 2))
	require.NoError(t, store.Insert(ctx, newSession("s-2", "quiz-1"), 2))

	err := store.Insert(ctx, newSession("s-3", "quiz-1"), 2)
	assert.True(t, errors.Is(err, domain.ErrTooManySessions), "got %v", err)

	// other quizzes have their own budget
	require.NoError(t, store.Insert(ctx, newSession("s-4", "quiz-2"), 2))

	require.NoError(t, first.Apply(ctx, domain.ActionEnd))
	require.NoError(t, store.Insert(ctx, newSession("s-3", "quiz-1"), 2))
	assert.Len(t, store.ListByQuiz(ctx, "quiz-1"), 3)
}
