package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func newSession(id string) *app.Session {
	quiz := domain.Quiz{ID: "quiz-1", Questions: []domain.Question{{ID: "q1", Duration: 60}}}
	return app.NewSession(app.SessionConfig{
		ID:       id,
		QuizID:   quiz.ID,
		Snapshot: domain.NewSnapshot(quiz, time.Now()),
	})
}

func TestSessionStoreMirrorsDirectory(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	store := NewSessionStore(newClient(mr), time.Minute)

	require.NoError(t, store.Insert(ctx, newSession("s-1"), 10))
	require.NoError(t, store.Insert(ctx, newSession("s-2"), 10))

	assert.True(t, mr.Exists("quiz:session:s-1"))
	assert.Equal(t, time.Minute, mr.TTL("quiz:session:s-1"))
	ids, err := store.ActiveIDs(ctx, "quiz-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s-1", "s-2"}, ids)

	require.NoError(t, store.HandleEvent(ctx, domain.EventSessionEnded{SessionID: "s-1", QuizID: "quiz-1"}))
	assert.False(t, mr.Exists("quiz:session:s-1"))
	inactive, err := mr.SMembers("quiz:quiz-1:sessions:inactive")
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, inactive)

	store.Reset(ctx)
	assert.False(t, mr.Exists("quiz:quiz-1:sessions:active"))
	assert.False(t, mr.Exists("quiz:quiz-1:sessions:inactive"))
	assert.False(t, mr.Exists("quiz:session:s-2"))
	_, ok := store.Get(ctx, "s-2")
	assert.False(t, ok)
}

func TestSessionStoreEnforcesLimitLocally(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	store := NewSessionStore(newClient(mr), time.Minute)

	require.NoError(t, store.Insert(ctx, newSession("s-1"), 1))
	err := store.Insert(ctx, newSession("s-2"), 1)
	assert.ErrorIs(t, err, domain.ErrTooManySessions)

	ids, err := store.ActiveIDs(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ids)
}

func TestSessionStoreIgnoresOtherEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewSessionStore(newClient(mr), time.Minute)
	assert.NoError(t, store.HandleEvent(context.Background(), domain.EventSessionStarted{SessionID: "s-1"}))
}
