package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/event"
	"quiz-session-service/internal/infra/memory"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Live sessions (their timers and subscribers) stay in a local in-memory
//     directory; a session cannot be resumed on another instance.
//   - Redis mirrors the session directory so other instances and operators can
//     see which sessions of a quiz are active or ended:
//     quiz:{quizID}:sessions:active, quiz:{quizID}:sessions:inactive (sets)
//     and quiz:session:{sessionID} (liveness marker with TTL).
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	local  *memory.SessionStore

	mu      sync.Mutex
	quizIDs map[string]struct{}
}

func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:  client,
		ttl:     ttl,
		local:   memory.NewSessionStore(),
		quizIDs: make(map[string]struct{}),
	}
}

func (s *SessionStore) Insert(ctx context.Context, session *app.Session, maxActive int) error {
	if err := s.local.Insert(ctx, session, maxActive); err != nil {
		return err
	}

	s.mu.Lock()
	s.quizIDs[session.QuizID()] = struct{}{}
	s.mu.Unlock()

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, activeKey(session.QuizID()), session.ID())
	pipe.Set(ctx, sessionKey(session.ID()), session.QuizID(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		// best effort: the local directory stays authoritative
		slog.WarnContext(ctx, "redis: mirror session failed", "session", session.ID(), "error", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*app.Session, bool) {
	return s.local.Get(ctx, sessionID)
}

func (s *SessionStore) ListByQuiz(ctx context.Context, quizID string) []*app.Session {
	return s.local.ListByQuiz(ctx, quizID)
}

func (s *SessionStore) BindPlayer(ctx context.Context, playerID string, session *app.Session) {
	s.local.BindPlayer(ctx, playerID, session)
}

func (s *SessionStore) PlayerSession(ctx context.Context, playerID string) (*app.Session, bool) {
	return s.local.PlayerSession(ctx, playerID)
}

// HandleEvent moves ended sessions to the inactive set. Subscribe it to session.ended.
func (s *SessionStore) HandleEvent(ctx context.Context, e event.Event) error {
	ended, ok := e.(domain.EventSessionEnded)
	if !ok {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.SMove(ctx, activeKey(ended.QuizID), inactiveKey(ended.QuizID), ended.SessionID)
	pipe.Del(ctx, sessionKey(ended.SessionID))
	_, err := pipe.Exec(ctx)
	return err
}

// ActiveIDs reads the mirrored active set of a quiz.
func (s *SessionStore) ActiveIDs(ctx context.Context, quizID string) ([]string, error) {
	return s.client.SMembers(ctx, activeKey(quizID)).Result()
}

func (s *SessionStore) Reset(ctx context.Context) {
	s.local.Reset(ctx)

	s.mu.Lock()
	quizIDs := s.quizIDs
	s.quizIDs = make(map[string]struct{})
	s.mu.Unlock()

	for quizID := range quizIDs {
		members, _ := s.client.SUnion(ctx, activeKey(quizID), inactiveKey(quizID)).Result()
		keys := []string{activeKey(quizID), inactiveKey(quizID)}
		for _, id := range members {
			keys = append(keys, sessionKey(id))
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			slog.WarnContext(ctx, "redis: clear session keys failed", "quiz", quizID, "error", err)
		}
	}
}

func activeKey(quizID string) string {
	return "quiz:" + quizID + ":sessions:active"
}

func inactiveKey(quizID string) string {
	return "quiz:" + quizID + ":sessions:inactive"
}

func sessionKey(sessionID string) string {
	return "quiz:session:" + sessionID
}
