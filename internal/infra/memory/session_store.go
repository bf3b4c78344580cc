package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions are kept after they end so their results stay queryable.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	byQuiz   map[string][]*app.Session
	players  map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	s := &SessionStore{}
	s.init()
	return s
}

func (s *SessionStore) init() {
	s.sessions = make(map[string]*app.Session)
	s.byQuiz = make(map[string][]*app.Session)
	s.players = make(map[string]*app.Session)
}

func (s *SessionStore) Insert(_ context.Context, session *app.Session, maxActive int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, existing := range s.byQuiz[session.QuizID()] {
		if existing.Active() {
			active++
		}
	}
	if maxActive > 0 && active >= maxActive {
		return domain.ErrTooManySessions.Withf("%d active", active)
	}

	s.sessions[session.ID()] = session
	s.byQuiz[session.QuizID()] = append(s.byQuiz[session.QuizID()], session)
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) ListByQuiz(_ context.Context, quizID string) []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*app.Session(nil), s.byQuiz[quizID]...)
}

func (s *SessionStore) BindPlayer(_ context.Context, playerID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[playerID] = session
}

func (s *SessionStore) PlayerSession(_ context.Context, playerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.players[playerID]
	return session, ok
}

func (s *SessionStore) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		session.Stop()
	}
	s.init()
}
