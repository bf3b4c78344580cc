package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/event"
)

// SessionConfig describes a session at creation time.
type SessionConfig struct {
	ID           string
	QuizID       string
	Snapshot     domain.Snapshot
	AutoStartNum int
	Countdown    time.Duration
	Clock        Clock
	// Publish receives session events. It is never called with the session lock held.
	Publish func(ctx context.Context, e event.Event)
}

// Session is one live playthrough of a quiz snapshot. Every mutation of its
// state, players, submissions and pending timer happens under mu, so host
// actions, player actions and timer fires for one session are totally ordered.
type Session struct {
	id           string
	quizID       string
	snapshot     domain.Snapshot
	autoStartNum int
	countdown    time.Duration
	clock        Clock
	publish      func(ctx context.Context, e event.Event)
	createdAt    time.Time

	mu           sync.RWMutex
	state        domain.State
	atQuestion   int
	reached      int // highest question position entered
	timer        Timer
	timerSeq     uint64
	openedAt     map[int]time.Time
	players      []domain.Player
	playerIndex  map[string]int
	names        map[string]struct{}
	submissions  map[int]map[string]domain.Submission
	messages     []domain.Message
	subscribers  map[chan domain.PlayerStatus]struct{}
}

// NewSession creates a session in LOBBY.
func NewSession(c SessionConfig) *Session {
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	if c.Countdown <= 0 {
		c.Countdown = DefaultCountdown
	}
	return &Session{
		id:           c.ID,
		quizID:       c.QuizID,
		snapshot:     c.Snapshot,
		autoStartNum: c.AutoStartNum,
		countdown:    c.Countdown,
		clock:        c.Clock,
		publish:      c.Publish,
		createdAt:    c.Clock.Now(),
		state:        domain.StateLobby,
		openedAt:     make(map[int]time.Time),
		playerIndex:  make(map[string]int),
		names:        make(map[string]struct{}),
		submissions:  make(map[int]map[string]domain.Submission),
		subscribers:  make(map[chan domain.PlayerStatus]struct{}),
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) QuizID() string            { return s.quizID }
func (s *Session) Snapshot() domain.Snapshot { return s.snapshot }
func (s *Session) CreatedAt() time.Time      { return s.createdAt }

// State returns the current state and question position.
func (s *Session) State() (domain.State, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.atQuestion
}

// Active reports whether the session has not reached END.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != domain.StateEnd
}

// HasPendingTimer reports whether an auto-transition is scheduled.
func (s *Session) HasPendingTimer() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timer != nil
}

// Stop cancels any pending timer without changing state. Used when the store is cleared.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimerLocked()
}

// PlayerStatus is the player-facing view of the session.
func (s *Session) PlayerStatus() domain.PlayerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerStatusLocked()
}

func (s *Session) playerStatusLocked() domain.PlayerStatus {
	return domain.PlayerStatus{
		State:        s.state,
		NumQuestions: s.snapshot.NumQuestions(),
		AtQuestion:   s.atQuestion,
	}
}

// Status is the host-facing view of the session. Player names are sorted.
func (s *Session) Status() domain.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.players))
	for _, p := range s.players {
		names = append(names, p.Name)
	}
	sort.Strings(names)

	return domain.SessionStatus{
		SessionID:  s.id,
		QuizID:     s.quizID,
		State:      s.state,
		AtQuestion: s.atQuestion,
		Players:    names,
		Metadata:   s.snapshot,
	}
}

// Players returns the players in join order.
func (s *Session) Players() []domain.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Player(nil), s.players...)
}

// subscribe returns a channel receiving the player status after every transition.
func (s *Session) subscribe() (<-chan domain.PlayerStatus, func()) {
	ch := make(chan domain.PlayerStatus, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.playerStatusLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	status := s.playerStatusLocked()
	for ch := range s.subscribers {
		select {
		case ch <- status:
		default:
			// slow consumer: drop its oldest update so the latest state always lands
			select {
			case <-ch:
			default:
			}
			ch <- status
		}
	}
}

func (s *Session) emit(ctx context.Context, events []event.Event) {
	if s.publish == nil {
		return
	}
	for _, e := range events {
		s.publish(ctx, e)
	}
}
