package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/event"
	"quiz-session-service/internal/telemetry"
)

// SessionRepository is the session directory: every session of every quiz,
// plus the player -> session binding.
type SessionRepository interface {
	// Insert adds s unless its quiz already has maxActive sessions that have not ended.
	Insert(ctx context.Context, s *Session, maxActive int) error
	Get(ctx context.Context, sessionID string) (*Session, bool)
	ListByQuiz(ctx context.Context, quizID string) []*Session
	BindPlayer(ctx context.Context, playerID string, s *Session)
	PlayerSession(ctx context.Context, playerID string) (*Session, bool)
	// Reset stops every pending timer and forgets all sessions.
	Reset(ctx context.Context)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Authenticator resolves a session token to the calling user id.
type Authenticator interface {
	ResolveCaller(ctx context.Context, token string) (string, error)
}

// Limits bounds what a quiz owner may start.
type Limits struct {
	MaxActiveSessions int
	MaxAutoStart      int
	Countdown         time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MaxActiveSessions: 10,
		MaxAutoStart:      50,
		Countdown:         DefaultCountdown,
	}
}

type Option func(*QuizService)

func WithClock(c Clock) Option {
	return func(s *QuizService) { s.clock = c }
}

func WithEventBus(b *event.Bus) Option {
	return func(s *QuizService) { s.bus = b }
}

func WithLimits(l Limits) Option {
	return func(s *QuizService) { s.limits = l }
}

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	auth     Authenticator
	clock    Clock
	bus      *event.Bus
	limits   Limits
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, auth Authenticator, opts ...Option) *QuizService {
	s := &QuizService{
		sessions: store,
		quizzes:  quizzes,
		auth:     auth,
		clock:    SystemClock(),
		limits:   DefaultLimits(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession snapshots the quiz and opens a new session in LOBBY.
func (s *QuizService) StartSession(ctx context.Context, token, quizID string, autoStartNum int) (string, error) {
	quiz, err := s.authorizeOwner(ctx, token, quizID)
	if err != nil {
		return "", err
	}
	if autoStartNum < 0 || autoStartNum > s.limits.MaxAutoStart {
		return "", domain.ErrAutoStartOutOfRange.Withf("%d not in [0, %d]", autoStartNum, s.limits.MaxAutoStart)
	}
	if quiz.Trashed {
		return "", domain.ErrQuizInTrash
	}
	if len(quiz.Questions) == 0 {
		return "", domain.ErrQuizHasNoQuestions
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	session := NewSession(SessionConfig{
		ID:           id.String(),
		QuizID:       quiz.ID,
		Snapshot:     domain.NewSnapshot(quiz, s.clock.Now()),
		AutoStartNum: autoStartNum,
		Countdown:    s.limits.Countdown,
		Clock:        s.clock,
		Publish:      s.bus.Publish,
	})
	if err := s.sessions.Insert(ctx, session, s.limits.MaxActiveSessions); err != nil {
		return "", err
	}

	telemetry.SessionsStarted.Inc()
	slog.InfoContext(ctx, "session: started",
		"session", session.ID(),
		"quiz", quiz.ID,
		"version", quiz.Version,
		"autoStartNum", autoStartNum,
	)
	s.bus.Publish(ctx, domain.EventSessionStarted{SessionID: session.ID(), QuizID: quiz.ID, At: session.CreatedAt()})
	return session.ID(), nil
}

// ApplyAction performs a host action on a session of the caller's quiz.
func (s *QuizService) ApplyAction(ctx context.Context, token, quizID, sessionID, action string) error {
	session, err := s.ownedSession(ctx, token, quizID, sessionID)
	if err != nil {
		return err
	}
	a, err := domain.ParseAction(action)
	if err != nil {
		return err
	}
	return session.Apply(ctx, a)
}

// SessionStatus is the host view of one session.
func (s *QuizService) SessionStatus(ctx context.Context, token, quizID, sessionID string) (domain.SessionStatus, error) {
	session, err := s.ownedSession(ctx, token, quizID, sessionID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return session.Status(), nil
}

// SessionsView splits a quiz's sessions into active and ended, ids ascending.
func (s *QuizService) SessionsView(ctx context.Context, token, quizID string) (domain.SessionsView, error) {
	if _, err := s.authorizeOwner(ctx, token, quizID); err != nil {
		return domain.SessionsView{}, err
	}
	view := domain.SessionsView{ActiveSessions: []string{}, InactiveSessions: []string{}}
	for _, session := range s.sessions.ListByQuiz(ctx, quizID) {
		if session.Active() {
			view.ActiveSessions = append(view.ActiveSessions, session.ID())
		} else {
			view.InactiveSessions = append(view.InactiveSessions, session.ID())
		}
	}
	sort.Strings(view.ActiveSessions)
	sort.Strings(view.InactiveSessions)
	return view, nil
}

// QuestionResult is the host variant of PlayerQuestionResult.
func (s *QuizService) QuestionResult(ctx context.Context, token, quizID, sessionID string, position int) (domain.QuestionResult, error) {
	session, err := s.ownedSession(ctx, token, quizID, sessionID)
	if err != nil {
		return domain.QuestionResult{}, err
	}
	return session.questionResult(position)
}

// FinalResults is the host variant of PlayerFinalResults.
func (s *QuizService) FinalResults(ctx context.Context, token, quizID, sessionID string) (domain.FinalResults, error) {
	session, err := s.ownedSession(ctx, token, quizID, sessionID)
	if err != nil {
		return domain.FinalResults{}, err
	}
	return session.finalResults()
}

// ResultsTable returns the per-player per-question grid for CSV export.
func (s *QuizService) ResultsTable(ctx context.Context, token, quizID, sessionID string) (domain.ResultsTable, error) {
	session, err := s.ownedSession(ctx, token, quizID, sessionID)
	if err != nil {
		return domain.ResultsTable{}, err
	}
	return session.resultsTable()
}

// JoinSession adds a player to a session in LOBBY and returns its id.
func (s *QuizService) JoinSession(ctx context.Context, sessionID, name string) (string, error) {
	session, ok := s.sessions.Get(ctx, sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate player id: %w", err)
	}
	if _, err := session.join(ctx, id.String(), name); err != nil {
		return "", err
	}
	s.sessions.BindPlayer(ctx, id.String(), session)
	return id.String(), nil
}

func (s *QuizService) PlayerStatus(ctx context.Context, playerID string) (domain.PlayerStatus, error) {
	session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return domain.PlayerStatus{}, err
	}
	return session.PlayerStatus(), nil
}

func (s *QuizService) PlayerQuestion(ctx context.Context, playerID string, position int) (domain.PlayerQuestion, error) {
	session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return domain.PlayerQuestion{}, err
	}
	return session.question(position)
}

// SubmitAnswer records a player's answer set for the open question.
func (s *QuizService) SubmitAnswer(ctx context.Context, playerID string, position int, answerIDs []string) error {
	session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return err
	}
	return session.submit(playerID, position, answerIDs)
}

func (s *QuizService) PlayerQuestionResult(ctx context.Context, playerID string, position int) (domain.QuestionResult, error) {
	session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return domain.QuestionResult{}, err
	}
	return session.questionResult(position)
}

func (s *QuizService) PlayerFinalResults(ctx context.Context, playerID string) (domain.FinalResults, error) {
	session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return domain.FinalResults{}, err
	}
	return session.finalResults()
}

func (s *QuizService) SendMessage(ctx context.Context, playerID, body string) error {
	session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return err
	}
	return session.sendMessage(playerID, body)
}

func (s *QuizService) Messages(ctx context.Context, playerID string) ([]domain.Message, error) {
	session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return session.chat(), nil
}

// Subscribe returns a channel that receives the player's session status after every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, playerID string) (<-chan domain.PlayerStatus, func(), error) {
	session, err := s.playerSession(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Reset clears every session and cancels their timers.
func (s *QuizService) Reset(ctx context.Context) {
	s.sessions.Reset(ctx)
	slog.InfoContext(ctx, "session: store cleared")
}

func (s *QuizService) authorizeOwner(ctx context.Context, token, quizID string) (domain.Quiz, error) {
	userID, err := s.auth.ResolveCaller(ctx, token)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != userID {
		return domain.Quiz{}, domain.ErrNotQuizOwner.Withf("quiz %s", quizID)
	}
	return quiz, nil
}

func (s *QuizService) ownedSession(ctx context.Context, token, quizID, sessionID string) (*Session, error) {
	if _, err := s.authorizeOwner(ctx, token, quizID); err != nil {
		return nil, err
	}
	session, ok := s.sessions.Get(ctx, sessionID)
	if !ok || session.QuizID() != quizID {
		return nil, domain.ErrSessionNotFound.Withf("%s in quiz %s", sessionID, quizID)
	}
	return session, nil
}

func (s *QuizService) playerSession(ctx context.Context, playerID string) (*Session, error) {
	session, ok := s.sessions.PlayerSession(ctx, playerID)
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return session, nil
}
