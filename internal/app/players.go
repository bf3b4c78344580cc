package app

import (
	"context"
	"math/rand"
	"strings"
	"unicode/utf8"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/event"
	"quiz-session-service/internal/telemetry"
)

const maxMessageLength = 100

// join registers a player under playerID. Reaching the auto-start threshold
// advances the session to the first question in the same critical section.
func (s *Session) join(ctx context.Context, playerID, name string) (domain.Player, error) {
	s.mu.Lock()
	if s.state != domain.StateLobby {
		state := s.state
		s.mu.Unlock()
		return domain.Player{}, domain.ErrSessionNotInLobby.Withf("state %s", state)
	}

	if name == "" {
		name = placeholderName(s.names)
	} else if _, taken := s.names[name]; taken {
		s.mu.Unlock()
		return domain.Player{}, domain.ErrNameTaken.Withf("%q", name)
	}

	now := s.clock.Now()
	p := domain.Player{ID: playerID, Name: name, JoinedAt: now}
	s.playerIndex[playerID] = len(s.players)
	s.players = append(s.players, p)
	s.names[name] = struct{}{}

	events := []event.Event{domain.EventPlayerJoined{
		SessionID:  s.id,
		QuizID:     s.quizID,
		PlayerID:   playerID,
		PlayerName: name,
		At:         now,
	}}
	if s.autoStartNum > 0 && len(s.players) >= s.autoStartNum {
		events = append(events, s.transitionLocked(domain.StateQuestionCountdown, 1, triggerAutoStart)...)
	}
	s.mu.Unlock()

	telemetry.PlayersJoined.Inc()
	s.emit(ctx, events)
	return p, nil
}

// placeholderName builds five distinct letters followed by three distinct
// digits, retrying until the name is unused.
func placeholderName(taken map[string]struct{}) string {
	const (
		letters = "abcdefghijklmnopqrstuvwxyz"
		digits  = "0123456789"
	)
	for {
		var b strings.Builder
		for _, i := range rand.Perm(len(letters))[:5] {
			b.WriteByte(letters[i])
		}
		for _, i := range rand.Perm(len(digits))[:3] {
			b.WriteByte(digits[i])
		}
		name := b.String()
		if _, ok := taken[name]; !ok {
			return name
		}
	}
}

func (s *Session) sendMessage(playerID, body string) error {
	if n := utf8.RuneCountInString(body); n < 1 || n > maxMessageLength {
		return domain.ErrInvalidMessage.Withf("got %d characters", n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.playerIndex[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if s.state == domain.StateEnd {
		return domain.ErrSessionEnded
	}
	s.messages = append(s.messages, domain.Message{
		PlayerID:   playerID,
		PlayerName: s.players[idx].Name,
		Body:       body,
		SentAt:     s.clock.Now(),
	})
	return nil
}

func (s *Session) chat() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message{}, s.messages...)
}
