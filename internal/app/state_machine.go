package app

import (
	"context"
	"log/slog"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/event"
	"quiz-session-service/internal/telemetry"
)

// DefaultCountdown is the pause between selecting a question and opening it.
const DefaultCountdown = 3 * time.Second

const (
	triggerHost      = "host"
	triggerTimer     = "timer"
	triggerAutoStart = "auto_start"
)

// nextState resolves a host action against the transition table.
func nextState(state domain.State, action domain.Action, at, numQuestions int) (domain.State, int, error) {
	switch action {
	case domain.ActionNextQuestion:
		switch state {
		case domain.StateLobby:
			return domain.StateQuestionCountdown, 1, nil
		case domain.StateAnswerShow:
			if at >= numQuestions {
				return state, at, domain.ErrNoMoreQuestions.Withf("at question %d of %d", at, numQuestions)
			}
			return domain.StateQuestionCountdown, at + 1, nil
		}
	case domain.ActionSkipCountdown:
		if state == domain.StateQuestionCountdown {
			return domain.StateQuestionOpen, at, nil
		}
	case domain.ActionGoToAnswer:
		if state == domain.StateQuestionOpen || state == domain.StateQuestionClose {
			return domain.StateAnswerShow, at, nil
		}
	case domain.ActionGoToFinalResults:
		if state == domain.StateAnswerShow {
			return domain.StateFinalResults, at, nil
		}
	case domain.ActionEnd:
		if !state.Terminal() {
			return domain.StateEnd, at, nil
		}
	default:
		return state, at, domain.ErrUnknownAction.Withf("%d", int(action))
	}
	return state, at, domain.ErrInvalidAction.Withf("%s in %s", action, state)
}

// timerTarget is the state an auto-transition scheduled in from leads to.
func timerTarget(from domain.State) (domain.State, bool) {
	switch from {
	case domain.StateQuestionCountdown:
		return domain.StateQuestionOpen, true
	case domain.StateQuestionOpen:
		return domain.StateQuestionClose, true
	}
	return from, false
}

// Apply performs a host action.
func (s *Session) Apply(ctx context.Context, action domain.Action) error {
	s.mu.Lock()
	to, at, err := nextState(s.state, action, s.atQuestion, s.snapshot.NumQuestions())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	events := s.transitionLocked(to, at, triggerHost)
	s.mu.Unlock()

	s.emit(ctx, events)
	return nil
}

// transitionLocked moves the session to (to, at), replacing the pending timer.
// Entering QUESTION_COUNTDOWN or QUESTION_OPEN schedules the next auto-transition;
// entering any other state leaves no timer behind.
func (s *Session) transitionLocked(to domain.State, at int, trigger string) []event.Event {
	from := s.state
	now := s.clock.Now()

	s.cancelTimerLocked()
	s.state = to
	s.atQuestion = at

	switch to {
	case domain.StateQuestionCountdown:
		s.reached = max(s.reached, at)
		s.scheduleLocked(s.countdown, to, at)
	case domain.StateQuestionOpen:
		s.openedAt[at] = now
		q, _ := s.snapshot.Question(at)
		s.scheduleLocked(time.Duration(q.Duration)*time.Second, to, at)
	case domain.StateFinalResults, domain.StateEnd:
		s.atQuestion = 0
	}

	telemetry.Transitions.WithLabelValues(to.String(), trigger).Inc()
	slog.Info("session: transition",
		"session", s.id,
		"quiz", s.quizID,
		"from", from.String(),
		"to", to.String(),
		"atQuestion", s.atQuestion,
		"trigger", trigger,
	)

	s.broadcastLocked()

	events := []event.Event{domain.EventSessionStateChanged{
		SessionID:  s.id,
		QuizID:     s.quizID,
		From:       from,
		To:         to,
		AtQuestion: s.atQuestion,
		At:         now,
	}}
	if to == domain.StateEnd {
		events = append(events, domain.EventSessionEnded{SessionID: s.id, QuizID: s.quizID, At: now})
	}
	return events
}

// scheduleLocked installs the single pending timer for the session. The
// callback only applies if no other transition happened in between.
func (s *Session) scheduleLocked(d time.Duration, from domain.State, at int) {
	s.cancelTimerLocked()
	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(d, func() {
		s.fire(seq, from, at)
	})
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// a callback already running past Stop sees a different sequence and drops out
	s.timerSeq++
}

func (s *Session) fire(seq uint64, from domain.State, at int) {
	s.mu.Lock()
	if seq != s.timerSeq || s.state != from || s.atQuestion != at {
		s.mu.Unlock()
		telemetry.TimersFired.WithLabelValues("stale").Inc()
		slog.Debug("session: stale timer dropped", "session", s.id, "expected", from.String(), "atQuestion", at)
		return
	}
	to, ok := timerTarget(from)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	events := s.transitionLocked(to, at, triggerTimer)
	s.mu.Unlock()

	telemetry.TimersFired.WithLabelValues("applied").Inc()
	s.emit(context.Background(), events)
}
