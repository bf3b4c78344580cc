package domain

import "time"

const (
	EventNameSessionStarted      = "session.started"
	EventNameSessionStateChanged = "session.state_changed"
	EventNameSessionEnded        = "session.ended"
	EventNamePlayerJoined        = "player.joined"
)

type EventSessionStarted struct {
	SessionID string    `json:"sessionId"`
	QuizID    string    `json:"quizId"`
	At        time.Time `json:"at"`
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

// EventSessionStateChanged is published after every applied transition,
// whether issued by the host or fired by a timer.
type EventSessionStateChanged struct {
	SessionID  string    `json:"sessionId"`
	QuizID     string    `json:"quizId"`
	From       State     `json:"from"`
	To         State     `json:"to"`
	AtQuestion int       `json:"atQuestion"`
	At         time.Time `json:"at"`
}

func (EventSessionStateChanged) Name() string { return EventNameSessionStateChanged }

type EventSessionEnded struct {
	SessionID string    `json:"sessionId"`
	QuizID    string    `json:"quizId"`
	At        time.Time `json:"at"`
}

func (EventSessionEnded) Name() string { return EventNameSessionEnded }

type EventPlayerJoined struct {
	SessionID  string    `json:"sessionId"`
	QuizID     string    `json:"quizId"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"name"`
	At         time.Time `json:"at"`
}

func (EventPlayerJoined) Name() string { return EventNamePlayerJoined }
