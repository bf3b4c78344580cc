package domain

import (
	"encoding/json"
	"time"
)

// Snapshot is the immutable copy of a quiz taken when a session starts.
// It never shares memory with the Quiz it was built from; accessors hand out copies.
type Snapshot struct {
	quizID      string
	version     int
	name        string
	description string
	takenAt     time.Time
	questions   []Question
}

// NewSnapshot deep-copies quiz.
func NewSnapshot(quiz Quiz, takenAt time.Time) Snapshot {
	questions := make([]Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = copyQuestion(q)
	}
	return Snapshot{
		quizID:      quiz.ID,
		version:     quiz.Version,
		name:        quiz.Name,
		description: quiz.Description,
		takenAt:     takenAt,
		questions:   questions,
	}
}

func copyQuestion(q Question) Question {
	q.Answers = append([]Answer(nil), q.Answers...)
	return q
}

func (s Snapshot) QuizID() string     { return s.quizID }
func (s Snapshot) Version() int       { return s.version }
func (s Snapshot) Name() string       { return s.name }
func (s Snapshot) TakenAt() time.Time { return s.takenAt }
func (s Snapshot) NumQuestions() int  { return len(s.questions) }

// Question returns the question at 1-based position.
func (s Snapshot) Question(position int) (Question, bool) {
	if position < 1 || position > len(s.questions) {
		return Question{}, false
	}
	return copyQuestion(s.questions[position-1]), true
}

// Questions returns a copy of every question in order.
func (s Snapshot) Questions() []Question {
	out := make([]Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = copyQuestion(q)
	}
	return out
}

// TotalDuration is the sum of every question's open window in seconds.
func (s Snapshot) TotalDuration() int {
	total := 0
	for _, q := range s.questions {
		total += q.Duration
	}
	return total
}

type snapshotJSON struct {
	QuizID      string     `json:"quizId"`
	Version     int        `json:"version"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	TakenAt     time.Time  `json:"takenAt"`
	NumQuestion int        `json:"numQuestions"`
	Duration    int        `json:"duration"`
	Questions   []Question `json:"questions"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		QuizID:      s.quizID,
		Version:     s.version,
		Name:        s.name,
		Description: s.description,
		TakenAt:     s.takenAt,
		NumQuestion: len(s.questions),
		Duration:    s.TotalDuration(),
		Questions:   s.questions,
	})
}
