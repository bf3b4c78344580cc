package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Answer is a selectable option of a question.
type Answer struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Colour  string `json:"colour,omitempty"`
	Correct bool   `json:"correct"`
}

// Question models a question with one or more correct answers.
type Question struct {
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Duration  int      `json:"duration"` // seconds the question stays open
	Points    int      `json:"points"`   // defaults to 1 if zero
	Thumbnail string   `json:"thumbnail,omitempty"`
	Answers   []Answer `json:"answers"`
}

// EffectivePoints returns the points awarded for a full-value correct answer.
func (q Question) EffectivePoints() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// CorrectAnswerIDs returns the ids of every answer flagged correct.
func (q Question) CorrectAnswerIDs() []string {
	ids := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.Correct {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Quiz is the editable quiz definition owned by a user.
type Quiz struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Version     int        `json:"version"`
	Trashed     bool       `json:"trashed"`
	Questions   []Question `json:"questions"`
}

// Player is a participant bound to one session.
type Player struct {
	ID       string    `json:"playerId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Submission is the latest answer set of a player for a question.
type Submission struct {
	PlayerID         string    `json:"playerId"`
	QuestionPosition int       `json:"questionPosition"`
	AnswerIDs        []string  `json:"answerIds"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// Message is a chat entry posted by a player.
type Message struct {
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Body       string    `json:"messageBody"`
	SentAt     time.Time `json:"timeSent"`
}

// PlayerStatus is what a player sees about its session.
type PlayerStatus struct {
	State        State `json:"state"`
	NumQuestions int   `json:"numQuestions"`
	AtQuestion   int   `json:"atQuestion"`
}

// PlayerQuestion is a question as shown to players, without correctness flags.
type PlayerQuestion struct {
	ID        string         `json:"questionId"`
	Prompt    string         `json:"question"`
	Duration  int            `json:"duration"`
	Points    int            `json:"points"`
	Thumbnail string         `json:"thumbnailUrl,omitempty"`
	Answers   []PlayerAnswer `json:"answers"`
}

type PlayerAnswer struct {
	ID     string `json:"answerId"`
	Text   string `json:"answer"`
	Colour string `json:"colour,omitempty"`
}

// SessionStatus is the host's view of a session.
type SessionStatus struct {
	SessionID  string   `json:"sessionId"`
	QuizID     string   `json:"quizId"`
	State      State    `json:"state"`
	AtQuestion int      `json:"atQuestion"`
	Players    []string `json:"players"`
	Metadata   Snapshot `json:"metadata"`
}

// SessionsView lists a quiz's sessions split by whether they have ended.
type SessionsView struct {
	ActiveSessions   []string `json:"activeSessions"`
	InactiveSessions []string `json:"inactiveSessions"`
}

// QuestionResult aggregates the answers given to one question.
type QuestionResult struct {
	QuestionID         string   `json:"questionId"`
	PlayersCorrectList []string `json:"playersCorrectList"`
	AverageAnswerTime  int      `json:"averageAnswerTime"`
	PercentCorrect     int      `json:"percentCorrect"`
}

// PlayerScore is a player's cumulative score.
type PlayerScore struct {
	Name  string          `json:"name"`
	Score decimal.Decimal `json:"score"`
}

// FinalResults summarises a finished session.
type FinalResults struct {
	UsersRankedByScore []PlayerScore    `json:"usersRankedByScore"`
	QuestionResults    []QuestionResult `json:"questionResults"`
}

// ResultCell is one player's outcome on one question.
type ResultCell struct {
	QuestionPosition int             `json:"questionPosition"`
	Score            decimal.Decimal `json:"score"`
	Rank             int             `json:"rank"` // 0 when not correct
	Correct          bool            `json:"correct"`
}

type ResultRow struct {
	Player string       `json:"player"`
	Cells  []ResultCell `json:"cells"`
}

// ResultsTable is the player x question grid exported as CSV.
type ResultsTable struct {
	NumQuestions int         `json:"numQuestions"`
	Rows         []ResultRow `json:"rows"`
}
