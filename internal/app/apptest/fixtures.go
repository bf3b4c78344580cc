package apptest

import "quiz-session-service/internal/domain"

const (
	OwnerID   = "owner-1"
	HostToken = "host-token"

	OtherUserID = "owner-2"
	OtherToken  = "other-token"
)

// OneQuestionQuiz has a single 10 second question worth 10 points with one correct answer.
func OneQuestionQuiz(id string) domain.Quiz {
	return domain.Quiz{
		ID:      id,
		OwnerID: OwnerID,
		Name:    "Capitals",
		Version: 1,
		Questions: []domain.Question{
			{
				ID:       "q1",
				Prompt:   "Capital of France?",
				Duration: 10,
				Points:   10,
				Answers: []domain.Answer{
					{ID: "q1-paris", Text: "Paris", Colour: "red", Correct: true},
					{ID: "q1-lyon", Text: "Lyon", Colour: "blue"},
				},
			},
		},
	}
}

// TwoQuestionQuiz extends OneQuestionQuiz with a 20 second question having two correct answers.
func TwoQuestionQuiz(id string) domain.Quiz {
	quiz := OneQuestionQuiz(id)
	quiz.Questions = append(quiz.Questions, domain.Question{
		ID:       "q2",
		Prompt:   "Which are in Australia?",
		Duration: 20,
		Points:   5,
		Answers: []domain.Answer{
			{ID: "q2-sydney", Text: "Sydney", Correct: true},
			{ID: "q2-perth", Text: "Perth", Correct: true},
			{ID: "q2-oslo", Text: "Oslo"},
		},
	})
	return quiz
}
