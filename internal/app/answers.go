package app

import (
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/telemetry"
)

// submit records the answer set of a player for the open question,
// replacing any earlier submission for that question.
func (s *Session) submit(playerID string, position int, answerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playerIndex[playerID]; !ok {
		return domain.ErrPlayerNotFound
	}
	q, ok := s.snapshot.Question(position)
	if !ok {
		return domain.ErrInvalidQuestionPosition.Withf("%d", position)
	}
	switch {
	case s.state == domain.StateEnd:
		return domain.ErrSessionEnded
	case s.state != domain.StateQuestionOpen:
		return domain.ErrQuestionNotOpen.Withf("state %s", s.state)
	case s.atQuestion != position:
		return domain.ErrQuestionNotActive.Withf("at question %d", s.atQuestion)
	}
	if err := validateAnswers(q, answerIDs); err != nil {
		return err
	}

	subs, ok := s.submissions[position]
	if !ok {
		subs = make(map[string]domain.Submission)
		s.submissions[position] = subs
	}
	subs[playerID] = domain.Submission{
		PlayerID:         playerID,
		QuestionPosition: position,
		AnswerIDs:        append([]string(nil), answerIDs...),
		SubmittedAt:      s.clock.Now(),
	}
	telemetry.AnswersSubmitted.Inc()
	return nil
}

func validateAnswers(q domain.Question, answerIDs []string) error {
	if len(answerIDs) == 0 {
		return domain.ErrNoAnswers
	}
	valid := make(map[string]struct{}, len(q.Answers))
	for _, a := range q.Answers {
		valid[a.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(answerIDs))
	for _, id := range answerIDs {
		if _, ok := valid[id]; !ok {
			return domain.ErrAnswerNotInQuestion.Withf("%q", id)
		}
		if _, dup := seen[id]; dup {
			return domain.ErrDuplicateAnswer.Withf("%q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// question returns the player view of the question at position. It is only
// visible while the session sits on that question past its countdown.
func (s *Session) question(position int) (domain.PlayerQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.snapshot.Question(position)
	if !ok {
		return domain.PlayerQuestion{}, domain.ErrInvalidQuestionPosition.Withf("%d", position)
	}
	switch s.state {
	case domain.StateEnd:
		return domain.PlayerQuestion{}, domain.ErrSessionEnded
	case domain.StateLobby, domain.StateQuestionCountdown, domain.StateFinalResults:
		return domain.PlayerQuestion{}, domain.ErrQuestionNotVisible.Withf("state %s", s.state)
	}
	if s.atQuestion != position {
		return domain.PlayerQuestion{}, domain.ErrQuestionNotActive.Withf("at question %d", s.atQuestion)
	}

	answers := make([]domain.PlayerAnswer, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, domain.PlayerAnswer{ID: a.ID, Text: a.Text, Colour: a.Colour})
	}
	return domain.PlayerQuestion{
		ID:        q.ID,
		Prompt:    q.Prompt,
		Duration:  q.Duration,
		Points:    q.EffectivePoints(),
		Thumbnail: q.Thumbnail,
		Answers:   answers,
	}, nil
}
