package app

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"quiz-session-service/internal/domain"
)

// scorePlaces is the number of decimal places a points/rank contribution is rounded to.
const scorePlaces = 2

// scoreboard is everything scoring reads from a session. It aliases session
// state, so it is only valid while the session lock is held.
type scoreboard struct {
	snapshot    domain.Snapshot
	players     []domain.Player
	submissions map[int]map[string]domain.Submission
	openedAt    map[int]time.Time
}

func (s *Session) scoreboardLocked() scoreboard {
	return scoreboard{
		snapshot:    s.snapshot,
		players:     s.players,
		submissions: s.submissions,
		openedAt:    s.openedAt,
	}
}

// questionOutcome is the scored result of one question.
type questionOutcome struct {
	result domain.QuestionResult
	// rank and score of each correct player, keyed by player id
	ranks  map[string]int
	scores map[string]decimal.Decimal
}

type correctEntry struct {
	player      domain.Player
	submittedAt time.Time
}

// scoreQuestion derives the result of the question at position. Correct
// players are listed in join order; ranks follow submission time with join
// order breaking ties.
func (b scoreboard) scoreQuestion(position int) questionOutcome {
	q, _ := b.snapshot.Question(position)
	subs := b.submissions[position]
	openedAt := b.openedAt[position]

	correctSet := make(map[string]struct{})
	for _, id := range q.CorrectAnswerIDs() {
		correctSet[id] = struct{}{}
	}

	var (
		answered int
		elapsed  time.Duration
		correct  []correctEntry
	)
	names := make([]string, 0)
	for _, p := range b.players {
		sub, ok := subs[p.ID]
		if !ok {
			continue
		}
		answered++
		elapsed += sub.SubmittedAt.Sub(openedAt)
		if sameSet(sub.AnswerIDs, correctSet) {
			correct = append(correct, correctEntry{player: p, submittedAt: sub.SubmittedAt})
			names = append(names, p.Name)
		}
	}

	out := questionOutcome{
		result: domain.QuestionResult{
			QuestionID:         q.ID,
			PlayersCorrectList: names,
			AverageAnswerTime:  averageSeconds(elapsed, answered),
			PercentCorrect:     percent(len(correct), len(b.players)),
		},
		ranks:  make(map[string]int, len(correct)),
		scores: make(map[string]decimal.Decimal, len(correct)),
	}

	sort.SliceStable(correct, func(i, j int) bool {
		return correct[i].submittedAt.Before(correct[j].submittedAt)
	})
	points := decimal.NewFromInt(int64(q.EffectivePoints()))
	for i, c := range correct {
		rank := i + 1
		out.ranks[c.player.ID] = rank
		out.scores[c.player.ID] = points.DivRound(decimal.NewFromInt(int64(rank)), scorePlaces)
	}
	return out
}

// finalResults ranks every player by total score, ties kept in join order.
func (b scoreboard) finalResults() domain.FinalResults {
	totals := make(map[string]decimal.Decimal, len(b.players))
	results := make([]domain.QuestionResult, 0, b.snapshot.NumQuestions())
	for pos := 1; pos <= b.snapshot.NumQuestions(); pos++ {
		o := b.scoreQuestion(pos)
		results = append(results, o.result)
		for id, sc := range o.scores {
			totals[id] = totals[id].Add(sc)
		}
	}

	ranked := make([]domain.PlayerScore, 0, len(b.players))
	for _, p := range b.players {
		ranked = append(ranked, domain.PlayerScore{Name: p.Name, Score: totals[p.ID]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.GreaterThan(ranked[j].Score)
	})

	return domain.FinalResults{
		UsersRankedByScore: ranked,
		QuestionResults:    results,
	}
}

// resultsTable lays out player x question outcomes, rows sorted by player name.
func (b scoreboard) resultsTable() domain.ResultsTable {
	n := b.snapshot.NumQuestions()
	outcomes := make([]questionOutcome, 0, n)
	for pos := 1; pos <= n; pos++ {
		outcomes = append(outcomes, b.scoreQuestion(pos))
	}

	rows := make([]domain.ResultRow, 0, len(b.players))
	for _, p := range b.players {
		cells := make([]domain.ResultCell, 0, n)
		for i, o := range outcomes {
			rank, ok := o.ranks[p.ID]
			cells = append(cells, domain.ResultCell{
				QuestionPosition: i + 1,
				Score:            o.scores[p.ID],
				Rank:             rank,
				Correct:          ok,
			})
		}
		rows = append(rows, domain.ResultRow{Player: p.Name, Cells: cells})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Player < rows[j].Player
	})

	return domain.ResultsTable{NumQuestions: n, Rows: rows}
}

func sameSet(ids []string, set map[string]struct{}) bool {
	if len(ids) != len(set) {
		return false
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// percent rounds 100*part/whole to the nearest integer, halves away from zero.
func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

func averageSeconds(total time.Duration, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(total.Seconds() / float64(n)))
}

// questionResult is the per-question result. It is readable in ANSWER_SHOW
// for any question reached so far, and in FINAL_RESULTS and END for every
// question the session got to.
func (s *Session) questionResult(position int) (domain.QuestionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.snapshot.Question(position); !ok {
		return domain.QuestionResult{}, domain.ErrInvalidQuestionPosition.Withf("%d", position)
	}
	switch s.state {
	case domain.StateAnswerShow, domain.StateFinalResults, domain.StateEnd:
	default:
		return domain.QuestionResult{}, domain.ErrResultsNotAvailable.Withf("state %s", s.state)
	}
	if position > s.reached || (s.state == domain.StateAnswerShow && position > s.atQuestion) {
		return domain.QuestionResult{}, domain.ErrResultsNotAvailable.Withf("question %d not reached", position)
	}
	return s.scoreboardLocked().scoreQuestion(position).result, nil
}

func (s *Session) finalResultsReadyLocked() error {
	if s.state == domain.StateFinalResults || s.state == domain.StateEnd {
		return nil
	}
	return domain.ErrResultsNotAvailable.Withf("state %s", s.state)
}

// finalResults is readable once the session is in FINAL_RESULTS or END.
func (s *Session) finalResults() (domain.FinalResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.finalResultsReadyLocked(); err != nil {
		return domain.FinalResults{}, err
	}
	return s.scoreboardLocked().finalResults(), nil
}

func (s *Session) resultsTable() (domain.ResultsTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.finalResultsReadyLocked(); err != nil {
		return domain.ResultsTable{}, err
	}
	return s.scoreboardLocked().resultsTable(), nil
}
