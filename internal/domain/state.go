package domain

import (
	"encoding/json"
	"strings"
)

// State is a session state.
type State int

const (
	StateLobby State = iota
	StateQuestionCountdown
	StateQuestionOpen
	StateQuestionClose
	StateAnswerShow
	StateFinalResults
	StateEnd
)

var stateNames = [...]string{
	StateLobby:             "LOBBY",
	StateQuestionCountdown: "QUESTION_COUNTDOWN",
	StateQuestionOpen:      "QUESTION_OPEN",
	StateQuestionClose:     "QUESTION_CLOSE",
	StateAnswerShow:        "ANSWER_SHOW",
	StateFinalResults:      "FINAL_RESULTS",
	StateEnd:               "END",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateEnd
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range stateNames {
		if n == name {
			*s = State(i)
			return nil
		}
	}
	return ErrValidation.Withf("unknown state %q", name)
}

// Action is a host command applied to a session.
type Action int

const (
	ActionNextQuestion Action = iota + 1
	ActionSkipCountdown
	ActionGoToAnswer
	ActionGoToFinalResults
	ActionEnd
)

var actionNames = map[Action]string{
	ActionNextQuestion:     "NEXT_QUESTION",
	ActionSkipCountdown:    "SKIP_COUNTDOWN",
	ActionGoToAnswer:       "GO_TO_ANSWER",
	ActionGoToFinalResults: "GO_TO_FINAL_RESULTS",
	ActionEnd:              "END",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseAction maps a wire action name to an Action.
func ParseAction(name string) (Action, error) {
	name = strings.TrimSpace(name)
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, ErrUnknownAction.Withf("%q", name)
}
