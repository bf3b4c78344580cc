package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an engine error.
type Code int

const (
	CodeInternal Code = iota
	CodeNotFound
	CodeInvalidState
	CodeValidation
	CodeUnauthorized
	CodeForbidden
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "not found"
	case CodeInvalidState:
		return "invalid state"
	case CodeValidation:
		return "validation error"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

var code2http = map[Code]int{
	CodeNotFound:     http.StatusNotFound,
	CodeInvalidState: http.StatusBadRequest,
	CodeValidation:   http.StatusBadRequest,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeInternal:     http.StatusInternalServerError,
}

// Error is a classified engine error. Two errors match with errors.Is when
// their codes are equal and the target either has no message or the same one,
// so errors.Is(err, ErrNotFound) holds for every not-found error.
type Error struct {
	Code    Code
	Message string
	detail  string
	err     error
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func (e *Error) Error() string {
	s := e.Message
	if s == "" {
		s = e.Code.String()
	}
	if e.detail != "" {
		s += ": " + e.detail
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// HTTPStatusCode maps the error code to a response status.
func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, detail: e.detail, err: cause}
}

// Withf returns a copy of e with a formatted detail. The copy still matches e.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: e.Message, detail: fmt.Sprintf(format, args...), err: e.err}
}

// Convert returns err as an *Error, classifying unknown errors as internal.
func Convert(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Message: "internal error", err: err}
}

var (
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrInvalidState = &Error{Code: CodeInvalidState}
	ErrValidation   = &Error{Code: CodeValidation}
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
	ErrForbidden    = &Error{Code: CodeForbidden}
)

var (
	// ErrSessionNotFound is returned when a session id is unknown or not part of the quiz.
	ErrSessionNotFound = newError(CodeNotFound, "quiz session not found")
	// ErrPlayerNotFound is returned for an unknown player id.
	ErrPlayerNotFound = newError(CodeNotFound, "player not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = newError(CodeNotFound, "quiz not found")

	ErrInvalidAction           = newError(CodeInvalidState, "action not allowed in current state")
	ErrNoMoreQuestions         = newError(CodeInvalidState, "no further question in quiz")
	ErrSessionNotInLobby       = newError(CodeInvalidState, "session is not accepting players")
	ErrQuestionNotOpen         = newError(CodeInvalidState, "question is not open for answers")
	ErrQuestionNotActive       = newError(CodeInvalidState, "session is not on this question")
	ErrQuestionNotVisible      = newError(CodeInvalidState, "question is not visible in current state")
	ErrResultsNotAvailable     = newError(CodeInvalidState, "results are not available yet")
	ErrSessionEnded            = newError(CodeInvalidState, "session has ended")
	ErrUnknownAction           = newError(CodeValidation, "unknown action")
	ErrNameTaken               = newError(CodeValidation, "name already used in session")
	ErrInvalidQuestionPosition = newError(CodeValidation, "invalid question position")
	ErrNoAnswers               = newError(CodeValidation, "at least one answer is required")
	ErrDuplicateAnswer         = newError(CodeValidation, "duplicate answer id")
	ErrAnswerNotInQuestion     = newError(CodeValidation, "answer does not belong to question")
	ErrAutoStartOutOfRange     = newError(CodeValidation, "autoStartNum out of range")
	ErrTooManySessions         = newError(CodeValidation, "too many active sessions for quiz")
	ErrQuizHasNoQuestions      = newError(CodeValidation, "quiz has no questions")
	ErrQuizInTrash             = newError(CodeValidation, "quiz is in trash")
	ErrInvalidMessage          = newError(CodeValidation, "message length must be between 1 and 100")

	ErrInvalidToken = newError(CodeUnauthorized, "invalid or expired token")
	ErrNotQuizOwner = newError(CodeForbidden, "caller does not own quiz")
)
