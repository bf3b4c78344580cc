package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/export"
)

// tokenHeader carries the host's session token when no bearer token is sent.
const tokenHeader = "Token"

type handler struct {
	service *app.QuizService
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c *gin.Context, err error) {
	e := domain.Convert(err)
	if e.Code == domain.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "http: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(e.HTTPStatusCode(), errorResponse{Error: e.Error(), Code: e.Code.String()})
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		// an empty body leaves v at its zero value
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(c, domain.ErrValidation.Withf("invalid request body: %v", err))
		return false
	}
	return true
}

func hostToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader(tokenHeader)
}

func position(c *gin.Context) (int, bool) {
	pos, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		writeError(c, domain.ErrInvalidQuestionPosition.Withf("%q", c.Param("position")))
		return 0, false
	}
	return pos, true
}

type startSessionRequest struct {
	AutoStartNum int `json:"autoStartNum"`
}

func (h *handler) startSession(c *gin.Context) {
	var req startSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.service.StartSession(c.Request.Context(), hostToken(c), c.Param("quizId"), req.AutoStartNum)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": id})
}

func (h *handler) sessionsView(c *gin.Context) {
	view, err := h.service.SessionsView(c.Request.Context(), hostToken(c), c.Param("quizId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) sessionStatus(c *gin.Context) {
	st, err := h.service.SessionStatus(c.Request.Context(), hostToken(c), c.Param("quizId"), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type applyActionRequest struct {
	Action string `json:"action" binding:"required"`
}

func (h *handler) applyAction(c *gin.Context) {
	var req applyActionRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.service.ApplyAction(c.Request.Context(), hostToken(c), c.Param("quizId"), c.Param("sessionId"), req.Action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *handler) questionResult(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	res, err := h.service.QuestionResult(c.Request.Context(), hostToken(c), c.Param("quizId"), c.Param("sessionId"), pos)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) finalResults(c *gin.Context) {
	res, err := h.service.FinalResults(c.Request.Context(), hostToken(c), c.Param("quizId"), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// resultsCSVLink checks the results are ready and returns where to download them.
func (h *handler) resultsCSVLink(c *gin.Context) {
	quizID, sessionID := c.Param("quizId"), c.Param("sessionId")
	if _, err := h.service.ResultsTable(c.Request.Context(), hostToken(c), quizID, sessionID); err != nil {
		writeError(c, err)
		return
	}
	link := fmt.Sprintf("/quizzes/%s/sessions/%s/results/csv/download", url.PathEscape(quizID), url.PathEscape(sessionID))
	c.JSON(http.StatusOK, gin.H{"url": link})
}

func (h *handler) resultsCSV(c *gin.Context) {
	sessionID := c.Param("sessionId")
	table, err := h.service.ResultsTable(c.Request.Context(), hostToken(c), c.Param("quizId"), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(sessionID)))
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, table); err != nil {
		slog.ErrorContext(c.Request.Context(), "http: write csv failed", "session", sessionID, "error", err)
	}
}

type joinRequest struct {
	Name string `json:"name"`
}

func (h *handler) joinSession(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.service.JoinSession(c.Request.Context(), c.Param("sessionId"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playerId": id})
}

func (h *handler) playerStatus(c *gin.Context) {
	st, err := h.service.PlayerStatus(c.Request.Context(), c.Param("playerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) playerQuestion(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	q, err := h.service.PlayerQuestion(c.Request.Context(), c.Param("playerId"), pos)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type submitAnswerRequest struct {
	AnswerIDs []string `json:"answerIds"`
}

func (h *handler) submitAnswer(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	var req submitAnswerRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.SubmitAnswer(c.Request.Context(), c.Param("playerId"), pos, req.AnswerIDs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *handler) playerQuestionResult(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	res, err := h.service.PlayerQuestionResult(c.Request.Context(), c.Param("playerId"), pos)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) playerFinalResults(c *gin.Context) {
	res, err := h.service.PlayerFinalResults(c.Request.Context(), c.Param("playerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) messages(c *gin.Context) {
	msgs, err := h.service.Messages(c.Request.Context(), c.Param("playerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type sendMessageRequest struct {
	Message struct {
		Body string `json:"messageBody"`
	} `json:"message"`
}

func (h *handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.SendMessage(c.Request.Context(), c.Param("playerId"), req.Message.Body); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *handler) reset(c *gin.Context) {
	h.service.Reset(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{})
}
