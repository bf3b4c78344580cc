package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionPosition int      `json:"questionPosition"`
	AnswerIDs        []string `json:"answerIds"`
}

type chatPayload struct {
	Body string `json:"messageBody"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func errorMessage(err error) outboundMessage {
	e := domain.Convert(err)
	return outboundMessage{Type: "error", Payload: errorResponse{Error: e.Error(), Code: e.Code.String()}}
}

// ServeWS upgrades a player's connection, pushes a status message after every
// session transition and accepts answer and chat messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "missing playerId", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), playerID)
	if err != nil {
		e := domain.Convert(err)
		http.Error(w, e.Error(), e.HTTPStatusCode())
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "ws: upgrade failed", "player", playerID, "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.DebugContext(r.Context(), "ws: write failed", "player", playerID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case status, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "status", Payload: status}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		select {
		case send <- h.handleInbound(r.Context(), playerID, inbound):
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleInbound(ctx context.Context, playerID string, in inboundMessage) outboundMessage {
	switch in.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return errorMessage(domain.ErrValidation.Withf("invalid answer payload"))
		}
		if err := h.service.SubmitAnswer(ctx, playerID, payload.QuestionPosition, payload.AnswerIDs); err != nil {
			return errorMessage(err)
		}
		return outboundMessage{Type: "answerAccepted", Payload: payload}
	case "chat":
		var payload chatPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return errorMessage(domain.ErrValidation.Withf("invalid chat payload"))
		}
		if err := h.service.SendMessage(ctx, playerID, payload.Body); err != nil {
			return errorMessage(err)
		}
		return outboundMessage{Type: "chatAccepted", Payload: payload}
	default:
		return errorMessage(domain.ErrValidation.Withf("unsupported message type %q", in.Type))
	}
}
