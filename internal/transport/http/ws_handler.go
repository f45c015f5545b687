package http

import (
	"encoding/json"
	"log"
	"net/http"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams one attempt over a websocket and accepts attempt commands on it.
type WSHandler struct {
	attempts *app.AttemptService
	hub      *app.EventHub
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, hub *app.EventHub) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/attempts/{id}", h.ServeWS)
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS sends the attempt snapshot, then forwards hub events and handles
// answer, submit and abandon commands until the client disconnects.
// Browsers cannot set headers on the handshake, so the user may also come from ?userId=.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptSlug := r.PathValue("id")
	userID := r.Header.Get(userHeader)
	if userID == "" {
		userID = r.URL.Query().Get("userId")
	}
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Kind: "Unauthenticated", Message: "missing user identity"}})
		return
	}

	snapshot, err := h.attempts.Get(r.Context(), attemptSlug, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Subscribe before upgrading so no event between snapshot and stream is lost.
	updates, cancel := h.hub.Subscribe(attemptSlug)
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws: write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: string(event.Type), Payload: event}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "snapshot", Payload: snapshot}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		send <- h.handleCommand(r, attemptSlug, userID, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

type wsAnswerPayload struct {
	QuestionIndex int   `json:"questionIndex"`
	Selected      []int `json:"selected"`
}

func (h *WSHandler) handleCommand(r *http.Request, attemptSlug, userID string, inbound inboundMessage) outboundMessage {
	ctx := r.Context()
	switch inbound.Type {
	case "answer":
		var payload wsAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError(domain.Wrap(domain.KindInvalidArgument, "invalid answer payload", err))
		}
		attempt, err := h.attempts.SubmitAnswer(ctx, attemptSlug, userID, payload.QuestionIndex, payload.Selected)
		if err != nil {
			return wsError(err)
		}
		return outboundMessage{Type: "answerResult", Payload: attempt}
	case "submit":
		result, err := h.attempts.Submit(ctx, attemptSlug, userID)
		if err != nil {
			return wsError(err)
		}
		return outboundMessage{Type: "result", Payload: result}
	case "abandon":
		attempt, err := h.attempts.Abandon(ctx, attemptSlug, userID)
		if err != nil {
			return wsError(err)
		}
		return outboundMessage{Type: "abandoned", Payload: attempt}
	default:
		return wsError(domain.Errorf(domain.KindInvalidArgument, "unsupported message type %q", inbound.Type))
	}
}

func wsError(err error) outboundMessage {
	_, detail := errorDetails(err)
	return outboundMessage{Type: "error", Payload: detail}
}
