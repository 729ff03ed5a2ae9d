package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"edumind-service/internal/app"
	"edumind-service/internal/logging"
	"github.com/gorilla/websocket"
)

// WSHandler serves the chat websocket. Besides chat questions a client
// may watch a quiz and receive its score updates on the same connection.
type WSHandler struct {
	chat     *app.ChatService
	quizzes  *app.QuizService
	log      *logging.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(chat *app.ChatService, quizzes *app.QuizService, log *logging.Logger) *WSHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &WSHandler{
		chat:    chat,
		quizzes: quizzes,
		log:     log,
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

type chatPayload struct {
	Question string `json:"question"`
}

type watchPayload struct {
	QuizID string `json:"quiz_id"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type scorePayload struct {
	QuizID     string  `json:"quiz_id"`
	Correct    bool    `json:"correct"`
	TotalScore int     `json:"total_score"`
	Percentage float64 `json:"percentage"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades the request and handles messages until the client
// disconnects. A single writer goroutine owns the connection's write side.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "error", err)
				cancel()
				return
			}
		}
	}()

	var (
		watchers sync.WaitGroup
		unwatch  []func()
		watching = make(map[string]bool)
	)
	deliver := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-ctx.Done():
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "chat":
			var payload chatPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				deliver(errorMessage("invalid chat payload"))
				continue
			}
			h.log.Info("Received a request to /chat endpoint", "transport", "websocket")
			reply, err := h.chat.Ask(ctx, payload.Question)
			if err != nil {
				deliver(errorMessage(err.Error()))
				continue
			}
			deliver(outboundMessage[any]{Type: "chatResponse", Payload: reply})
		case "watch":
			var payload watchPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuizID == "" {
				deliver(errorMessage("invalid watch payload"))
				continue
			}
			if _, err := h.quizzes.GetQuiz(ctx, payload.QuizID); err != nil {
				deliver(errorMessage(err.Error()))
				continue
			}
			if watching[payload.QuizID] {
				continue
			}
			watching[payload.QuizID] = true
			updates, stop := h.quizzes.Subscribe(payload.QuizID)
			unwatch = append(unwatch, stop)
			watchers.Add(1)
			go func(quizID string) {
				defer watchers.Done()
				for {
					select {
					case res, ok := <-updates:
						if !ok {
							return
						}
						deliver(outboundMessage[any]{Type: "score", Payload: scorePayload{
							QuizID:     quizID,
							Correct:    res.Correct,
							TotalScore: res.TotalScore,
							Percentage: res.Percentage,
						}})
					case <-ctx.Done():
						return
					}
				}
			}(payload.QuizID)
			deliver(outboundMessage[any]{Type: "watching", Payload: watchPayload{QuizID: payload.QuizID}})
		default:
			deliver(errorMessage("unsupported message type"))
		}
	}

	cancel()
	for _, stop := range unwatch {
		stop()
	}
	watchers.Wait()
	close(send)
	<-writerDone
}
