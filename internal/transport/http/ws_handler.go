package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/greeeen013/QuizApp/internal/app"
	"github.com/greeeen013/QuizApp/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams session state to the rendering layer and accepts its
// interaction and lifecycle messages over one websocket per session.
type WSHandler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
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

type togglePayload struct {
	AnswerID string `json:"answerId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and binds it to a session. Query params select
// the run: quizId plus shuffle/shuffleAnswers/questionIds for a fresh start,
// or resume=<pausedRunId> to continue a paused one.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	quizID := query.Get("quizId")
	resumeID := query.Get("resume")
	if quizID == "" && resumeID == "" {
		http.Error(w, "missing quizId or resume", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var session *app.Session
	if resumeID != "" {
		session, err = h.engine.Resume(resumeID)
	} else {
		opts := app.StartOptions{
			ShuffleQuestions: query.Get("shuffle") == "true",
			ShuffleAnswers:   query.Get("shuffleAnswers") == "true",
		}
		if raw := query.Get("questionIds"); raw != "" {
			opts.QuestionIDs = strings.Split(raw, ",")
		}
		session, err = h.engine.Start(quizID, opts)
	}
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel := session.Subscribe()
	defer cancel()
	// A dropped connection is a lifecycle signal: capture the session the same
	// way a backgrounded app would, so it is never silently lost. A mini-run
	// pause just exits, which also frees the session slot.
	defer func() {
		if err := session.Pause(); err != nil && !errors.Is(err, domain.ErrSessionFinished) {
			log.Printf("ws pause on close failed: %v", err)
		}
	}()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: update}:
				case <-closeSignals:
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
		h.handleMessage(session, inbound, send)
		if phase := session.Phase(); phase == app.PhaseFinished || phase == app.PhasePaused {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleMessage(session *app.Session, inbound inboundMessage, send chan<- outboundMessage[any]) {
	sendErr := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	switch inbound.Type {
	case "toggle":
		var payload togglePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErr(err)
			return
		}
		if err := session.Toggle(payload.AnswerID); err != nil {
			sendErr(err)
		}
	case "submit":
		result, err := session.Submit()
		if err != nil {
			sendErr(err)
			return
		}
		send <- outboundMessage[any]{Type: "submitResult", Payload: result}
	case "next":
		if err := session.Next(); err != nil {
			sendErr(err)
		}
	case "pause":
		if err := session.Pause(); err != nil {
			sendErr(err)
		}
	case "background":
		if err := session.Background(); err != nil {
			sendErr(err)
		}
	case "endEarly":
		result, err := session.EndEarly()
		if err != nil {
			sendErr(err)
			return
		}
		send <- outboundMessage[any]{Type: "result", Payload: result}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}
