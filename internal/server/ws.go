package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/researcher/internal/report"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// handleWS streams progress events for runs started over the
// connection. The client sends {"type":"start_research","topic":...};
// the server pushes status events, the terminal result, or a
// single error event. A broken connection only drops events, it never
// fails the run.
func (h *ResearchHandler) handleWS(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	defer conn.Close()

	// connCtx scopes event delivery to the socket. Runs started over
	// the connection use runCtx instead: a broken connection only drops
	// events, it never aborts the pipeline.
	connCtx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	runCtx := context.WithoutCancel(c.Request().Context())

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		h.Logger.Printf("ws %s: set read deadline failed: %v", sessionID, err)
		return nil
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan report.Event, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-connCtx.Done():
				return
			case ev := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	running := make(chan struct{}, 1)
	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return nil
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))

		switch msgType {
		case "ping":
			pushWS(writeCh, report.Event{Type: "pong"})
		case "start_research":
			topic := strings.TrimSpace(in.Topic)
			if topic == "" {
				pushWS(writeCh, report.Event{
					Type:    report.EventError,
					Step:    report.StepError,
					Message: "topic is required",
				})
				continue
			}
			select {
			case running <- struct{}{}:
			default:
				pushWS(writeCh, report.Event{
					Type:    report.EventError,
					Step:    report.StepError,
					Message: "research already running on this session",
				})
				continue
			}
			h.Logger.Printf("ws %s: starting research on %q", sessionID, topic)
			go func() {
				defer func() { <-running }()
				// events outlive a closed socket; the orchestrator
				// only needs a sink, delivery is best-effort
				_, err := h.Orch.Run(runCtx, topic, func(ev report.Event) {
					pushWS(writeCh, ev)
				})
				if err != nil {
					h.Logger.Printf("ws %s: research failed: %v", sessionID, err)
				}
			}()
		default:
			pushWS(writeCh, report.Event{
				Type:    report.EventError,
				Step:    report.StepError,
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

// pushWS delivers without blocking: when the buffer is full the oldest
// event is dropped in favor of the newest.
func pushWS(writeCh chan report.Event, ev report.Event) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- ev:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- ev:
	default:
	}
}
