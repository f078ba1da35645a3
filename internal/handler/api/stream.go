package api

import (
	"net/http"
	"time"

	xlogger "GridPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the dashboard is read-only and served cross-origin during development
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stream upgrades to a WebSocket and pushes every frame as a JSON text
// message. The latest frame is sent first so a new client renders at once.
func (h *DashboardHandler) Stream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Debug("stream upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	frames, cancel := h.board.Subscribe()
	defer cancel()
	h.logger.Debug("stream client connected", xlogger.String("remote", c.RealIP()))

	// the read side only handles control frames and notices the client leaving
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if b, ok := h.board.LatestJSON(); ok {
		if err := write(conn, websocket.TextMessage, b); err != nil {
			return nil
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			h.logger.Debug("stream client left", xlogger.String("remote", c.RealIP()))
			return nil
		case <-c.Request().Context().Done():
			return nil
		case b, ok := <-frames:
			if !ok {
				return nil
			}
			if err := write(conn, websocket.TextMessage, b); err != nil {
				return nil
			}
		case <-ping.C:
			if err := write(conn, websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func write(conn *websocket.Conn, kind int, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(kind, b)
}
