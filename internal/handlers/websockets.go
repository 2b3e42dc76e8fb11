package handlers

import (
	"net/http"
	"strconv"
	"time"

	"controlling_roaster/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingEvery   = wsPongWait * 9 / 10
	wsMaxInbound  = 4 << 10
	wsDefaultTick = time.Second
	wsMaxTick     = 10 * time.Second

	wsTypeState = "state"
)

// wsMessage is one pushed frame of the live stream.
type wsMessage struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// The stream is read-only, any origin may subscribe.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// stateStream pushes roaster snapshots over one websocket.
type stateStream struct {
	conn     *websocket.Conn
	log      *logger.Logger
	snapshot func() any
	every    time.Duration
}

// @Summary      Live roaster state
// @Description  Upgrades to a WebSocket and pushes {"type":"state","data":RoasterState} every interval (?interval=500ms or ?interval_ms=500, up to 10s).
// @Tags         roaster
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	every := streamInterval(c.Query("interval"), c.Query("interval_ms"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger().Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	s := &stateStream{
		conn:     conn,
		log:      h.logger(),
		snapshot: func() any { return h.services.Roaster.State() },
		every:    every,
	}
	s.serve(c.Request.Context().Done())
}

// serve pushes until the client goes away, a write fails or stop closes.
func (s *stateStream) serve(stop <-chan struct{}) {
	s.conn.SetReadLimit(wsMaxInbound)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	gone := make(chan struct{})
	go s.drain(gone)

	push := time.NewTicker(s.every)
	defer push.Stop()
	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()

	if err := s.push(); err != nil {
		s.log.Infow("ws_write_failed_initial", "err", err)
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-stop:
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case <-push.C:
			if err := s.push(); err != nil {
				s.log.Infow("ws_write_failed", "err", err)
				return
			}
		}
	}
}

// drain consumes client frames so pongs and the close handshake are seen.
func (s *stateStream) drain(gone chan<- struct{}) {
	defer close(gone)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.log.Debugw("ws_read_closed", "err", err)
			return
		}
	}
}

func (s *stateStream) push() error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(wsMessage{Type: wsTypeState, Data: s.snapshot()})
}

// streamInterval reads ?interval=2s, then ?interval_ms=2000. Anything
// missing, non-positive or above wsMaxTick falls back to one second.
func streamInterval(dur, ms string) time.Duration {
	if d, err := time.ParseDuration(dur); err == nil && d > 0 && d <= wsMaxTick {
		return d
	}
	if v, err := strconv.Atoi(ms); err == nil && v > 0 {
		if d := time.Duration(v) * time.Millisecond; d <= wsMaxTick {
			return d
		}
	}
	return wsDefaultTick
}
