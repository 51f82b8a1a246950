package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// events streams the session's event records over a websocket until the
// session ends or the client goes away.
func (h *handlers) events(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	records, cancel, err := h.orch.Observe(sid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer cancel()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("ws upgrade")
		return
	}
	defer ws.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rec, ok := <-records:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(time.Second))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := ws.WriteJSON(rec); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Str("session", string(sid)).Msg("event stream write")
				return
			}
		case <-gone:
			return
		}
	}
}
