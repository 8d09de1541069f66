package echoserver

import (
	"net/http"

	"github.com/coder/websocket"

	"github.com/linanwx/echochat/logger"
)

// handleWebSocket serves the push channel over a WebSocket: one text frame
// per data line, normal closure when the stream is complete.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	p, err := parseChat(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	emit := func(line string) error {
		return conn.Write(ctx, websocket.MessageText, []byte(line))
	}
	if err := s.stream(ctx, p, emit); err != nil {
		logger.Debug("websocket stream ended early", "err", err)
		conn.Close(websocket.StatusInternalError, "stream failed")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
