package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cbitforge/forge/internal/compose"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser origins are already filtered by the CORS layer; the API
	// key check below is the real gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsError struct {
	Error string `json:"error"`
}

// handleChatWS serves a persistent chat channel. Each client message is
// one ChatRequest; each reply is one ChatResponse. Errors are reported
// in-band so the connection survives bad requests.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	a, err := s.authApp(r)
	if err != nil {
		writeJSONStatus(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req compose.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[server] websocket read: %v", err)
			}
			return
		}

		resp, _, err := s.answer(r, a, &req)
		if err != nil {
			if werr := conn.WriteJSON(wsError{Error: err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}
