package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth middleware has already validated the staff token.
		return true
	},
}

// ServeWS upgrades the request and attaches the client to the feed hub.
// Mount behind the staff auth middleware.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 32),
	}
	h.register <- client

	go client.writePump(h)
	go client.readPump(h)
}
