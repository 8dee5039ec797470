package signaling

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vitalink/telemed-backend/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// RoomWSHandler validates the caller against the room's appointment, upgrades
// the connection and wires the client into the relay hub.
func RoomWSHandler(rooms *RoomService, hub *Hub, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
		if err != nil {
			http.Error(w, "roomID must be a valid UUID", http.StatusBadRequest)
			return
		}

		ident, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if _, err := rooms.ValidateRoom(r.Context(), ident, roomID); err != nil {
			switch {
			case errors.Is(err, ErrRoomNotFound):
				http.Error(w, "room not found", http.StatusNotFound)
			case errors.Is(err, ErrNotParticipant):
				http.Error(w, "not a participant", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := &Client{
			ID:   ident.UserID.String(),
			Send: make(chan []byte, 64),
		}

		if err := hub.Join(r.Context(), roomID, client); err != nil {
			log.Error().Err(err).Stringer("room_id", roomID).Msg("join signaling room")
			_ = ws.Close()
			return
		}

		go writePump(client, ws)
		readPump(r, hub, roomID, client, ws)
	}
}

func readPump(r *http.Request, hub *Hub, roomID uuid.UUID, client *Client, ws *websocket.Conn) {
	defer func() {
		hub.Leave(roomID, client)
		_ = ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}
		// Frames must at least be JSON; content is otherwise opaque to the relay.
		if !json.Valid(message) {
			continue
		}
		hub.Relay(r.Context(), roomID, client, message)
	}
}

func writePump(client *Client, ws *websocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
