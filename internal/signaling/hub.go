package signaling

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/vitalink/telemed-backend/internal/redis"
)

// Client is one websocket participant in a room.
type Client struct {
	ID   string
	Send chan []byte
}

type room struct {
	clients   map[*Client]struct{}
	cancelSub func()
}

// Hub tracks room membership and relays frames. A frame received from one
// member is delivered to every other member of the same room, locally and,
// when a RoomBus is configured, on every other instance as well.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[uuid.UUID]*room
	bus        redisclient.RoomBus
	instanceID string
	log        zerolog.Logger
}

func NewHub(bus redisclient.RoomBus, log zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]*room),
		bus:        bus,
		instanceID: uuid.NewString(),
		log:        log,
	}
}

// busEnvelope wraps a frame on the wire between instances so an instance can
// skip frames it published itself.
type busEnvelope struct {
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}

// Join registers the client in the room. The first local member triggers the
// cross-instance subscription.
func (h *Hub) Join(ctx context.Context, roomID uuid.UUID, client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[roomID]
	if !ok {
		rm = &room{clients: make(map[*Client]struct{})}
		h.rooms[roomID] = rm

		if h.bus != nil {
			frames, cancel, err := h.bus.SubscribeRoom(ctx, roomID)
			if err != nil {
				delete(h.rooms, roomID)
				return err
			}
			rm.cancelSub = cancel
			go h.pumpBus(roomID, frames)
		}
	}

	rm.clients[client] = struct{}{}
	return nil
}

// Leave unregisters the client and closes its send channel. The last local
// member tears the cross-instance subscription down.
func (h *Hub) Leave(roomID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := rm.clients[client]; !ok {
		return
	}

	delete(rm.clients, client)
	close(client.Send)

	if len(rm.clients) == 0 {
		if rm.cancelSub != nil {
			rm.cancelSub()
		}
		delete(h.rooms, roomID)
	}
}

// Relay forwards a frame from sender to every other member of the room.
func (h *Hub) Relay(ctx context.Context, roomID uuid.UUID, sender *Client, frame []byte) {
	h.deliverLocal(roomID, sender, frame)

	if h.bus == nil {
		return
	}
	env, err := json.Marshal(busEnvelope{Origin: h.instanceID, Frame: frame})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal signaling envelope")
		return
	}
	if err := h.bus.PublishFrame(ctx, roomID, env); err != nil {
		h.log.Error().Err(err).Stringer("room_id", roomID).Msg("publish signaling frame")
	}
}

func (h *Hub) deliverLocal(roomID uuid.UUID, sender *Client, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rm, ok := h.rooms[roomID]
	if !ok {
		return
	}

	for client := range rm.clients {
		if client == sender {
			continue
		}
		select {
		case client.Send <- frame:
		default:
			// Client buffer full; skip to avoid blocking the relay.
		}
	}
}

func (h *Hub) pumpBus(roomID uuid.UUID, frames <-chan []byte) {
	for raw := range frames {
		var env busEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.Origin == h.instanceID {
			continue
		}
		h.deliverLocal(roomID, nil, env.Frame)
	}
}

// RoomSize returns the number of local members in a room.
func (h *Hub) RoomSize(roomID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if rm, ok := h.rooms[roomID]; ok {
		return len(rm.clients)
	}
	return 0
}
