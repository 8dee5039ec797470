package redisclient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RoomBus fans signaling frames out across server instances. Each video room
// maps to one Redis channel; every instance with a local participant subscribes
// to that channel and re-delivers frames to its own websocket clients.
type RoomBus interface {
	PublishFrame(ctx context.Context, roomID uuid.UUID, frame []byte) error
	SubscribeRoom(ctx context.Context, roomID uuid.UUID) (<-chan []byte, func(), error)
}

type redisRoomBus struct {
	client *redis.Client
}

func NewRedisRoomBus(client *redis.Client) RoomBus {
	return &redisRoomBus{client: client}
}

func roomChannel(roomID uuid.UUID) string {
	return fmt.Sprintf("signal:room:%s", roomID.String())
}

func (b *redisRoomBus) PublishFrame(ctx context.Context, roomID uuid.UUID, frame []byte) error {
	if err := b.client.Publish(ctx, roomChannel(roomID), frame).Err(); err != nil {
		return fmt.Errorf("publish room frame: %w", err)
	}
	return nil
}

// SubscribeRoom returns a channel of raw frames for the room and a cancel
// function that must be called when the last local participant leaves.
func (b *redisRoomBus) SubscribeRoom(ctx context.Context, roomID uuid.UUID) (<-chan []byte, func(), error) {
	sub := b.client.Subscribe(ctx, roomChannel(roomID))

	// Force the subscription to be established before we hand the channel out.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe room: %w", err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			default:
				// Local consumer is not keeping up; drop rather than block the bus.
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}
