package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BookingUpdatesChannel carries every realtime booking event so other
// instances and workers can fan them out.
const BookingUpdatesChannel = "booking:updates"

// InitRedis parses url and verifies the connection.
func InitRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisPublisher publishes booking events on BookingUpdatesChannel.
type RedisPublisher struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, now: time.Now}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) PublishToUser(ctx context.Context, userID string, msg WebSocketMessage) error {
	payload, err := json.Marshal(map[string]interface{}{
		"userId":    userID,
		"type":      msg.Type,
		"data":      msg.Data,
		"timestamp": p.now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, BookingUpdatesChannel, payload).Err()
}

// RelayToHub subscribes to BookingUpdatesChannel and forwards each event to
// the local websocket hub, so a user connected to another instance still
// receives it. It returns when ctx is done.
func RelayToHub(ctx context.Context, client *redis.Client, hub *Hub) {
	sub := client.Subscribe(ctx, BookingUpdatesChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var event struct {
				UserID string          `json:"userId"`
				Type   string          `json:"type"`
				Data   json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(m.Payload), &event); err != nil || event.UserID == "" {
				continue
			}
			data, err := json.Marshal(WebSocketMessage{Type: event.Type, Data: event.Data})
			if err != nil {
				continue
			}
			hub.BroadcastToUser(event.UserID, data)
		}
	}
}
