package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/infrastructure/config"
)

// RedisNotifier publishes engine events onto per-recipient redis channels.
// The downstream fan-out service (push/email/SMS) subscribes there; from
// the engine's side delivery is fire and forget.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

// envelope is the wire shape on the notification channel.
type envelope struct {
	Recipient uuid.UUID              `json:"recipient"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	EmittedAt time.Time              `json:"emitted_at"`
}

// NewRedisNotifier connects to redis and verifies the connection.
func NewRedisNotifier(cfg *config.RedisConfig, logger *zap.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis notifier initialized", zap.String("addr", cfg.Addr))
	return &RedisNotifier{client: client, logger: logger}, nil
}

// Notify publishes one event. Failures are returned for logging but carry
// no consistency obligation; callers never roll back on them.
func (n *RedisNotifier) Notify(ctx context.Context, recipient uuid.UUID, eventType string, payload map[string]interface{}) error {
	data, err := json.Marshal(envelope{
		Recipient: recipient,
		EventType: eventType,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	channel := ChannelFor(recipient)
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// HealthCheck verifies connectivity.
func (n *RedisNotifier) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return n.client.Ping(ctx).Err()
}

// Close releases the redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// ChannelFor returns the pub/sub channel name for a recipient.
func ChannelFor(recipient uuid.UUID) string {
	return "notify:" + recipient.String()
}
