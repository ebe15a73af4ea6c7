/**
 * @description
 * This package broadcasts the outcome of every relayed trade so other services
 * (dashboards, position trackers) can follow fills without polling the venue.
 *
 * Key features:
 * - Redis Publishing: Trade outcomes are JSON-encoded and published to a single
 *   Redis channel.
 * - Best Effort: Publishing runs in the request path, bounded by a 2 second timeout.
 *   A failed publish never fails a trade; the error is returned to the caller to log.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: The Redis client library.
 */

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTradeChannel is the Redis channel trade events are published to.
const DefaultTradeChannel = "relay:trades"

// publishTimeout bounds a single publish so a slow Redis cannot hold a request open.
const publishTimeout = 2 * time.Second

// TradeEvent is the broadcast record of one trade request.
type TradeEvent struct {
	RequestID   string  `json:"request_id,omitempty"`
	TokenID     string  `json:"token_id"`
	Side        string  `json:"side"`
	OrderType   string  `json:"order_type"`
	Price       float64 `json:"price"`
	TickSize    string  `json:"tick_size"`
	Size        string  `json:"size"`
	Success     bool    `json:"success"`
	OrderID     string  `json:"order_id,omitempty"`
	Attempts    int     `json:"attempts,omitempty"`
	Error       string  `json:"error,omitempty"`
	Timestamp   int64   `json:"timestamp"` // Unix milliseconds
	PassThrough bool    `json:"pass_through,omitempty"`
}

// Publisher broadcasts trade events.
type Publisher interface {
	PublishTrade(ctx context.Context, event TradeEvent) error
	Close() error
}

// NopPublisher drops every event. It is used when no Redis URL is configured.
type NopPublisher struct{}

func (NopPublisher) PublishTrade(context.Context, TradeEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// RedisPublisher publishes trade events to a Redis channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

/**
 * @description
 * NewRedisPublisher connects to Redis at redisURL and verifies the connection.
 *
 * @param redisURL A redis:// or rediss:// URL.
 * @param channel The channel to publish to. Empty means DefaultTradeChannel.
 * @returns The publisher, or an error if the URL is invalid or Redis is unreachable.
 */
func NewRedisPublisher(ctx context.Context, redisURL, channel string, logger *slog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if channel == "" {
		channel = DefaultTradeChannel
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisPublisherFromClient(client, channel, logger), nil
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(client *redis.Client, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultTradeChannel
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Channel returns the channel events are published to.
func (p *RedisPublisher) Channel() string { return p.channel }

// PublishTrade JSON-encodes event and publishes it.
func (p *RedisPublisher) PublishTrade(ctx context.Context, event TradeEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal trade event: %w", err)
	}

	// The request context may already be done once the response is written.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.client.Publish(pubCtx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish trade event: %w", err)
	}

	p.logger.Debug("published trade event", "channel", p.channel, "token_id", event.TokenID, "success", event.Success)
	return nil
}

// Close closes the underlying Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
