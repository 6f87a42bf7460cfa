package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel change events are published on.
const DefaultChannel = "taskpilot:changes"

// RedisConfig configures the Redis publisher.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	// Origin identifies this process. Events it published itself are not
	// handed back by Subscribe.
	Origin string
}

// RedisPublisher publishes change events on a Redis pub/sub channel so that
// other processes holding cached views can invalidate them.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

func NewRedisPublisher(cfg RedisConfig, logger *zap.Logger) *RedisPublisher {
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &RedisPublisher{
		client:  client,
		channel: channel,
		origin:  cfg.Origin,
		logger:  logger.Named("events.redis"),
	}
}

// Ping checks Redis connectivity.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Publish sends the event. Failures are logged; a lost notification only
// delays a refetch.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	if event.Origin == "" {
		event.Origin = p.origin
	}
	payload, err := Encode(event)
	if err != nil {
		p.logger.Warn("encode change event", zap.Error(err))
		return
	}

	if err := p.client.Publish(context.WithoutCancel(ctx), p.channel, payload).Err(); err != nil {
		p.logger.Warn("publish change event",
			zap.String("kind", string(event.Kind)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
	}
}

// Subscribe forwards events received on the channel to ch until ctx ends.
func (p *RedisPublisher) Subscribe(ctx context.Context, ch chan<- Event) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			event, err := Decode([]byte(msg.Payload))
			if err != nil {
				p.logger.Warn("decode change event", zap.Error(err))
				continue
			}
			if p.origin != "" && event.Origin == p.origin {
				continue
			}
			select {
			case ch <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Encode serializes an event for transport.
func Encode(event Event) ([]byte, error) {
	return json.Marshal(event)
}

// Decode parses an event produced by Encode.
func Decode(payload []byte) (Event, error) {
	var event Event
	err := json.Unmarshal(payload, &event)
	return event, err
}
