package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/conditional"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	redisstore "github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/store/redis"
)

// Message is one rendered update for a channel.
type Message struct {
	ChannelID  string              `json:"channel_id"`
	ResourceID domain.ResourceID   `json:"resource_id"`
	Content    conditional.Content `json:"content"`
	RenderedAt time.Time           `json:"rendered_at"`
}

// Publisher delivers messages to the chat front end.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// RedisPublisher publishes JSON messages on ddc:publish:<channel>.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := p.client.Publish(ctx, redisstore.PublishChannel(msg.ChannelID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", msg.ChannelID, err)
	}
	return nil
}

// LogPublisher writes messages to the log. Used when Redis is disabled.
type LogPublisher struct {
	log logger.Logger
}

func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	status := ""
	if len(msg.Content.Fields) > 0 {
		status = msg.Content.Fields[0].Value
	}
	p.log.Info("status update",
		logger.String("channel_id", msg.ChannelID),
		logger.Resource(string(msg.ResourceID)),
		logger.String("title", msg.Content.Title),
		logger.String("status", status))
	return nil
}
