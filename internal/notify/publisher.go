package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const reportEventsQueueKey = "report_events"

// ReportEvent - событие о новой жалобе для сервиса агрегации
type ReportEvent struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	Severity  string    `json:"severity"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// EventPublisher - интерфейс для публикации событий о жалобах
type EventPublisher interface {
	Publish(ctx context.Context, event ReportEvent) error
}

// RedisEventPublisher - реализация EventPublisher, использующая Redis
type RedisEventPublisher struct {
	redisClient *redis.Client
}

// NewRedisEventPublisher создает новый RedisEventPublisher
func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{
		redisClient: client,
	}
}

// Publish публикует событие о жалобе в очередь Redis
func (p *RedisEventPublisher) Publish(ctx context.Context, event ReportEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal report event: %w", err)
	}

	// LPUSH добавляет событие в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, reportEventsQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish report event to Redis: %w", err)
	}
	return nil
}
