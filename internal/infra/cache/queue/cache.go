// Package queue кэш снапшотов статистики очереди магазина в Redis хэшах
package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/overlinehq/booking-service/internal/domain"
)

// Cache кэш статистики очереди поверх Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache создает кэш статистики очереди с заданным TTL
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

func key(shopID int64) string {
	return fmt.Sprintf("queue:shop:%d", shopID)
}

// Get возвращает статистику магазина из кэша
// Второй результат false означает промах кэша
func (c *Cache) Get(ctx context.Context, shopID int64) (*domain.QueueStats, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}

	data, err := c.client.HGetAll(ctx, key(shopID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("queue cache: failed to get stats for shop %d: %w", shopID, err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}

	stats := &domain.QueueStats{ShopID: shopID}
	stats.WaitingCount, _ = strconv.Atoi(data["waitingCount"])
	stats.EstimatedWaitMinutes, _ = strconv.Atoi(data["estimatedWaitMinutes"])

	if raw, ok := data["nextSlot"]; ok && raw != "" {
		if next, err := time.Parse(time.RFC3339, raw); err == nil {
			stats.NextAvailableSlot = &next
		}
	}
	if raw, ok := data["lastUpdatedAt"]; ok && raw != "" {
		if updated, err := time.Parse(time.RFC3339, raw); err == nil {
			stats.LastUpdatedAt = updated
		}
	}

	return stats, true, nil
}

// Put сохраняет статистику магазина в кэш
func (c *Cache) Put(ctx context.Context, stats *domain.QueueStats) error {
	if c.client == nil {
		return nil
	}

	k := key(stats.ShopID)
	fields := map[string]interface{}{
		"waitingCount":         strconv.Itoa(stats.WaitingCount),
		"estimatedWaitMinutes": strconv.Itoa(stats.EstimatedWaitMinutes),
		"lastUpdatedAt":        stats.LastUpdatedAt.Format(time.RFC3339),
	}
	if stats.NextAvailableSlot != nil {
		fields["nextSlot"] = stats.NextAvailableSlot.Format(time.RFC3339)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k, fields)
	pipe.Expire(ctx, k, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue cache: failed to set stats for shop %d: %w", stats.ShopID, err)
	}

	return nil
}

// Invalidate удаляет статистику магазина из кэша
func (c *Cache) Invalidate(ctx context.Context, shopID int64) error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, key(shopID)).Err(); err != nil {
		return fmt.Errorf("queue cache: failed to delete stats for shop %d: %w", shopID, err)
	}

	return nil
}
