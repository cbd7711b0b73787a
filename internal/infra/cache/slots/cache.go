// Package slots короткоживущий кэш результатов генерации слотов.
//
// Кэш - только оптимизация: промах или ошибка Redis прозрачно приводят к
// прямому пересчету слотов, система остается корректной (но медленнее) и с
// полностью выключенным кэшем.
package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/overlinehq/booking-service/internal/domain"
)

// Cache кэш слотов поверх Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache создает кэш слотов с заданным TTL
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// Key строит ключ кэша по (магазин, дата, набор услуг, мастер).
// Набор услуг сортируется, чтобы порядок в запросе не плодил дубликаты.
func Key(shopID int64, date string, serviceIDs []int64, staffID *int64) string {
	sorted := make([]int64, len(serviceIDs))
	copy(sorted, serviceIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	ids := make([]string, len(sorted))
	for i, id := range sorted {
		ids[i] = strconv.FormatInt(id, 10)
	}

	staff := "any"
	if staffID != nil {
		staff = strconv.FormatInt(*staffID, 10)
	}

	return fmt.Sprintf("slots:%d:%s:%s:%s", shopID, date, strings.Join(ids, ","), staff)
}

// Get возвращает закэшированные слоты по ключу
// Второй результат false означает промах кэша
func (c *Cache) Get(ctx context.Context, key string) ([]domain.TimeSlot, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("slots cache: failed to get %s: %w", key, err)
	}

	var slots []domain.TimeSlot
	if err := json.Unmarshal([]byte(val), &slots); err != nil {
		return nil, false, fmt.Errorf("slots cache: failed to unmarshal %s: %w", key, err)
	}

	return slots, true, nil
}

// Put сохраняет слоты по ключу с TTL кэша
func (c *Cache) Put(ctx context.Context, key string, slots []domain.TimeSlot) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("slots cache: failed to marshal %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("slots cache: failed to set %s: %w", key, err)
	}

	return nil
}

// Invalidate удаляет записи кэша магазина.
// С датой - только записи этой даты; без даты - все записи магазина
// (используется после изменения расписания целиком).
func (c *Cache) Invalidate(ctx context.Context, shopID int64, date *string) error {
	if c.client == nil {
		return nil
	}

	pattern := fmt.Sprintf("slots:%d:*", shopID)
	if date != nil {
		pattern = fmt.Sprintf("slots:%d:%s:*", shopID, *date)
	}

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("slots cache: failed to scan %s: %w", pattern, err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("slots cache: failed to delete keys for shop %d: %w", shopID, err)
	}

	return nil
}
