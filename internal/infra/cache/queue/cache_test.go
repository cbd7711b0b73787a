package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlinehq/booking-service/internal/domain"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCache(client, time.Hour), mr
}

func TestCache_PutGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	next := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
	stats := &domain.QueueStats{
		ShopID:               1,
		WaitingCount:         4,
		EstimatedWaitMinutes: 45,
		NextAvailableSlot:    &next,
		LastUpdatedAt:        time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, cache.Put(ctx, stats))

	got, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, stats.WaitingCount, got.WaitingCount)
	assert.Equal(t, stats.EstimatedWaitMinutes, got.EstimatedWaitMinutes)
	require.NotNil(t, got.NextAvailableSlot)
	assert.True(t, next.Equal(*got.NextAvailableSlot))
	assert.True(t, stats.LastUpdatedAt.Equal(got.LastUpdatedAt))
}

func TestCache_PutOverwritesStaleNextSlot(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	next := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
	withSlot := &domain.QueueStats{ShopID: 1, WaitingCount: 2, NextAvailableSlot: &next, LastUpdatedAt: next}
	require.NoError(t, cache.Put(ctx, withSlot))

	// Снапшот без слота не должен оставить старое поле nextSlot в хэше
	withoutSlot := &domain.QueueStats{ShopID: 1, WaitingCount: 3, LastUpdatedAt: next}
	require.NoError(t, cache.Put(ctx, withoutSlot))

	got, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 3, got.WaitingCount)
	assert.Nil(t, got.NextAvailableSlot)
}

func TestCache_GetMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	got, hit, err := cache.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)
}

func TestCache_TTLExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, &domain.QueueStats{ShopID: 1, WaitingCount: 1, LastUpdatedAt: time.Now()}))

	mr.FastForward(2 * time.Hour)

	_, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, &domain.QueueStats{ShopID: 1, WaitingCount: 1, LastUpdatedAt: time.Now()}))
	require.NoError(t, cache.Invalidate(ctx, 1))

	_, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_NilClientIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, &domain.QueueStats{ShopID: 1}))
	_, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, cache.Invalidate(ctx, 1))
}
