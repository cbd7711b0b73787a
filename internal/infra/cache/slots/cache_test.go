package slots

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/pkg/ptr"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCache(client, 5*time.Minute), mr
}

func sampleSlots() []domain.TimeSlot {
	start := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	return []domain.TimeSlot{
		{StartTime: start, EndTime: start.Add(30 * time.Minute), Available: true},
		{StartTime: start.Add(15 * time.Minute), EndTime: start.Add(45 * time.Minute), Available: false},
	}
}

func TestKey_SortsServiceIDs(t *testing.T) {
	a := Key(1, "2026-09-10", []int64{30, 10, 20}, nil)
	b := Key(1, "2026-09-10", []int64{10, 20, 30}, nil)
	assert.Equal(t, b, a)
	assert.Equal(t, "slots:1:2026-09-10:10,20,30:any", a)

	withStaff := Key(1, "2026-09-10", []int64{10}, ptr.Ptr(int64(7)))
	assert.Equal(t, "slots:1:2026-09-10:10:7", withStaff)
}

func TestCache_PutGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key := Key(1, "2026-09-10", []int64{10}, nil)
	slots := sampleSlots()

	require.NoError(t, cache.Put(ctx, key, slots))

	got, hit, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, slots, got)
}

func TestCache_GetMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	got, hit, err := cache.Get(context.Background(), Key(1, "2026-09-10", nil, nil))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)
}

func TestCache_TTLExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	key := Key(1, "2026-09-10", []int64{10}, nil)
	require.NoError(t, cache.Put(ctx, key, sampleSlots()))

	mr.FastForward(6 * time.Minute)

	_, hit, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_InvalidateByDate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	day1 := Key(1, "2026-09-10", []int64{10}, nil)
	day1Staff := Key(1, "2026-09-10", []int64{10}, ptr.Ptr(int64(7)))
	day2 := Key(1, "2026-09-11", []int64{10}, nil)
	otherShop := Key(2, "2026-09-10", []int64{10}, nil)

	for _, key := range []string{day1, day1Staff, day2, otherShop} {
		require.NoError(t, cache.Put(ctx, key, sampleSlots()))
	}

	require.NoError(t, cache.Invalidate(ctx, 1, ptr.Ptr("2026-09-10")))

	_, hit, _ := cache.Get(ctx, day1)
	assert.False(t, hit, "day1 key must be invalidated")
	_, hit, _ = cache.Get(ctx, day1Staff)
	assert.False(t, hit, "staff variant of the same day must be invalidated")
	_, hit, _ = cache.Get(ctx, day2)
	assert.True(t, hit, "other date must survive")
	_, hit, _ = cache.Get(ctx, otherShop)
	assert.True(t, hit, "other shop must survive")
}

func TestCache_InvalidateWholeShop(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	day1 := Key(1, "2026-09-10", []int64{10}, nil)
	day2 := Key(1, "2026-09-11", []int64{10}, nil)
	otherShop := Key(2, "2026-09-10", []int64{10}, nil)

	for _, key := range []string{day1, day2, otherShop} {
		require.NoError(t, cache.Put(ctx, key, sampleSlots()))
	}

	require.NoError(t, cache.Invalidate(ctx, 1, nil))

	_, hit, _ := cache.Get(ctx, day1)
	assert.False(t, hit)
	_, hit, _ = cache.Get(ctx, day2)
	assert.False(t, hit)
	_, hit, _ = cache.Get(ctx, otherShop)
	assert.True(t, hit)
}

func TestCache_NilClientIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "slots:1:2026-09-10::any", sampleSlots()))
	_, hit, err := cache.Get(ctx, "slots:1:2026-09-10::any")
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, cache.Invalidate(ctx, 1, nil))
}
