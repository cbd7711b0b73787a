package get_available_slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/internal/integrations/shopservice"
	"github.com/overlinehq/booking-service/pkg/ptr"
	"github.com/overlinehq/booking-service/pkg/types"
)

type fakeBookingRepo struct {
	bookings []*domain.Booking
	err      error
	calls    int
}

func (f *fakeBookingRepo) GetActiveByShopAndWindow(
	_ context.Context, _ int64, _, _ time.Time, _ *int64, _ *int64,
) ([]*domain.Booking, error) {
	f.calls++
	return f.bookings, f.err
}

type fakeScheduleRepo struct {
	day domain.DaySchedule
	err error
}

func (f *fakeScheduleRepo) GetForDate(_ context.Context, _ int64, _ time.Time) (domain.DaySchedule, error) {
	return f.day, f.err
}

type fakeShopClient struct {
	shop     *shopservice.Shop
	services []*shopservice.Service
	shopErr  error
	svcErr   error
}

func (f *fakeShopClient) GetShop(_ context.Context, _ int64) (*shopservice.Shop, error) {
	return f.shop, f.shopErr
}

func (f *fakeShopClient) GetServices(_ context.Context, _ int64, _ []int64) ([]*shopservice.Service, error) {
	return f.services, f.svcErr
}

type fakeSlotCache struct {
	store  map[string][]domain.TimeSlot
	getErr error
	putErr error
}

func newFakeSlotCache() *fakeSlotCache {
	return &fakeSlotCache{store: make(map[string][]domain.TimeSlot)}
}

func (f *fakeSlotCache) Get(_ context.Context, key string) ([]domain.TimeSlot, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	slots, ok := f.store[key]
	return slots, ok, nil
}

func (f *fakeSlotCache) Put(_ context.Context, key string, slots []domain.TimeSlot) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.store[key] = slots
	return nil
}

type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now() time.Time {
	return p.now
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func mustTS(t *testing.T, s string) types.TimeString {
	t.Helper()
	ts, err := types.NewTimeStringFromString(s)
	require.NoError(t, err)
	return ts
}

func testShop() *shopservice.Shop {
	return &shopservice.Shop{
		ID:                    1,
		Name:                  "Main Street Barbershop",
		Timezone:              "UTC",
		Currency:              "EUR",
		MaxConcurrentBookings: 2,
		AutoAcceptBookings:    true,
	}
}

func testDay(t *testing.T) domain.DaySchedule {
	return domain.DaySchedule{
		OpenTime:  mustTS(t, "10:00"),
		CloseTime: mustTS(t, "18:00"),
		Breaks: []domain.BreakWindow{
			{Start: mustTS(t, "14:00"), End: mustTS(t, "15:00")},
		},
	}
}

func newTestUseCase(
	repo *fakeBookingRepo,
	sched *fakeScheduleRepo,
	client *fakeShopClient,
	cache *fakeSlotCache,
	now time.Time,
) *UseCase {
	uc := NewUseCase(repo, sched, client, cache, nopLogger{})
	uc.timeProvider = &fixedTimeProvider{now: now}
	return uc
}

func activeBooking(start, end time.Time) *domain.Booking {
	return &domain.Booking{
		ShopID:    1,
		StartTime: start,
		EndTime:   end,
		Status:    domain.StatusConfirmed,
	}
}

func TestExecute_GeneratesSlotsAroundBreak(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	uc := newTestUseCase(
		&fakeBookingRepo{},
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shop: testShop()},
		newFakeSlotCache(),
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		ShopID:          1,
		Date:            date,
		DurationMinutes: ptr.Ptr(30),
	})
	require.NoError(t, err)

	// 10:00..13:30 before the break, 15:00..17:30 after it
	require.Len(t, resp.Slots, 26)
	assert.Equal(t, time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC), resp.Slots[0].StartTime)
	assert.Equal(t, time.Date(2026, 9, 10, 13, 30, 0, 0, time.UTC), resp.Slots[14].StartTime)
	assert.Equal(t, time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC), resp.Slots[15].StartTime)
	assert.Equal(t, time.Date(2026, 9, 10, 17, 30, 0, 0, time.UTC), resp.Slots[25].StartTime)

	for _, slot := range resp.Slots {
		assert.True(t, slot.Available)
		assert.Equal(t, slot.StartTime.Add(30*time.Minute), slot.EndTime)
	}
}

func TestExecute_SameDayLeadTimeFiltersSlots(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 10, 11, 50, 0, 0, time.UTC)

	uc := newTestUseCase(
		&fakeBookingRepo{},
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shop: testShop()},
		newFakeSlotCache(),
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		ShopID:          1,
		Date:            date,
		DurationMinutes: ptr.Ptr(30),
	})
	require.NoError(t, err)

	// Slots before now+30m (12:20) are gone, the first candidate is 12:30
	require.NotEmpty(t, resp.Slots)
	assert.Equal(t, time.Date(2026, 9, 10, 12, 30, 0, 0, time.UTC), resp.Slots[0].StartTime)
}

func TestExecute_PastDateReturnsNoSlots(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	uc := newTestUseCase(
		&fakeBookingRepo{},
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shop: testShop()},
		newFakeSlotCache(),
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		ShopID:          1,
		Date:            date,
		DurationMinutes: ptr.Ptr(30),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func TestExecute_CapacityMarksSlotsUnavailable(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// Two concurrent bookings saturate a shop with capacity 2
	repo := &fakeBookingRepo{bookings: []*domain.Booking{
		activeBooking(
			time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 10, 10, 30, 0, 0, time.UTC),
		),
		activeBooking(
			time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 10, 10, 30, 0, 0, time.UTC),
		),
	}}

	uc := newTestUseCase(
		repo,
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shop: testShop()},
		newFakeSlotCache(),
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		ShopID:          1,
		Date:            date,
		DurationMinutes: ptr.Ptr(30),
	})
	require.NoError(t, err)

	bySlot := make(map[string]bool)
	for _, slot := range resp.Slots {
		bySlot[slot.StartTime.Format("15:04")] = slot.Available
	}

	assert.False(t, bySlot["10:00"])
	// 10:15 overlaps the 10:00-10:30 bookings
	assert.False(t, bySlot["10:15"])
	// Exact boundary does not overlap
	assert.True(t, bySlot["10:30"])
}

func TestExecute_StaffRequestIsExclusive(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	staffID := ptr.Ptr(int64(7))

	// A single booking blocks the staff member even though shop capacity is 2
	booking := activeBooking(
		time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 10, 11, 30, 0, 0, time.UTC),
	)
	booking.StaffID = staffID

	uc := newTestUseCase(
		&fakeBookingRepo{bookings: []*domain.Booking{booking}},
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shop: testShop()},
		newFakeSlotCache(),
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		ShopID:          1,
		Date:            date,
		DurationMinutes: ptr.Ptr(30),
		StaffID:         staffID,
	})
	require.NoError(t, err)

	bySlot := make(map[string]bool)
	for _, slot := range resp.Slots {
		bySlot[slot.StartTime.Format("15:04")] = slot.Available
		assert.Equal(t, staffID, slot.StaffID)
	}

	assert.False(t, bySlot["11:00"])
	assert.False(t, bySlot["11:15"])
	assert.True(t, bySlot["11:30"])
}

func TestExecute_ServiceDurationsAreSummed(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeShopClient{
		shop: testShop(),
		services: []*shopservice.Service{
			{ID: 1, ShopID: 1, DurationMinutes: 30, IsActive: true},
			{ID: 2, ShopID: 1, DurationMinutes: 45, IsActive: true},
		},
	}

	uc := newTestUseCase(
		&fakeBookingRepo{},
		&fakeScheduleRepo{day: testDay(t)},
		client,
		newFakeSlotCache(),
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		ShopID:     1,
		Date:       date,
		ServiceIDs: []int64{1, 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 75, resp.TotalDurationMinutes)
	// 75 minutes must fit before the break: the last pre-break start is 12:45
	require.NotEmpty(t, resp.Slots)
	for _, slot := range resp.Slots {
		assert.Equal(t, slot.StartTime.Add(75*time.Minute), slot.EndTime)
	}
}

func TestExecute_CacheHitSkipsComputation(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	repo := &fakeBookingRepo{}
	cache := newFakeSlotCache()
	uc := newTestUseCase(
		repo,
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shop: testShop()},
		cache,
		now,
	)

	req := &Request{ShopID: 1, Date: date, DurationMinutes: ptr.Ptr(30)}

	first, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, repo.calls)

	second, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, repo.calls, "cache hit must not touch the ledger")
	assert.Equal(t, first.Slots, second.Slots)
}

func TestExecute_CacheFailureFallsBackToComputation(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	cache := newFakeSlotCache()
	cache.getErr = errors.New("redis: connection refused")
	cache.putErr = errors.New("redis: connection refused")

	uc := newTestUseCase(
		&fakeBookingRepo{},
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shop: testShop()},
		cache,
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		ShopID:          1,
		Date:            date,
		DurationMinutes: ptr.Ptr(30),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Slots, 26)
}

func TestExecute_ClosedDayReturnsNoSlots(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	uc := newTestUseCase(
		&fakeBookingRepo{},
		&fakeScheduleRepo{day: domain.DaySchedule{IsClosed: true}},
		&fakeShopClient{shop: testShop()},
		newFakeSlotCache(),
		now,
	)

	resp, err := uc.Execute(context.Background(), &Request{
		ShopID:          1,
		Date:            date,
		DurationMinutes: ptr.Ptr(30),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func TestExecute_ShopNotFound(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	uc := newTestUseCase(
		&fakeBookingRepo{},
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shopErr: shopservice.ErrShopNotFound},
		newFakeSlotCache(),
		now,
	)

	_, err := uc.Execute(context.Background(), &Request{
		ShopID:          42,
		Date:            time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		DurationMinutes: ptr.Ptr(30),
	})
	assert.ErrorIs(t, err, ErrShopNotFound)
}

func TestExecute_ServiceNotFound(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	uc := newTestUseCase(
		&fakeBookingRepo{},
		&fakeScheduleRepo{day: testDay(t)},
		&fakeShopClient{shop: testShop(), svcErr: shopservice.ErrServiceNotFound},
		newFakeSlotCache(),
		now,
	)

	_, err := uc.Execute(context.Background(), &Request{
		ShopID:     1,
		Date:       time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		ServiceIDs: []int64{99},
	})
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestValidateRequest(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{
			name:    "missing shop",
			req:     &Request{Date: date, DurationMinutes: ptr.Ptr(30)},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "missing date",
			req:     &Request{ShopID: 1, DurationMinutes: ptr.Ptr(30)},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "no services and no duration",
			req:     &Request{ShopID: 1, Date: date},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "duration below minimum",
			req:     &Request{ShopID: 1, Date: date, DurationMinutes: ptr.Ptr(3)},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "non-positive staff",
			req:     &Request{ShopID: 1, Date: date, DurationMinutes: ptr.Ptr(30), StaffID: ptr.Ptr(int64(0))},
			wantErr: ErrInvalidInput,
		},
		{
			name: "valid with services",
			req:  &Request{ShopID: 1, Date: date, ServiceIDs: []int64{1, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
