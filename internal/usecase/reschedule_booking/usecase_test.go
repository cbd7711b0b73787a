package reschedule_booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlinehq/booking-service/internal/domain"
	bookingRepo "github.com/overlinehq/booking-service/internal/infra/storage/booking"
	"github.com/overlinehq/booking-service/internal/integrations/notifyservice"
	"github.com/overlinehq/booking-service/internal/integrations/shopservice"
	"github.com/overlinehq/booking-service/pkg/ptr"
	"github.com/overlinehq/booking-service/pkg/types"
)

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[int64]*domain.Booking

	// afterRead выполняется после GetByID; тест конкурентной отмены меняет
	// через него сохраненный статус между чтением и записью
	afterRead func()
}

func newFakeBookingRepo(bookings ...*domain.Booking) *fakeBookingRepo {
	repo := &fakeBookingRepo{bookings: make(map[int64]*domain.Booking)}
	for _, b := range bookings {
		repo.bookings[b.ID] = b
	}
	return repo
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	copied := *b
	if f.afterRead != nil {
		f.afterRead()
	}
	return &copied, nil
}

func (f *fakeBookingRepo) GetActiveByShopAndWindow(
	_ context.Context, shopID int64, from, to time.Time, staffID *int64, exclude *int64,
) ([]*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Booking
	for _, b := range f.bookings {
		if b.ShopID != shopID || !b.IsActive() || !b.Overlaps(from, to) {
			continue
		}
		if staffID != nil && (b.StaffID == nil || *b.StaffID != *staffID) {
			continue
		}
		if exclude != nil && b.ID == *exclude {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBookingRepo) UpdateSchedule(_ context.Context, id int64, start, end, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if !b.CanBeRescheduled() {
		return bookingRepo.ErrStatusConflict
	}
	b.StartTime = start
	b.EndTime = end
	b.UpdatedAt = now
	return nil
}

type fakeScheduleRepo struct {
	day domain.DaySchedule
}

func (f *fakeScheduleRepo) GetForDate(_ context.Context, _ int64, _ time.Time) (domain.DaySchedule, error) {
	return f.day, nil
}

type fakeShopClient struct {
	shop *shopservice.Shop
	err  error
}

func (f *fakeShopClient) GetShop(_ context.Context, _ int64) (*shopservice.Shop, error) {
	return f.shop, f.err
}

type fakeNotifyClient struct {
	events []notifyservice.BookingEvent
}

func (f *fakeNotifyClient) BookingStatusChanged(_ context.Context, event notifyservice.BookingEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeSlotCache struct {
	invalidated []string
}

func (f *fakeSlotCache) Invalidate(_ context.Context, _ int64, date *string) error {
	key := "all"
	if date != nil {
		key = *date
	}
	f.invalidated = append(f.invalidated, key)
	return nil
}

type fakeQueueRefresher struct {
	shops []int64
}

func (f *fakeQueueRefresher) RefreshShopStats(_ context.Context, shopID int64) error {
	f.shops = append(f.shops, shopID)
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
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

func testBooking(id int64, status domain.BookingStatus, start time.Time) *domain.Booking {
	return &domain.Booking{
		ID:                   id,
		BookingNumber:        "OL-TEST-0001",
		ShopID:               1,
		UserID:               ptr.Ptr(int64(42)),
		StartTime:            start,
		EndTime:              start.Add(30 * time.Minute),
		TotalDurationMinutes: 30,
		Status:               status,
	}
}

type testEnv struct {
	uc     *UseCase
	repo   *fakeBookingRepo
	cache  *fakeSlotCache
	notify *fakeNotifyClient
}

func newTestEnv(t *testing.T, repo *fakeBookingRepo, capacity int, now time.Time) *testEnv {
	env := &testEnv{
		repo:   repo,
		cache:  &fakeSlotCache{},
		notify: &fakeNotifyClient{},
	}
	env.uc = NewUseCase(
		repo,
		&fakeScheduleRepo{day: domain.DaySchedule{
			OpenTime:  mustTS(t, "10:00"),
			CloseTime: mustTS(t, "18:00"),
		}},
		&fakeShopClient{shop: &shopservice.Shop{
			ID:                    1,
			Timezone:              "UTC",
			MaxConcurrentBookings: capacity,
		}},
		env.notify,
		env.cache,
		&fakeQueueRefresher{},
		fakeTxManager{},
		nopLogger{},
	)
	env.uc.timeProvider = &fixedTimeProvider{now: now}
	env.uc.spawn = func(fn func()) { fn() }
	return env
}

func TestExecute_MovesBookingToNewWindow(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	oldStart := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)
	newStart := time.Date(2026, 9, 11, 15, 0, 0, 0, time.UTC)

	repo := newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, oldStart))
	env := newTestEnv(t, repo, 2, now)

	resp, err := env.uc.Execute(context.Background(), &Request{BookingID: 1, NewStartTime: newStart})
	require.NoError(t, err)

	assert.Equal(t, newStart, resp.Booking.StartTime)
	assert.Equal(t, newStart.Add(30*time.Minute), resp.Booking.EndTime)

	stored, _ := repo.GetByID(context.Background(), 1)
	assert.Equal(t, newStart, stored.StartTime)

	// Both dates are invalidated
	assert.Equal(t, []string{"2026-09-10", "2026-09-11"}, env.cache.invalidated)
	require.Len(t, env.notify.events, 1)
}

func TestExecute_SameDayInvalidatesOnce(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	oldStart := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)
	newStart := time.Date(2026, 9, 10, 16, 0, 0, 0, time.UTC)

	repo := newFakeBookingRepo(testBooking(1, domain.StatusPending, oldStart))
	env := newTestEnv(t, repo, 2, now)

	_, err := env.uc.Execute(context.Background(), &Request{BookingID: 1, NewStartTime: newStart})
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-09-10"}, env.cache.invalidated)
}

func TestExecute_OwnWindowDoesNotConflict(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	oldStart := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)
	// Overlaps the booking's own old window; with capacity 1 it must still pass
	newStart := time.Date(2026, 9, 10, 11, 15, 0, 0, time.UTC)

	repo := newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, oldStart))
	env := newTestEnv(t, repo, 1, now)

	_, err := env.uc.Execute(context.Background(), &Request{BookingID: 1, NewStartTime: newStart})
	assert.NoError(t, err)
}

func TestExecute_RejectsOccupiedWindow(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	target := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)

	other := testBooking(2, domain.StatusConfirmed, target)
	repo := newFakeBookingRepo(
		testBooking(1, domain.StatusConfirmed, time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)),
		other,
	)
	env := newTestEnv(t, repo, 1, now)

	_, err := env.uc.Execute(context.Background(), &Request{BookingID: 1, NewStartTime: target})
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
}

func TestExecute_RejectsTerminalStatuses(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	newStart := time.Date(2026, 9, 11, 15, 0, 0, 0, time.UTC)

	for _, status := range []domain.BookingStatus{
		domain.StatusInProgress,
		domain.StatusCompleted,
		domain.StatusCancelled,
		domain.StatusNoShow,
		domain.StatusRejected,
	} {
		repo := newFakeBookingRepo(testBooking(1, status,
			time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)))
		env := newTestEnv(t, repo, 2, now)

		_, err := env.uc.Execute(context.Background(), &Request{BookingID: 1, NewStartTime: newStart})
		assert.ErrorIs(t, err, ErrNotReschedulable, "status %s", status)
	}
}

func TestExecute_ConcurrentCancellationIsNotOverwritten(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	oldStart := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)
	newStart := time.Date(2026, 9, 11, 15, 0, 0, 0, time.UTC)

	repo := newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, oldStart))
	env := newTestEnv(t, repo, 2, now)

	// Между чтением до транзакции и guarded UPDATE бронирование отменяется:
	// перенос не должен перезаписать окно отмененной записи
	repo.afterRead = func() {
		repo.afterRead = nil
		repo.bookings[1].Status = domain.StatusCancelled
	}

	_, err := env.uc.Execute(context.Background(), &Request{BookingID: 1, NewStartTime: newStart})
	assert.ErrorIs(t, err, ErrNotReschedulable)

	stored, _ := repo.GetByID(context.Background(), 1)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	assert.Equal(t, oldStart, stored.StartTime)
	assert.Empty(t, env.cache.invalidated)
	assert.Empty(t, env.notify.events)
}

func TestExecute_BookingNotFound(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	env := newTestEnv(t, newFakeBookingRepo(), 2, now)

	_, err := env.uc.Execute(context.Background(), &Request{
		BookingID:    99,
		NewStartTime: time.Date(2026, 9, 11, 15, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestExecute_RejectsPastStart(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeBookingRepo(testBooking(1, domain.StatusConfirmed,
		time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)))
	env := newTestEnv(t, repo, 2, now)

	_, err := env.uc.Execute(context.Background(), &Request{
		BookingID:    1,
		NewStartTime: now.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrStartTimeInPast)
}
