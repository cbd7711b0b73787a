package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlinehq/booking-service/internal/domain"
	bookingRepo "github.com/overlinehq/booking-service/internal/infra/storage/booking"
	"github.com/overlinehq/booking-service/internal/integrations/notifyservice"
	"github.com/overlinehq/booking-service/internal/integrations/shopservice"
	"github.com/overlinehq/booking-service/internal/service/bookings/models"
	"github.com/overlinehq/booking-service/pkg/ptr"
)

type fakeBookingRepo struct {
	bookings map[int64]*domain.Booking

	// afterRead выполняется после GetByID; тесты конкурентных переходов
	// меняют через него сохраненный статус между чтением и записью
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

func (f *fakeBookingRepo) GetByUserID(_ context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	var out []*domain.Booking
	for _, b := range f.bookings {
		if b.UserID == nil || *b.UserID != userID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBookingRepo) GetByShopWithFilter(_ context.Context, filter domain.ShopBookingsFilter) ([]*domain.Booking, error) {
	var out []*domain.Booking
	for _, b := range f.bookings {
		if b.ShopID != filter.ShopID {
			continue
		}
		if !filter.IncludeInactive && !b.IsActive() {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, id int64, from, status domain.BookingStatus, now time.Time) error {
	b, ok := f.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if b.Status != from {
		return bookingRepo.ErrStatusConflict
	}
	b.Status = status
	b.UpdatedAt = now
	return nil
}

type fakeShopClient struct{}

func (fakeShopClient) GetShop(_ context.Context, shopID int64) (*shopservice.Shop, error) {
	return &shopservice.Shop{ID: shopID, Timezone: "UTC"}, nil
}

type fakeQueueService struct {
	position int
	err      error
}

func (f *fakeQueueService) Position(_ context.Context, _ int64) (int, error) {
	return f.position, f.err
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
	svc     *Service
	repo    *fakeBookingRepo
	queue   *fakeQueueService
	notify  *fakeNotifyClient
	cache   *fakeSlotCache
	refresh *fakeQueueRefresher
}

func newTestEnv(repo *fakeBookingRepo, now time.Time) *testEnv {
	env := &testEnv{
		repo:    repo,
		queue:   &fakeQueueService{position: 3},
		notify:  &fakeNotifyClient{},
		cache:   &fakeSlotCache{},
		refresh: &fakeQueueRefresher{},
	}
	env.svc = NewService(
		repo,
		fakeShopClient{},
		env.queue,
		env.notify,
		env.cache,
		env.refresh,
		nopLogger{},
	)
	env.svc.timeProvider = &fixedTimeProvider{now: now}
	env.svc.spawn = func(fn func()) { fn() }
	return env
}

func TestGetByID_ReturnsBookingWithLivePosition(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	resp, err := env.svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, 3, resp.QueuePosition)
}

func TestGetByID_PositionFailureDoesNotBlockRead(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)
	env.queue.err = assert.AnError

	resp, err := env.svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ID)
}

func TestGetByID_NotFound(t *testing.T) {
	env := newTestEnv(newFakeBookingRepo(), time.Now())

	_, err := env.svc.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancel_CancelsActiveBooking(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	err := env.svc.Cancel(context.Background(), 1, &models.CancelBookingRequest{UserID: ptr.Ptr(int64(42))})
	require.NoError(t, err)

	stored, _ := env.repo.GetByID(context.Background(), 1)
	assert.Equal(t, domain.StatusCancelled, stored.Status)

	// Cancellation frees capacity: cache and queue stats refreshed, event sent
	assert.Equal(t, []string{"2026-09-10"}, env.cache.invalidated)
	assert.Equal(t, []int64{1}, env.refresh.shops)
	require.Len(t, env.notify.events, 1)
	assert.Equal(t, string(domain.StatusCancelled), env.notify.events[0].Status)
}

func TestCancel_RejectsWithinLeadTime(t *testing.T) {
	now := time.Date(2026, 9, 10, 10, 30, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC) // 30 minutes away

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	err := env.svc.Cancel(context.Background(), 1, &models.CancelBookingRequest{UserID: ptr.Ptr(int64(42))})
	assert.ErrorIs(t, err, ErrCancellationTooLate)
}

func TestCancel_ExactlyOneHourIsAllowed(t *testing.T) {
	now := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	err := env.svc.Cancel(context.Background(), 1, &models.CancelBookingRequest{UserID: ptr.Ptr(int64(42))})
	assert.NoError(t, err)
}

func TestCancel_RejectsForeignBooking(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	err := env.svc.Cancel(context.Background(), 1, &models.CancelBookingRequest{UserID: ptr.Ptr(int64(777))})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCancel_RejectsNonCancellableStatuses(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	for _, status := range []domain.BookingStatus{
		domain.StatusInProgress,
		domain.StatusCompleted,
		domain.StatusCancelled,
	} {
		env := newTestEnv(newFakeBookingRepo(testBooking(1, status, start)), now)
		err := env.svc.Cancel(context.Background(), 1, &models.CancelBookingRequest{UserID: ptr.Ptr(int64(42))})
		assert.ErrorIs(t, err, ErrCannotCancel, "status %s", status)
	}
}

func TestCancel_RejectsAnonymousRequestForUserOwnedBooking(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	err := env.svc.Cancel(context.Background(), 1, &models.CancelBookingRequest{})
	assert.ErrorIs(t, err, ErrAccessDenied)

	stored, _ := env.repo.GetByID(context.Background(), 1)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
}

func TestCancel_GuestBookingNeedsNoUser(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	guest := testBooking(1, domain.StatusConfirmed, start)
	guest.UserID = nil
	guest.CustomerName = ptr.Ptr("Walk-in")
	guest.CustomerPhone = ptr.Ptr("+15550100")

	env := newTestEnv(newFakeBookingRepo(guest), now)

	err := env.svc.Cancel(context.Background(), 1, &models.CancelBookingRequest{})
	require.NoError(t, err)

	stored, _ := env.repo.GetByID(context.Background(), 1)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
}

func TestCancel_ConcurrentStatusChangeIsRejected(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	// Между чтением и записью бронирование успевает завершиться
	env.repo.afterRead = func() {
		env.repo.afterRead = nil
		env.repo.bookings[1].Status = domain.StatusCompleted
	}

	err := env.svc.Cancel(context.Background(), 1, &models.CancelBookingRequest{UserID: ptr.Ptr(int64(42))})
	assert.ErrorIs(t, err, ErrCannotCancel)

	stored, _ := env.repo.GetByID(context.Background(), 1)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Empty(t, env.notify.events)
}

func TestUpdateStatus_FollowsTransitionTable(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	allowed := []struct {
		from, to domain.BookingStatus
	}{
		{domain.StatusPending, domain.StatusConfirmed},
		{domain.StatusPending, domain.StatusRejected},
		{domain.StatusPending, domain.StatusCancelled},
		{domain.StatusConfirmed, domain.StatusInProgress},
		{domain.StatusConfirmed, domain.StatusCancelled},
		{domain.StatusConfirmed, domain.StatusNoShow},
		{domain.StatusInProgress, domain.StatusCompleted},
	}
	for _, tt := range allowed {
		env := newTestEnv(newFakeBookingRepo(testBooking(1, tt.from, start)), now)
		resp, err := env.svc.UpdateStatus(context.Background(), 1,
			&models.UpdateStatusRequest{Status: string(tt.to)})
		require.NoError(t, err, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, string(tt.to), resp.Status)
	}

	denied := []struct {
		from, to domain.BookingStatus
	}{
		{domain.StatusPending, domain.StatusInProgress},
		{domain.StatusPending, domain.StatusCompleted},
		{domain.StatusConfirmed, domain.StatusRejected},
		{domain.StatusCompleted, domain.StatusConfirmed},
		{domain.StatusCancelled, domain.StatusPending},
		{domain.StatusNoShow, domain.StatusConfirmed},
	}
	for _, tt := range denied {
		env := newTestEnv(newFakeBookingRepo(testBooking(1, tt.from, start)), now)
		_, err := env.svc.UpdateStatus(context.Background(), 1,
			&models.UpdateStatusRequest{Status: string(tt.to)})
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
	}
}

func TestUpdateStatus_StampsTransitionTimestamps(t *testing.T) {
	now := time.Date(2026, 9, 10, 10, 55, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	resp, err := env.svc.UpdateStatus(context.Background(), 1,
		&models.UpdateStatusRequest{Status: "IN_PROGRESS"})
	require.NoError(t, err)
	require.NotNil(t, resp.ArrivedAt)
	require.NotNil(t, resp.StartedAt)
	assert.Equal(t, now, *resp.ArrivedAt)
}

func TestUpdateStatus_CacheInvalidationOnlyWhenLeavingActiveSet(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	// PENDING -> CONFIRMED stays active: no invalidation, just a notification
	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusPending, start)), now)
	_, err := env.svc.UpdateStatus(context.Background(), 1,
		&models.UpdateStatusRequest{Status: "CONFIRMED"})
	require.NoError(t, err)
	assert.Empty(t, env.cache.invalidated)
	assert.Empty(t, env.refresh.shops)
	assert.Len(t, env.notify.events, 1)

	// CONFIRMED -> NO_SHOW leaves the active set: capacity freed
	env = newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)
	_, err = env.svc.UpdateStatus(context.Background(), 1,
		&models.UpdateStatusRequest{Status: "NO_SHOW"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-09-10"}, env.cache.invalidated)
	assert.Equal(t, []int64{1}, env.refresh.shops)
}

func TestUpdateStatus_ConcurrentTransitionDoesNotResurrectTerminal(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusConfirmed, start)), now)

	// Конкурентная отмена между чтением и записью: валидация перехода
	// CONFIRMED -> IN_PROGRESS проходит против прочитанного статуса, но
	// guarded UPDATE не должен перезаписать CANCELLED
	env.repo.afterRead = func() {
		env.repo.afterRead = nil
		env.repo.bookings[1].Status = domain.StatusCancelled
	}

	_, err := env.svc.UpdateStatus(context.Background(), 1,
		&models.UpdateStatusRequest{Status: "IN_PROGRESS"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, _ := env.repo.GetByID(context.Background(), 1)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	assert.Empty(t, env.notify.events)
}

func TestUpdateStatus_LowercaseStatusIsAccepted(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	env := newTestEnv(newFakeBookingRepo(testBooking(1, domain.StatusPending, start)), now)

	resp, err := env.svc.UpdateStatus(context.Background(), 1,
		&models.UpdateStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", resp.Status)
}

func TestGetUserBookings_FiltersByStatus(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	first := testBooking(1, domain.StatusConfirmed, start)
	second := testBooking(2, domain.StatusCancelled, start.Add(time.Hour))
	env := newTestEnv(newFakeBookingRepo(first, second), now)

	all, err := env.svc.GetUserBookings(context.Background(),
		&models.GetUserBookingsRequest{UserID: 42})
	require.NoError(t, err)
	assert.Len(t, all.Bookings, 2)

	cancelled, err := env.svc.GetUserBookings(context.Background(),
		&models.GetUserBookingsRequest{UserID: 42, Status: ptr.Ptr("CANCELLED")})
	require.NoError(t, err)
	require.Len(t, cancelled.Bookings, 1)
	assert.Equal(t, int64(2), cancelled.Bookings[0].ID)

	_, err = env.svc.GetUserBookings(context.Background(),
		&models.GetUserBookingsRequest{UserID: 42, Status: ptr.Ptr("NOT_A_STATUS")})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGetShopBookings_ExcludesInactiveByDefault(t *testing.T) {
	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC)

	active := testBooking(1, domain.StatusConfirmed, start)
	done := testBooking(2, domain.StatusCompleted, start.Add(-2*time.Hour))
	env := newTestEnv(newFakeBookingRepo(active, done), now)

	resp, err := env.svc.GetShopBookings(context.Background(),
		&models.GetShopBookingsRequest{ShopID: 1})
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, int64(1), resp.Bookings[0].ID)

	withInactive, err := env.svc.GetShopBookings(context.Background(),
		&models.GetShopBookingsRequest{ShopID: 1, IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, withInactive.Bookings, 2)
}
