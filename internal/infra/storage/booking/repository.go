package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/pkg/dbmetrics"
	"github.com/overlinehq/booking-service/pkg/psqlbuilder"
)

// bookingColumns полный список колонок таблицы bookings в порядке сканирования
var bookingColumns = []string{
	"id",
	"booking_number",
	"shop_id",
	"staff_id",
	"user_id",
	"customer_name",
	"customer_phone",
	"customer_email",
	"start_time",
	"end_time",
	"total_duration_minutes",
	"total_amount",
	"currency",
	"service_ids",
	"service_names",
	"status",
	"queue_position",
	"notes",
	"arrived_at",
	"started_at",
	"completed_at",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий реестра бронирований.
// Единственный владелец записей таблицы bookings на запись - все остальные
// компоненты (генерация слотов, оценка очереди) только читают.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование.
// Если в контексте передана активная транзакция (через context.Value),
// использует её - так usecase создания вставляет запись тем же снимком,
// которым проверял доступность слота.
func (r *Repository) Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"booking_number",
			"shop_id",
			"staff_id",
			"user_id",
			"customer_name",
			"customer_phone",
			"customer_email",
			"start_time",
			"end_time",
			"total_duration_minutes",
			"total_amount",
			"currency",
			"service_ids",
			"service_names",
			"status",
			"queue_position",
			"notes",
		).
		Values(
			b.BookingNumber,
			b.ShopID,
			b.StaffID,
			b.UserID,
			b.CustomerName,
			b.CustomerPhone,
			b.CustomerEmail,
			b.StartTime,
			b.EndTime,
			b.TotalDurationMinutes,
			b.TotalAmount,
			b.Currency,
			pq.Array(b.ServiceIDs),
			pq.Array(b.ServiceNames),
			b.Status,
			b.QueuePosition,
			b.Notes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBookingNumber, b.BookingNumber)
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time

	return b, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	row := executor.QueryRowContext(ctx, query, args...)
	booking, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %w", ErrScanRow, err)
	}

	return booking, nil
}

// GetActiveByShopAndWindow получает активные бронирования магазина,
// пересекающиеся с окном [from, to).
//
// Используется и генератором слотов (окно = весь день), и проверкой
// доступности при создании/переносе (окно = конкретный слот).
//
// staffID != nil сужает выборку до бронирований конкретного мастера.
// excludeBookingID != nil исключает собственную запись бронирования -
// нужно при переносе, чтобы старое окно не конфликтовало само с собой.
//
// Если вызов идет внутри транзакции, добавляется FOR UPDATE: строки дня
// блокируются до конца транзакции, и конкурентная проверка доступности
// не может сработать по тому же окну.
func (r *Repository) GetActiveByShopAndWindow(
	ctx context.Context,
	shopID int64,
	from, to time.Time,
	staffID *int64,
	excludeBookingID *int64,
) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	activeStatuses := make([]string, len(domain.ActiveStatuses))
	for i, s := range domain.ActiveStatuses {
		activeStatuses[i] = string(s)
	}

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"shop_id": shopID}).
		Where(squirrel.Eq{"status": activeStatuses}).
		// Полуоткрытый интервал: границы, касающиеся точно, не пересекаются
		Where(squirrel.Lt{"start_time": to}).
		Where(squirrel.Gt{"end_time": from}).
		OrderBy("start_time ASC")

	if staffID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"staff_id": *staffID})
	}
	if excludeBookingID != nil {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"id": *excludeBookingID})
	}

	// Блокировка строк для admission check внутри транзакции
	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveByShopAndWindow - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveByShopAndWindow - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetByUserID получает список бронирований пользователя
// Опционально фильтрует по статусу
func (r *Repository) GetByUserID(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("start_time DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetByShopWithFilter получает бронирования магазина с гибкой фильтрацией
// Поддерживает фильтрацию по мастеру, периоду, статусу и включению
// неактивных бронирований (для очереди дня со статусами завершения)
func (r *Repository) GetByShopWithFilter(ctx context.Context, filter domain.ShopBookingsFilter) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"shop_id": filter.ShopID})

	if filter.StaffID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"staff_id": *filter.StaffID})
	}
	if filter.StartDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"start_time": *filter.StartDate})
	}
	if filter.EndDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.Lt{"start_time": *filter.EndDate})
	}

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	} else if !filter.IncludeInactive {
		activeStatuses := make([]string, len(domain.ActiveStatuses))
		for i, s := range domain.ActiveStatuses {
			activeStatuses[i] = string(s)
		}
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": activeStatuses})
	}

	selectBuilder = selectBuilder.OrderBy("start_time ASC")

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByShopWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByShopWithFilter - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// CountActiveEarlier подсчитывает активные бронирования магазина с началом
// в [dayStart, before) - количество "впереди в очереди" за тот же день
func (r *Repository) CountActiveEarlier(ctx context.Context, shopID int64, dayStart, before time.Time) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	activeStatuses := make([]string, len(domain.ActiveStatuses))
	for i, s := range domain.ActiveStatuses {
		activeStatuses[i] = string(s)
	}

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("bookings").
		Where(squirrel.Eq{"shop_id": shopID}).
		Where(squirrel.Eq{"status": activeStatuses}).
		Where(squirrel.GtOrEq{"start_time": dayStart}).
		Where(squirrel.Lt{"start_time": before}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: CountActiveEarlier - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountActiveEarlier - scan count: %w", ErrScanRow, err)
	}

	return count, nil
}

// CountWaitingFrom подсчитывает ожидающие бронирования (PENDING/CONFIRMED)
// с началом не раньше from
func (r *Repository) CountWaitingFrom(ctx context.Context, shopID int64, from time.Time) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	waitingStatuses := make([]string, len(domain.WaitingStatuses))
	for i, s := range domain.WaitingStatuses {
		waitingStatuses[i] = string(s)
	}

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("bookings").
		Where(squirrel.Eq{"shop_id": shopID}).
		Where(squirrel.Eq{"status": waitingStatuses}).
		Where(squirrel.GtOrEq{"start_time": from}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: CountWaitingFrom - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountWaitingFrom - scan count: %w", ErrScanRow, err)
	}

	return count, nil
}

// GetActiveStartingBy получает активные бронирования магазина с началом
// не позже cutoff (для оценки времени ожидания)
func (r *Repository) GetActiveStartingBy(ctx context.Context, shopID int64, cutoff time.Time) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	activeStatuses := make([]string, len(domain.ActiveStatuses))
	for i, s := range domain.ActiveStatuses {
		activeStatuses[i] = string(s)
	}

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"shop_id": shopID}).
		Where(squirrel.Eq{"status": activeStatuses}).
		Where(squirrel.LtOrEq{"start_time": cutoff}).
		OrderBy("start_time ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveStartingBy - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveStartingBy - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// UpdateStatus переводит бронирование из статуса from в status и проставляет
// временные метки перехода: IN_PROGRESS - arrived_at/started_at,
// COMPLETED - completed_at, CANCELLED/REJECTED - cancelled_at.
//
// UPDATE защищен предикатом по текущему статусу: если конкурентный переход
// успел изменить статус между чтением и записью, запрос не затронет ни одной
// строки и вернется ErrStatusConflict. Без предиката поздняя запись могла бы
// воскресить терминальное бронирование.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, status domain.BookingStatus, now time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update("bookings").
		Set("status", status).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": from})

	switch status {
	case domain.StatusInProgress:
		updateBuilder = updateBuilder.Set("arrived_at", now).Set("started_at", now)
	case domain.StatusCompleted:
		updateBuilder = updateBuilder.Set("completed_at", now)
	case domain.StatusCancelled, domain.StatusRejected:
		updateBuilder = updateBuilder.Set("cancelled_at", now)
	}

	query, args, err := updateBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - get rows affected: %w", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		// Бронирования не удаляются, поэтому 0 строк означает, что статус
		// сменился конкурентно
		return ErrStatusConflict
	}

	return nil
}

// UpdateSchedule атомарно заменяет окно бронирования при переносе.
// UPDATE защищен предикатом по переносимым статусам: бронирование,
// отмененное между чтением и записью, не переносится - ErrStatusConflict.
func (r *Repository) UpdateSchedule(ctx context.Context, id int64, start, end time.Time, now time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	reschedulable := make([]string, len(domain.ReschedulableStatuses))
	for i, s := range domain.ReschedulableStatuses {
		reschedulable[i] = string(s)
	}

	query, args, err := psqlbuilder.Update("bookings").
		Set("start_time", start).
		Set("end_time", end).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": reschedulable}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateSchedule - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateSchedule - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: UpdateSchedule - get rows affected: %w", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBooking сканирует одну строку таблицы bookings
func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var serviceIDs pq.Int64Array
	var serviceNames pq.StringArray
	var arrivedAt, startedAt, completedAt, cancelledAt sql.NullTime
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&b.ID,
		&b.BookingNumber,
		&b.ShopID,
		&b.StaffID,
		&b.UserID,
		&b.CustomerName,
		&b.CustomerPhone,
		&b.CustomerEmail,
		&b.StartTime,
		&b.EndTime,
		&b.TotalDurationMinutes,
		&b.TotalAmount,
		&b.Currency,
		&serviceIDs,
		&serviceNames,
		&b.Status,
		&b.QueuePosition,
		&b.Notes,
		&arrivedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ServiceIDs = []int64(serviceIDs)
	b.ServiceNames = []string(serviceNames)
	if arrivedAt.Valid {
		b.ArrivedAt = &arrivedAt.Time
	}
	if startedAt.Valid {
		b.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		b.CancelledAt = &cancelledAt.Time
	}
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time

	return &b, nil
}

// scanBookings сканирует все строки результата запроса
func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan booking: %w", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %w", ErrScanRow, err)
	}

	return bookings, nil
}
