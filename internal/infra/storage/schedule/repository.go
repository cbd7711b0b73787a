package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/pkg/dbmetrics"
	"github.com/overlinehq/booking-service/pkg/psqlbuilder"
)

// Repository хранилище календарных правил: недельное расписание работы
// магазинов и переопределения на конкретные даты.
//
// Ядро бронирования только читает эти таблицы - правила создаются и
// редактируются инструментами администрирования магазина.
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория календарных правил
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetForDate возвращает разрешенное расписание магазина на дату:
// переопределение на дату (special_schedules) имеет приоритет над строкой
// дня недели (working_hours), перерывы всегда берутся из строки дня недели.
//
// Отсутствие строки дня недели означает, что магазин в этот день не
// работает - возвращается закрытый день, не ошибка.
func (r *Repository) GetForDate(ctx context.Context, shopID int64, date time.Time) (domain.DaySchedule, error) {
	wh, err := r.getWorkingHours(ctx, shopID, date.Weekday())
	if err != nil {
		return domain.DaySchedule{}, err
	}

	special, err := r.getSpecialSchedule(ctx, shopID, date)
	if err != nil {
		return domain.DaySchedule{}, err
	}

	return domain.ResolveDaySchedule(wh, special), nil
}

// GetWeek возвращает все строки недельного расписания магазина
func (r *Repository) GetWeek(ctx context.Context, shopID int64) ([]*domain.WorkingHours, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"shop_id",
		"day_of_week",
		"open_time",
		"close_time",
		"is_closed",
		"break_windows",
	).
		From("working_hours").
		Where(squirrel.Eq{"shop_id": shopID}).
		OrderBy("day_of_week ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetWeek - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetWeek - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	week := make([]*domain.WorkingHours, 0, 7)
	for rows.Next() {
		wh, err := scanWorkingHours(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: GetWeek - scan working hours: %v", ErrScanRow, err)
		}
		week = append(week, wh)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetWeek - rows error: %v", ErrScanRow, err)
	}

	return week, nil
}

// getWorkingHours возвращает строку расписания на день недели или nil,
// если магазин в этот день не работает
func (r *Repository) getWorkingHours(ctx context.Context, shopID int64, weekday time.Weekday) (*domain.WorkingHours, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"shop_id",
		"day_of_week",
		"open_time",
		"close_time",
		"is_closed",
		"break_windows",
	).
		From("working_hours").
		Where(squirrel.Eq{"shop_id": shopID, "day_of_week": int(weekday)}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: getWorkingHours - build select query: %v", ErrBuildQuery, err)
	}

	row := executor.QueryRowContext(ctx, query, args...)
	wh, err := scanWorkingHoursRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getWorkingHours - scan working hours: %v", ErrScanRow, err)
	}

	return wh, nil
}

// getSpecialSchedule возвращает переопределение на дату или nil
func (r *Repository) getSpecialSchedule(ctx context.Context, shopID int64, date time.Time) (*domain.SpecialSchedule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	query, args, err := psqlbuilder.Select(
		"id",
		"shop_id",
		"date",
		"open_time",
		"close_time",
		"is_closed",
	).
		From("special_schedules").
		Where(squirrel.Eq{"shop_id": shopID, "date": dayStart}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: getSpecialSchedule - build select query: %v", ErrBuildQuery, err)
	}

	var special domain.SpecialSchedule
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&special.ID,
		&special.ShopID,
		&special.Date,
		&special.OpenTime,
		&special.CloseTime,
		&special.IsClosed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getSpecialSchedule - scan special schedule: %v", ErrScanRow, err)
	}

	return &special, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkingHoursRow(row rowScanner) (*domain.WorkingHours, error) {
	var wh domain.WorkingHours
	var dayOfWeek int
	var breakWindows []byte

	err := row.Scan(
		&wh.ID,
		&wh.ShopID,
		&dayOfWeek,
		&wh.OpenTime,
		&wh.CloseTime,
		&wh.IsClosed,
		&breakWindows,
	)
	if err != nil {
		return nil, err
	}

	wh.DayOfWeek = time.Weekday(dayOfWeek)

	// break_windows хранится как JSONB: [{"start":"14:00","end":"15:00"}]
	if len(breakWindows) > 0 {
		if err := json.Unmarshal(breakWindows, &wh.Breaks); err != nil {
			return nil, fmt.Errorf("invalid break_windows payload: %v", err)
		}
	}

	return &wh, nil
}

func scanWorkingHours(rows *sql.Rows) (*domain.WorkingHours, error) {
	return scanWorkingHoursRow(rows)
}
