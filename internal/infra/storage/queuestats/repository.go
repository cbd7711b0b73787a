package queuestats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/pkg/dbmetrics"
	"github.com/overlinehq/booking-service/pkg/psqlbuilder"
)

// Repository хранилище снапшотов статистики очереди.
// Снапшот - производная от реестра бронирований величина: его всегда можно
// пересчитать, таблица существует только для быстрых чтений на витринах.
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория статистики очереди
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Upsert записывает снапшот статистики магазина (insert или update по shop_id)
func (r *Repository) Upsert(ctx context.Context, stats *domain.QueueStats) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("queue_stats").
		Columns(
			"shop_id",
			"waiting_count",
			"estimated_wait_minutes",
			"next_available_slot",
			"last_updated_at",
		).
		Values(
			stats.ShopID,
			stats.WaitingCount,
			stats.EstimatedWaitMinutes,
			stats.NextAvailableSlot,
			stats.LastUpdatedAt,
		).
		Suffix(`ON CONFLICT (shop_id) DO UPDATE SET
			waiting_count = EXCLUDED.waiting_count,
			estimated_wait_minutes = EXCLUDED.estimated_wait_minutes,
			next_available_slot = EXCLUDED.next_available_slot,
			last_updated_at = EXCLUDED.last_updated_at`).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Upsert - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// GetByShopID возвращает последний снапшот статистики магазина
func (r *Repository) GetByShopID(ctx context.Context, shopID int64) (*domain.QueueStats, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"shop_id",
		"waiting_count",
		"estimated_wait_minutes",
		"next_available_slot",
		"last_updated_at",
	).
		From("queue_stats").
		Where(squirrel.Eq{"shop_id": shopID}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByShopID - build select query: %v", ErrBuildQuery, err)
	}

	var stats domain.QueueStats
	var nextSlot sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&stats.ShopID,
		&stats.WaitingCount,
		&stats.EstimatedWaitMinutes,
		&nextSlot,
		&stats.LastUpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrStatsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByShopID - scan stats: %v", ErrScanRow, err)
	}

	if nextSlot.Valid {
		stats.NextAvailableSlot = &nextSlot.Time
	}

	return &stats, nil
}
