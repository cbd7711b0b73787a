package queuestats

import "errors"

var (
	// ErrStatsNotFound возвращается, когда снапшот статистики отсутствует
	ErrStatsNotFound = errors.New("queuestats.repository: stats not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("queuestats.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("queuestats.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("queuestats.repository: failed to scan row")
)
