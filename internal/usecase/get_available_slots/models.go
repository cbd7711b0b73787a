package get_available_slots

import (
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	ShopID          int64     // ID магазина
	Date            time.Time // Дата для получения слотов (без времени)
	ServiceIDs      []int64   // Набор услуг; суммарная длительность определяет длину слота
	DurationMinutes *int      // Явная длительность, используется только при пустом наборе услуг
	StaffID         *int64    // ID мастера; nil - слоты на весь магазин
}

// Response модель ответа со списком слотов
type Response struct {
	ShopID               int64             // ID магазина
	Date                 time.Time         // Дата, на которую запрашивались слоты
	Slots                []domain.TimeSlot // Слоты дня с флагом доступности
	TotalDurationMinutes int               // Разрешенная длительность слота
	FromCache            bool              // Пришел ли результат из кэша
}
