package get_next_available_slot

import (
	"github.com/overlinehq/booking-service/internal/domain"
)

// Request модель запроса на поиск ближайшего доступного слота
type Request struct {
	ShopID          int64   // ID магазина
	ServiceIDs      []int64 // Набор услуг; суммарная длительность определяет длину слота
	DurationMinutes *int    // Явная длительность, используется только при пустом наборе услуг
	StaffID         *int64  // ID мастера; nil - слоты на весь магазин
}

// Response модель ответа с ближайшим доступным слотом.
// Slot == nil означает, что в пределах горизонта поиска свободных слотов нет.
type Response struct {
	ShopID int64
	Slot   *domain.TimeSlot
}
