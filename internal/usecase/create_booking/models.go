package create_booking

import (
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
)

// Request модель запроса на создание бронирования.
// UserID и гостевые поля (CustomerName/Phone/Email) взаимоисключающие:
// либо зарегистрированный пользователь, либо гость с контактами.
type Request struct {
	ShopID int64

	UserID        *int64
	CustomerName  *string
	CustomerPhone *string
	CustomerEmail *string

	ServiceIDs      []int64 // Набор услуг; суммарная длительность определяет окно
	DurationMinutes *int    // Явная длительность при пустом наборе услуг
	StartTime       time.Time
	StaffID         *int64
	Notes           *string
}

// Response модель ответа с созданным бронированием
type Response struct {
	Booking *domain.Booking
}
