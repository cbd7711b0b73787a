package reschedule_booking

import (
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
)

// Request модель запроса на перенос бронирования
type Request struct {
	BookingID    int64
	NewStartTime time.Time
}

// Response модель ответа с перенесенным бронированием
type Response struct {
	Booking *domain.Booking
}
