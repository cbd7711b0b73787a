package reschedule_booking

import (
	"fmt"
	"time"

	"github.com/overlinehq/booking-service/internal/service/bookings/models"
	rescheduleBooking "github.com/overlinehq/booking-service/internal/usecase/reschedule_booking"
)

// RescheduleBookingRequest HTTP request model
type RescheduleBookingRequest struct {
	NewStartTime string `json:"newStartTime"` // RFC3339
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *RescheduleBookingRequest) ToUseCaseRequest(bookingID int64) (*rescheduleBooking.Request, error) {
	newStartTime, err := time.Parse(time.RFC3339, r.NewStartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid newStartTime %q: %w", r.NewStartTime, err)
	}

	return &rescheduleBooking.Request{
		BookingID:    bookingID,
		NewStartTime: newStartTime,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *rescheduleBooking.Response) *models.BookingResponse {
	return models.FromDomainBooking(resp.Booking)
}
