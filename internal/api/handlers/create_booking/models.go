package create_booking

import (
	"fmt"
	"time"

	"github.com/overlinehq/booking-service/internal/service/bookings/models"
	createBooking "github.com/overlinehq/booking-service/internal/usecase/create_booking"
)

// CreateBookingRequest HTTP request model.
// userId либо гостевые контакты - одно из двух. Если userId не передан в
// теле, берется из заголовка X-User-ID (если он есть).
type CreateBookingRequest struct {
	ShopID int64 `json:"shopId"`

	UserID        *int64  `json:"userId,omitempty"`
	CustomerName  *string `json:"customerName,omitempty"`
	CustomerPhone *string `json:"customerPhone,omitempty"`
	CustomerEmail *string `json:"customerEmail,omitempty"`

	ServiceIDs      []int64 `json:"serviceIds,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
	StartTime       string  `json:"startTime"` // RFC3339
	StaffID         *int64  `json:"staffId,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateBookingRequest) ToUseCaseRequest(headerUserID *int64) (*createBooking.Request, error) {
	startTime, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid startTime %q: %w", r.StartTime, err)
	}

	userID := r.UserID
	if userID == nil {
		userID = headerUserID
	}

	return &createBooking.Request{
		ShopID:          r.ShopID,
		UserID:          userID,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerEmail:   r.CustomerEmail,
		ServiceIDs:      r.ServiceIDs,
		DurationMinutes: r.DurationMinutes,
		StartTime:       startTime,
		StaffID:         r.StaffID,
		Notes:           r.Notes,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createBooking.Response) *models.BookingResponse {
	return models.FromDomainBooking(resp.Booking)
}
