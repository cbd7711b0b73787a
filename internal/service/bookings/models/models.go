package models

import (
	"errors"
	"strings"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid booking status")
)

// Request модели

// CancelBookingRequest запрос на отмену бронирования заказчиком
type CancelBookingRequest struct {
	UserID *int64  `json:"userId,omitempty"`
	Reason *string `json:"reason,omitempty"`
}

// UpdateStatusRequest запрос на обновление статуса бронирования
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// GetUserBookingsRequest запрос на получение бронирований пользователя
type GetUserBookingsRequest struct {
	UserID int64   `json:"userId"`
	Status *string `json:"status,omitempty"`
}

// GetShopBookingsRequest запрос на получение бронирований магазина
type GetShopBookingsRequest struct {
	ShopID          int64      `json:"shopId"`
	StaffID         *int64     `json:"staffId,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	Status          *string    `json:"status,omitempty"`
	IncludeInactive bool       `json:"includeInactive,omitempty"`
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *GetShopBookingsRequest) ToDomainFilter() (domain.ShopBookingsFilter, error) {
	filter := domain.ShopBookingsFilter{
		ShopID:          r.ShopID,
		StaffID:         r.StaffID,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		IncludeInactive: r.IncludeInactive,
	}

	if r.Status != nil {
		status, err := ToDomainBookingStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

// Response модели

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID            int64  `json:"id"`
	BookingNumber string `json:"bookingNumber"`
	ShopID        int64  `json:"shopId"`
	StaffID       *int64 `json:"staffId,omitempty"`

	UserID        *int64  `json:"userId,omitempty"`
	CustomerName  *string `json:"customerName,omitempty"`
	CustomerPhone *string `json:"customerPhone,omitempty"`
	CustomerEmail *string `json:"customerEmail,omitempty"`

	StartTime            time.Time `json:"startTime"`
	EndTime              time.Time `json:"endTime"`
	TotalDurationMinutes int       `json:"totalDurationMinutes"`
	TotalAmount          float64   `json:"totalAmount"`
	Currency             string    `json:"currency"`

	ServiceIDs   []int64  `json:"serviceIds"`
	ServiceNames []string `json:"serviceNames"`

	Status string `json:"status"`

	// QueuePosition живая позиция в очереди дня; -1 когда бронирование
	// больше не в очереди
	QueuePosition int `json:"queuePosition"`

	Notes *string `json:"notes,omitempty"`

	ArrivedAt   *time.Time `json:"arrivedAt,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingListResponse ответ со списком бронирований
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

// Методы конвертации

// FromDomainBooking конвертирует domain модель в DTO.
// QueuePosition заполняется снимком на момент создания; живую позицию
// сервис проставляет отдельно.
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}

	return &BookingResponse{
		ID:                   b.ID,
		BookingNumber:        b.BookingNumber,
		ShopID:               b.ShopID,
		StaffID:              b.StaffID,
		UserID:               b.UserID,
		CustomerName:         b.CustomerName,
		CustomerPhone:        b.CustomerPhone,
		CustomerEmail:        b.CustomerEmail,
		StartTime:            b.StartTime,
		EndTime:              b.EndTime,
		TotalDurationMinutes: b.TotalDurationMinutes,
		TotalAmount:          b.TotalAmount,
		Currency:             b.Currency,
		ServiceIDs:           b.ServiceIDs,
		ServiceNames:         b.ServiceNames,
		Status:               string(b.Status),
		QueuePosition:        b.QueuePosition,
		Notes:                b.Notes,
		ArrivedAt:            b.ArrivedAt,
		StartedAt:            b.StartedAt,
		CompletedAt:          b.CompletedAt,
		CancelledAt:          b.CancelledAt,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
	}
}

// FromDomainBookingList конвертирует список domain моделей в DTO
func FromDomainBookingList(bookings []*domain.Booking) *BookingListResponse {
	resp := &BookingListResponse{
		Bookings: make([]BookingResponse, 0, len(bookings)),
	}
	for _, b := range bookings {
		resp.Bookings = append(resp.Bookings, *FromDomainBooking(b))
	}
	return resp
}

// ToDomainBookingStatus конвертирует строку статуса в domain.BookingStatus
func ToDomainBookingStatus(s string) (domain.BookingStatus, error) {
	status := domain.BookingStatus(strings.ToUpper(s))
	if !domain.IsValidStatus(status) {
		return "", ErrInvalidStatus
	}
	return status, nil
}
