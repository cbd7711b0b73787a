package reschedule_booking

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("reschedule_booking: booking not found")

	// ErrShopNotFound возвращается, когда магазин не найден
	ErrShopNotFound = errors.New("reschedule_booking: shop not found")

	// ErrNotReschedulable возвращается, когда статус бронирования не допускает перенос
	ErrNotReschedulable = errors.New("reschedule_booking: booking cannot be rescheduled")

	// ErrShopClosed возвращается, когда магазин закрыт в новую дату
	ErrShopClosed = errors.New("reschedule_booking: shop is closed on this date")

	// ErrSlotNotAvailable возвращается, когда новое окно занято
	ErrSlotNotAvailable = errors.New("reschedule_booking: slot is not available")

	// ErrInvalidTimeSlot возвращается, когда окно выходит за рабочие часы или попадает в перерыв
	ErrInvalidTimeSlot = errors.New("reschedule_booking: invalid time slot")

	// ErrStartTimeInPast возвращается, когда новое время начала не в будущем
	ErrStartTimeInPast = errors.New("reschedule_booking: start time must be in the future")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("reschedule_booking: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("reschedule_booking: internal error")
)
