package create_booking

import "errors"

var (
	// ErrShopNotFound возвращается, когда магазин не найден
	ErrShopNotFound = errors.New("create_booking: shop not found")

	// ErrServiceNotFound возвращается, когда одна из услуг не найдена или неактивна
	ErrServiceNotFound = errors.New("create_booking: service not found")

	// ErrShopClosed возвращается, когда магазин закрыт в указанную дату
	ErrShopClosed = errors.New("create_booking: shop is closed on this date")

	// ErrSlotNotAvailable возвращается, когда окно занято (все места заняты)
	ErrSlotNotAvailable = errors.New("create_booking: slot is not available")

	// ErrInvalidTimeSlot возвращается, когда окно выходит за рабочие часы или попадает в перерыв
	ErrInvalidTimeSlot = errors.New("create_booking: invalid time slot")

	// ErrStartTimeInPast возвращается, когда время начала не в будущем
	ErrStartTimeInPast = errors.New("create_booking: start time must be in the future")

	// ErrInvalidDuration возвращается при некорректной длительности
	ErrInvalidDuration = errors.New("create_booking: invalid duration")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_booking: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_booking: internal error")
)
