package get_available_slots

import "errors"

var (
	// ErrShopNotFound возвращается, когда магазин не найден
	ErrShopNotFound = errors.New("shop not found")

	// ErrServiceNotFound возвращается, когда одна из услуг не найдена или неактивна
	ErrServiceNotFound = errors.New("service not found")

	// ErrInvalidDate возвращается при некорректной дате запроса
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidDuration возвращается при некорректной явной длительности
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("usecase: internal error")
)
