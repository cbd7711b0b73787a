package get_next_available_slot

import "errors"

var (
	// ErrShopNotFound возвращается, когда магазин не найден
	ErrShopNotFound = errors.New("shop not found")

	// ErrServiceNotFound возвращается, когда одна из услуг не найдена или неактивна
	ErrServiceNotFound = errors.New("service not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("usecase: internal error")
)
