package queue

import "errors"

var (
	// ErrShopNotFound возвращается, когда магазин не найден
	ErrShopNotFound = errors.New("queue: shop not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("queue: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("queue: internal error")
)
