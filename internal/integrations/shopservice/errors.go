package shopservice

import "errors"

var (
	// ErrShopNotFound возвращается, когда магазин не найден
	ErrShopNotFound = errors.New("shopservice: shop not found")

	// ErrServiceNotFound возвращается, когда услуга не найдена или неактивна
	ErrServiceNotFound = errors.New("shopservice: service not found")

	// ErrInvalidResponse возвращается при некорректном ответе ShopService
	ErrInvalidResponse = errors.New("shopservice: invalid response")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("shopservice: internal error")
)
