package shopservice

// Shop модель магазина из ShopService
// Содержит только поля, нужные ядру бронирования
type Shop struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	Timezone              string `json:"timezone"`
	Currency              string `json:"currency"`
	MaxConcurrentBookings int    `json:"maxConcurrentBookings"`
	AutoAcceptBookings    bool   `json:"autoAcceptBookings"`
}

// Service модель услуги из каталога ShopService
type Service struct {
	ID              int64   `json:"id"`
	ShopID          int64   `json:"shopId"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"durationMinutes"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	IsActive        bool    `json:"isActive"`
}
