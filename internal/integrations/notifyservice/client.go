package notifyservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInternal возвращается при ошибках отправки уведомления
var ErrInternal = errors.New("notifyservice: internal error")

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// BookingEvent событие по бронированию для NotificationService
type BookingEvent struct {
	BookingID     int64  `json:"bookingId"`
	BookingNumber string `json:"bookingNumber"`
	ShopID        int64  `json:"shopId"`
	UserID        *int64 `json:"userId,omitempty"`
	Status        string `json:"status"`
	StartTime     string `json:"startTime"` // RFC3339
}

// Client клиент для NotificationService.
// Все отправки fire-and-forget: ядро не ждёт доставки уведомлений,
// ошибки только логируются вызывающей стороной.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента NotificationService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// BookingCreated отправляет событие о создании бронирования
func (c *Client) BookingCreated(ctx context.Context, event BookingEvent) error {
	return c.post(ctx, "/internal/events/booking-created", event)
}

// BookingStatusChanged отправляет событие о смене статуса бронирования
func (c *Client) BookingStatusChanged(ctx context.Context, event BookingEvent) error {
	return c.post(ctx, "/internal/events/booking-status-changed", event)
}

func (c *Client) post(ctx context.Context, path string, event BookingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal event: %v", ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: unexpected status code %d", ErrInternal, resp.StatusCode)
	}

	return nil
}
