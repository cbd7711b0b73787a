package shopservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент для работы с ShopService (магазины, каталог услуг, настройки)
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента ShopService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetShop получает магазин с настройками вместимости и авто-подтверждения
func (c *Client) GetShop(ctx context.Context, shopID int64) (*Shop, error) {
	url := fmt.Sprintf("%s/internal/shops/%d", c.baseURL, shopID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusNotFound:
		return nil, ErrShopNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var shop Shop
	if err := json.NewDecoder(resp.Body).Decode(&shop); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	// Защита от некорректных настроек вместимости на стороне ShopService
	if shop.MaxConcurrentBookings < 1 {
		shop.MaxConcurrentBookings = 1
	}

	return &shop, nil
}

// GetServices получает услуги магазина по списку ID.
// Возвращает ErrServiceNotFound, если хотя бы одна услуга отсутствует,
// принадлежит другому магазину или неактивна.
func (c *Client) GetServices(ctx context.Context, shopID int64, serviceIDs []int64) ([]*Service, error) {
	ids := make([]string, len(serviceIDs))
	for i, id := range serviceIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	url := fmt.Sprintf("%s/internal/shops/%d/services?ids=%s", c.baseURL, shopID, strings.Join(ids, ","))

	services, err := c.fetchServices(ctx, url)
	if err != nil {
		return nil, err
	}

	// ShopService возвращает только найденные активные услуги -
	// несовпадение количества означает, что часть услуг не существует
	if len(services) != len(serviceIDs) {
		return nil, ErrServiceNotFound
	}

	for _, svc := range services {
		if svc.ShopID != shopID || !svc.IsActive {
			return nil, ErrServiceNotFound
		}
	}

	return services, nil
}

// ListActiveServices получает все активные услуги магазина
func (c *Client) ListActiveServices(ctx context.Context, shopID int64) ([]*Service, error) {
	url := fmt.Sprintf("%s/internal/shops/%d/services?active=true", c.baseURL, shopID)
	return c.fetchServices(ctx, url)
}

func (c *Client) fetchServices(ctx context.Context, url string) ([]*Service, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusNotFound:
		return nil, ErrShopNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var services []*Service
	if err := json.NewDecoder(resp.Body).Decode(&services); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return services, nil
}
