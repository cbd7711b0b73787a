package get_next_available_slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/internal/usecase/get_available_slots"
)

// UseCase use case поиска ближайшего доступного слота.
// Сканирует дни начиная с сегодняшнего в пределах domain.NextSlotScanDays
// и возвращает первый доступный слот.
type UseCase struct {
	slots        SlotsProvider
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(slots SlotsProvider, logger Logger) *UseCase {
	return &UseCase{
		slots:        slots,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет поиск ближайшего доступного слота
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetNextAvailableSlot: shop=%d, services=%v, staff=%v",
		req.ShopID, req.ServiceIDs, req.StaffID)

	if req.ShopID <= 0 {
		return nil, fmt.Errorf("%w: shopID must be positive", ErrInvalidInput)
	}

	today := uc.timeProvider.Now()

	for offset := 0; offset < domain.NextSlotScanDays; offset++ {
		date := today.AddDate(0, 0, offset)

		dayResp, err := uc.slots.Execute(ctx, &get_available_slots.Request{
			ShopID:          req.ShopID,
			Date:            date,
			ServiceIDs:      req.ServiceIDs,
			DurationMinutes: req.DurationMinutes,
			StaffID:         req.StaffID,
		})
		if err != nil {
			if errors.Is(err, get_available_slots.ErrShopNotFound) {
				return nil, ErrShopNotFound
			}
			if errors.Is(err, get_available_slots.ErrServiceNotFound) {
				return nil, ErrServiceNotFound
			}
			if errors.Is(err, get_available_slots.ErrInvalidInput) ||
				errors.Is(err, get_available_slots.ErrInvalidDuration) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			uc.logger.Error("GetNextAvailableSlot: day scan failed for shop=%d, date=%s: %v",
				req.ShopID, date.Format(domain.DateFormat), err)
			return nil, fmt.Errorf("%w: day scan failed: %v", ErrInternal, err)
		}

		for i := range dayResp.Slots {
			if dayResp.Slots[i].Available {
				slot := dayResp.Slots[i]
				uc.logger.Info("GetNextAvailableSlot: found slot %s for shop=%d",
					slot.StartTime.Format(domain.DateFormat+" "+domain.TimeFormat), req.ShopID)
				return &Response{ShopID: req.ShopID, Slot: &slot}, nil
			}
		}
	}

	uc.logger.Info("GetNextAvailableSlot: no slots within %d days for shop=%d",
		domain.NextSlotScanDays, req.ShopID)

	return &Response{ShopID: req.ShopID, Slot: nil}, nil
}
