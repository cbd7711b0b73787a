package create_booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// generateBookingNumber генерирует человекочитаемый номер бронирования:
// миллисекундный таймстемп в base36 плюс случайный суффикс от uuid.
// Таймстемп дает почти монотонный порядок, суффикс исключает коллизии
// в пределах одной миллисекунды.
func generateBookingNumber(now time.Time) string {
	timestamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	random := strings.ToUpper(uuid.NewString()[:4])
	return fmt.Sprintf("OL-%s-%s", timestamp, random)
}
