package simpletxmanager

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsSerializationFailure_SeesThroughWrappedChains(t *testing.T) {
	errExecQuery := errors.New("booking.repository: failed to execute query")

	// Ошибка драйвера проходит через упаковку репозитория и usecase
	repoErr := fmt.Errorf("%w: Create - execute insert: %w", errExecQuery, &pq.Error{Code: "40001"})
	wrapped := fmt.Errorf("create_booking: internal error: failed to create booking: %w", repoErr)
	assert.True(t, isSerializationFailure(wrapped))

	// Упаковка ошибки коммита тоже сохраняет цепочку
	commitErr := fmt.Errorf("simpletxmanager: failed to commit transaction: %w", &pq.Error{Code: "40001"})
	assert.True(t, isSerializationFailure(commitErr))

	assert.True(t, isSerializationFailure(&pq.Error{Code: "40P01"}))
	assert.False(t, isSerializationFailure(&pq.Error{Code: "23505"}))
	assert.False(t, isSerializationFailure(errors.New("plain error")))
}
