package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlinehq/booking-service/pkg/dbmetrics"
)

type fakeTx struct {
	commitErr error
	commits   int
	rollbacks int
}

func (t *fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) Commit() error {
	t.commits++
	return t.commitErr
}

func (t *fakeTx) Rollback() error {
	t.rollbacks++
	return nil
}

type fakeBeginner struct {
	tx     *fakeTx
	begins int
}

func (b *fakeBeginner) BeginTx(context.Context, *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	b.begins++
	return b.tx, nil
}

// wrapLikeRepository повторяет слоистую упаковку ошибки драйвера: репозиторий
// заворачивает её в свой sentinel, usecase - в свой. Цепочка должна доходить
// до isSerializationFailure целой.
func wrapLikeRepository(driverErr error) error {
	errExecQuery := errors.New("booking.repository: failed to execute query")
	errInternal := errors.New("create_booking: internal error")

	repoErr := fmt.Errorf("%w: GetActiveByShopAndWindow - execute query: %w", errExecQuery, driverErr)
	return fmt.Errorf("%w: failed to get bookings: %w", errInternal, repoErr)
}

func TestDoSerializable_RetriesWrappedSerializationFailure(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(beginner)

	attempts := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		attempts++
		return wrapLikeRepository(&pq.Error{Code: "40001"})
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, beginner.tx.rollbacks)
	assert.Contains(t, err.Error(), "serialization retries exhausted")

	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))
	assert.Equal(t, pq.ErrorCode("40001"), pqErr.Code)
}

func TestDoSerializable_RetriesWrappedDeadlock(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(beginner)

	attempts := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		attempts++
		return wrapLikeRepository(&pq.Error{Code: "40P01"})
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoSerializable_DoesNotRetryOtherErrors(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(beginner)

	boom := errors.New("constraint violation")
	attempts := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		attempts++
		return wrapLikeRepository(boom)
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, beginner.tx.rollbacks)
}

func TestDoSerializable_RetriesCommitSerializationFailure(t *testing.T) {
	tx := &fakeTx{commitErr: &pq.Error{Code: "40001"}}
	beginner := &fakeBeginner{tx: tx}
	m := NewTransactionManager(beginner)

	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommitTx)
	assert.Equal(t, 3, tx.commits)
}

func TestDoSerializable_SucceedsAfterRetry(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(beginner)

	attempts := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return wrapLikeRepository(&pq.Error{Code: "40001"})
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, beginner.tx.commits)
}
