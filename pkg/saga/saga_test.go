package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOutOfStock = errors.New("库存不足")

// ledgerSaga 模拟购买流程：扣款 → 扣库存 → 标记执行
func ledgerSaga(balance, stock *int, price, quantity int, finalize func(ctx context.Context) error) *Saga {
	s := NewSaga(time.Second)
	s.AddStep("扣款",
		func(ctx context.Context) error {
			if *balance < price {
				return errors.New("余额不足")
			}
			*balance -= price
			return nil
		},
		func(ctx context.Context) error {
			*balance += price
			return nil
		},
	)
	s.AddStep("扣库存",
		func(ctx context.Context) error {
			if *stock < quantity {
				return errOutOfStock
			}
			*stock -= quantity
			return nil
		},
		func(ctx context.Context) error {
			*stock += quantity
			return nil
		},
	)
	s.AddStep("标记执行", finalize, nil)
	return s
}

func TestSaga_Execute(t *testing.T) {
	t.Run("全部成功", func(t *testing.T) {
		balance, stock := 10, 3
		s := ledgerSaga(&balance, &stock, 10, 1, func(ctx context.Context) error { return nil })

		require.NoError(t, s.Execute(context.Background()))
		assert.Equal(t, 0, balance)
		assert.Equal(t, 2, stock)
		assert.Equal(t, 0, s.Compensated())
	})

	t.Run("扣库存失败时退款", func(t *testing.T) {
		balance, stock := 10, 0
		s := ledgerSaga(&balance, &stock, 10, 1, func(ctx context.Context) error { return nil })

		err := s.Execute(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, errOutOfStock)
		assert.Equal(t, 10, balance, "余额应恢复到执行前")
		assert.Equal(t, 0, stock)
		assert.Equal(t, 1, s.Compensated())
	})

	t.Run("最后一步失败时逆序补偿", func(t *testing.T) {
		balance, stock := 10, 3
		finalizeErr := errors.New("已执行")
		s := ledgerSaga(&balance, &stock, 10, 2, func(ctx context.Context) error { return finalizeErr })

		err := s.Execute(context.Background())
		assert.ErrorIs(t, err, finalizeErr)
		assert.Equal(t, 10, balance)
		assert.Equal(t, 3, stock)
	})
}

func TestSaga_CompensationOrder(t *testing.T) {
	var order []string
	s := NewSaga(0)
	for _, name := range []string{"a", "b", "c"} {
		name := name
		s.AddStep(name,
			func(ctx context.Context) error {
				if name == "c" {
					return errors.New("fail")
				}
				return nil
			},
			func(ctx context.Context) error {
				order = append(order, name)
				return nil
			},
		)
	}

	require.Error(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestSaga_CompensationFailure(t *testing.T) {
	refundErr := errors.New("退款失败")
	s := NewSaga(0)
	s.AddStep("扣款", func(ctx context.Context) error { return nil }, func(ctx context.Context) error { return refundErr })
	s.AddStep("扣库存", func(ctx context.Context) error { return errOutOfStock }, nil)

	err := s.Execute(context.Background())

	assert.ErrorIs(t, err, errOutOfStock)
	assert.ErrorIs(t, err, refundErr)
	var cerr *CompensationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "扣款", cerr.Step)
}

func TestSaga_Timeout(t *testing.T) {
	compensated := false
	s := NewSaga(20 * time.Millisecond)
	s.AddStep("慢操作",
		func(ctx context.Context) error {
			time.Sleep(50 * time.Millisecond)
			return nil
		},
		func(ctx context.Context) error {
			compensated = true
			return nil
		},
	)
	s.AddStep("不会执行", func(ctx context.Context) error { return nil }, nil)

	err := s.Execute(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, compensated)
}
