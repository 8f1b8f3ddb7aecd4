// Package saga 按顺序执行一组本地步骤，失败时逆序补偿已完成的步骤
//
// 用途：账户扣款与库存扣减分属不同的行，存储层不假设跨实体事务，
// 因此购买流程采用"先扣款，再扣库存，失败则退款"的补偿顺序。
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Step 表示Saga中的一个步骤
// Action和Compensate都可以为nil（最后一步通常无需补偿）
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga 表示一次补偿式执行
type Saga struct {
	steps    []Step
	executed []Step
	// compensated 已执行的补偿数（含失败的补偿）
	compensated int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewSaga 创建一个新的Saga
//
// 示例：
//
//	s := saga.NewSaga(10 * time.Second)
//	s.AddStep("扣款", spend, refund)
//	s.AddStep("扣库存", sell, restock)
//	err := s.Execute(ctx)
func NewSaga(timeout time.Duration) *Saga {
	return &Saga{
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// WithLogger 指定补偿失败时使用的日志器
func (s *Saga) WithLogger(l *slog.Logger) *Saga {
	if l != nil {
		s.logger = l
	}
	return s
}

// AddStep 添加一个步骤，按添加顺序执行，按逆序补偿
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 执行所有步骤
//
// 某步失败时逆序执行已完成步骤的补偿，返回的错误包装了失败原因，
// 可用errors.Is判断；补偿本身失败时，补偿错误一并通过errors.Join返回。
// 补偿使用独立的Context，避免因超时导致补偿也被取消。
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			cerr := s.compensate(context.WithoutCancel(ctx))
			return errors.Join(fmt.Errorf("saga超时: %w", err), cerr)
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				cerr := s.compensate(context.WithoutCancel(ctx))
				return errors.Join(fmt.Errorf("步骤[%d:%s]执行失败: %w", i, step.Name, err), cerr)
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// compensate 逆序执行补偿；某个补偿失败时继续执行其余补偿
func (s *Saga) compensate(ctx context.Context) error {
	var errs []error
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		s.compensated++
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("补偿失败，需人工介入",
				slog.String("step", step.Name),
				slog.Any("error", err))
			errs = append(errs, &CompensationError{Step: step.Name, Err: err})
		}
	}
	s.executed = nil
	return errors.Join(errs...)
}

// Compensated 上次Execute执行过的补偿步骤数
func (s *Saga) Compensated() int {
	return s.compensated
}

// CompensationError 补偿失败错误
type CompensationError struct {
	Step string
	Err  error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("补偿[%s]失败: %v", e.Step, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}
