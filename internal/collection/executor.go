package collection

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor runs reminder side effects after a mutation has completed.
type Executor interface {
	Submit(task func())
}

// SyncExecutor runs each task before Submit returns.
type SyncExecutor struct{}

func (SyncExecutor) Submit(task func()) { task() }

// AsyncExecutor runs each task on its own goroutine.
type AsyncExecutor struct {
	group  errgroup.Group
	logger *zap.Logger
}

// NewAsyncExecutor creates an executor that logs panicking tasks.
func NewAsyncExecutor(logger *zap.Logger) *AsyncExecutor {
	return &AsyncExecutor{logger: logger}
}

func (e *AsyncExecutor) Submit(task func()) {
	e.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("reminder task panicked: %v", r)
				e.logger.Error("Reminder task panicked", zap.Any("panic", r))
			}
		}()
		task()
		return nil
	})
}

// Wait blocks until every submitted task has finished.
func (e *AsyncExecutor) Wait() {
	_ = e.group.Wait()
}
