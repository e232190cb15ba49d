package application

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"telegram-gather/internal/domain"
)

var ErrDispatcherClosed = errors.New("dispatcher is shut down")

type MessageHandler interface {
	Handle(ctx context.Context, msg *domain.IncomingAudioMessage) Outcome
}

// Dispatcher runs every inbound event on its own goroutine. Runs are detached
// from the delivering context and always run to completion.
type Dispatcher struct {
	handler MessageHandler
	sem     *semaphore.Weighted
	logger  *slog.Logger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	shutdown bool
}

// NewDispatcher creates a dispatcher. maxInFlight <= 0 means no limit.
func NewDispatcher(handler MessageHandler, maxInFlight int, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		handler: handler,
		logger:  logger,
	}
	if maxInFlight > 0 {
		d.sem = semaphore.NewWeighted(int64(maxInFlight))
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg *domain.IncomingAudioMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.shutdown {
		return ErrDispatcherClosed
	}

	runCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("message handler panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()

		if d.sem != nil {
			// runCtx is never cancelled, so Acquire only returns once a slot frees up.
			if err := d.sem.Acquire(runCtx, 1); err != nil {
				d.logger.Error("acquiring pipeline slot", "error", err)
				return
			}
			defer d.sem.Release(1)
		}

		d.handler.Handle(runCtx, msg)
	}()

	return nil
}

// Shutdown stops accepting events and waits for in-flight runs, or for ctx
// to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.shutdown = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
