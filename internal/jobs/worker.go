package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobProcessor performs one pass of periodic background work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor once at start and then on every tick until
// stopped or its context ends.
type Worker struct {
	processor JobProcessor
	interval  time.Duration
	logger    *zap.Logger
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewWorker(processor JobProcessor, interval time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		processor: processor,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	w.logger.Info("worker started", zap.Duration("interval", w.interval))
	w.runPass(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.logger.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

// runPass keeps the loop alive across processor errors and panics.
func (w *Worker) runPass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job pass panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	if err := w.processor.ProcessJobs(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("error processing jobs", zap.Error(err))
	}
}

// Stop signals the loop and waits for the current pass to finish. It is
// safe to call more than once, but Start must have been called.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
	w.logger.Info("worker shutdown complete")
}
