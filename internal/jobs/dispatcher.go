package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloo-solutions/askdesk/internal/domain"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"
)

var (
	// ErrDispatcherClosed is returned by Submit after Shutdown.
	ErrDispatcherClosed = errors.New("ingestion dispatcher is shut down")
	// ErrTaskRunning is returned by Task.Result before the run has finished.
	ErrTaskRunning = errors.New("ingestion task still running")
)

// Runner executes one ingestion run for a document.
type Runner interface {
	Run(ctx context.Context, documentID string) (*domain.IngestionResult, error)
}

// Task is a handle on one background ingestion run.
type Task struct {
	DocumentID string

	cancel context.CancelFunc
	done   chan struct{}

	result *domain.IngestionResult
	err    error
}

// Done is closed when the run has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the run finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (*domain.IngestionResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking.
func (t *Task) Result() (*domain.IngestionResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	default:
		return nil, ErrTaskRunning
	}
}

// Cancel asks the run to stop. The pipeline still records a terminal status.
func (t *Task) Cancel() {
	t.cancel()
}

// Dispatcher runs ingestion tasks in the background, at most one per document.
type Dispatcher struct {
	runner Runner
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	inflight cmap.ConcurrentMap[string, *Task]
	sem      chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. maxConcurrent <= 0 means unbounded.
func NewDispatcher(runner Runner, maxConcurrent int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		runner:   runner,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		inflight: cmap.New[*Task](),
	}
	if maxConcurrent > 0 {
		d.sem = make(chan struct{}, maxConcurrent)
	}
	return d
}

// Submit starts a run for documentID and returns immediately.
func (d *Dispatcher) Submit(documentID string) (*Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDispatcherClosed
	}

	ctx, cancel := context.WithCancel(d.ctx)
	task := &Task{
		DocumentID: documentID,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	if !d.inflight.SetIfAbsent(documentID, task) {
		cancel()
		return nil, domain.ErrIngestionInProgress
	}

	d.wg.Add(1)
	go d.run(ctx, task)
	return task, nil
}

// Get returns the in-flight task for documentID, if any.
func (d *Dispatcher) Get(documentID string) (*Task, bool) {
	return d.inflight.Get(documentID)
}

// InFlight reports how many runs are active or queued.
func (d *Dispatcher) InFlight() int {
	return d.inflight.Count()
}

func (d *Dispatcher) run(ctx context.Context, task *Task) {
	defer d.wg.Done()
	defer close(task.done)
	defer task.cancel()
	// Release the document before done closes so a waiter can resubmit immediately.
	defer d.inflight.RemoveCb(task.DocumentID, func(_ string, v *Task, exists bool) bool {
		return exists && v == task
	})

	if d.sem != nil {
		select {
		case d.sem <- struct{}{}:
			defer func() { <-d.sem }()
		case <-ctx.Done():
			task.err = ctx.Err()
			return
		}
	}

	defer func() {
		if r := recover(); r != nil {
			task.err = fmt.Errorf("ingestion run panicked: %v", r)
			d.logger.Error("ingestion run panicked",
				zap.String("document_id", task.DocumentID),
				zap.Any("panic", r),
			)
		}
	}()

	task.result, task.err = d.runner.Run(ctx, task.DocumentID)
	if task.err != nil {
		d.logger.Warn("ingestion run returned error",
			zap.String("document_id", task.DocumentID),
			zap.Error(task.err),
		)
	}
}

// Shutdown cancels every in-flight run and waits for them to finish or ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()

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
