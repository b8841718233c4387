package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockStaleDocumentLister struct {
	mock.Mock
}

func (m *MockStaleDocumentLister) ListStaleUploaded(ctx context.Context, uploadedBefore time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, uploadedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(documentID string) (*Task, error) {
	args := m.Called(documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("transient"))

	worker := NewWorker(mockProcessor, 100*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// panickyProcessor panics on its first pass and counts every pass.
type panickyProcessor struct {
	passes atomic.Int32
}

func (p *panickyProcessor) ProcessJobs(context.Context) error {
	if p.passes.Add(1) == 1 {
		panic("sweep exploded")
	}
	return nil
}

func TestWorker_RunsImmediatelyAndSurvivesPanics(t *testing.T) {
	processor := &panickyProcessor{}
	worker := NewWorker(processor, 20*time.Millisecond, nil)
	go worker.Start(context.Background())

	assert.Eventually(t, func() bool { return processor.passes.Load() >= 2 }, time.Second, 5*time.Millisecond)

	worker.Stop()
	assert.NotPanics(t, worker.Stop)
}

func TestUploadedSweeper_ProcessJobs_NoStaleDocuments(t *testing.T) {
	lister := new(MockStaleDocumentLister)
	submitter := new(MockSubmitter)

	lister.On("ListStaleUploaded", mock.Anything, mock.Anything, defaultSweepBatch).Return([]string{}, nil)

	sweeper := NewUploadedSweeper(lister, submitter, time.Minute, nil)
	err := sweeper.ProcessJobs(context.Background())

	assert.NoError(t, err)
	lister.AssertExpectations(t)
	submitter.AssertNotCalled(t, "Submit", mock.Anything)
}

func TestUploadedSweeper_ProcessJobs_UsesGracePeriod(t *testing.T) {
	lister := new(MockStaleDocumentLister)
	submitter := new(MockSubmitter)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	lister.On("ListStaleUploaded", mock.Anything, now.Add(-5*time.Minute), defaultSweepBatch).Return([]string{"doc-1"}, nil)
	submitter.On("Submit", "doc-1").Return(&Task{DocumentID: "doc-1"}, nil)

	sweeper := NewUploadedSweeper(lister, submitter, 5*time.Minute, nil)
	sweeper.now = func() time.Time { return now }

	assert.NoError(t, sweeper.ProcessJobs(context.Background()))
	lister.AssertExpectations(t)
	submitter.AssertExpectations(t)
}

func TestUploadedSweeper_ProcessJobs_SkipsInFlightAndContinues(t *testing.T) {
	lister := new(MockStaleDocumentLister)
	submitter := new(MockSubmitter)

	lister.On("ListStaleUploaded", mock.Anything, mock.Anything, mock.Anything).Return([]string{"doc-1", "doc-2", "doc-3"}, nil)
	submitter.On("Submit", "doc-1").Return(nil, domain.ErrIngestionInProgress)
	submitter.On("Submit", "doc-2").Return(nil, errors.New("boom"))
	submitter.On("Submit", "doc-3").Return(&Task{DocumentID: "doc-3"}, nil)

	sweeper := NewUploadedSweeper(lister, submitter, time.Minute, nil)
	assert.NoError(t, sweeper.ProcessJobs(context.Background()))
	submitter.AssertNumberOfCalls(t, "Submit", 3)
}

func TestUploadedSweeper_ProcessJobs_RepositoryError(t *testing.T) {
	lister := new(MockStaleDocumentLister)
	submitter := new(MockSubmitter)

	lister.On("ListStaleUploaded", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("database error"))

	sweeper := NewUploadedSweeper(lister, submitter, time.Minute, nil)
	err := sweeper.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch stale documents")
}
