package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"go.uber.org/zap"
)

const defaultSweepBatch = 50

// StaleDocumentLister finds documents that were uploaded but never picked up.
type StaleDocumentLister interface {
	ListStaleUploaded(ctx context.Context, uploadedBefore time.Time, limit int) ([]string, error)
}

// Submitter hands a document to the ingestion dispatcher.
type Submitter interface {
	Submit(documentID string) (*Task, error)
}

// UploadedSweeper resubmits documents stuck in Uploaded, e.g. after a restart.
// Documents in any other state are left alone.
type UploadedSweeper struct {
	lister    StaleDocumentLister
	submitter Submitter
	grace     time.Duration
	batch     int
	logger    *zap.Logger
	now       func() time.Time
}

// NewUploadedSweeper creates a sweeper that ignores documents younger than grace.
func NewUploadedSweeper(lister StaleDocumentLister, submitter Submitter, grace time.Duration, logger *zap.Logger) *UploadedSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadedSweeper{
		lister:    lister,
		submitter: submitter,
		grace:     grace,
		batch:     defaultSweepBatch,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessJobs implements the JobProcessor interface
func (s *UploadedSweeper) ProcessJobs(ctx context.Context) error {
	ids, err := s.lister.ListStaleUploaded(ctx, s.now().UTC().Add(-s.grace), s.batch)
	if err != nil {
		return fmt.Errorf("failed to fetch stale documents: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	s.logger.Info("resubmitting stale uploaded documents", zap.Int("count", len(ids)))

	for _, id := range ids {
		if _, err := s.submitter.Submit(id); err != nil {
			if errors.Is(err, domain.ErrIngestionInProgress) {
				continue
			}
			if errors.Is(err, ErrDispatcherClosed) {
				return nil
			}
			s.logger.Error("failed to resubmit document", zap.String("document_id", id), zap.Error(err))
		}
	}

	return nil
}
