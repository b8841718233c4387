package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// SpanAttributes are the identifiers attached to service spans as tags.
type SpanAttributes struct {
	RequesterID string
	DocumentID  string
	KnowledgeID string
	QueryID     string
	Operation   string
}

func (a SpanAttributes) tags() map[string]string {
	tags := make(map[string]string, 4)
	for key, value := range map[string]string{
		"requester_id": a.RequesterID,
		"document_id":  a.DocumentID,
		"knowledge_id": a.KnowledgeID,
		"query_id":     a.QueryID,
	} {
		if value != "" {
			tags[key] = value
		}
	}
	return tags
}

// Span is a nil-safe handle on a Sentry span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s != nil && s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports err on the span's hub.
func (s *Span) SetError(err error) {
	if s == nil || s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan opens a child of the span already in ctx, or a new transaction
// when there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	for key, value := range attrs.tags() {
		span.SetTag(key, value)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), &Span{inner: span}
}

// CaptureError reports err on the hub bound to ctx, falling back to the global hub.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// DocumentStatusChanged leaves a breadcrumb so errors captured later in the
// same run show the path the document took through ingestion.
func DocumentStatusChanged(ctx context.Context, documentID, status string) {
	crumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  "ingestion",
		Message:   "document " + status,
		Data:      map[string]interface{}{"document_id": documentID},
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(crumb, nil)
		return
	}
	sentry.AddBreadcrumb(crumb)
}
