package documents

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"healthjournal-backend/internal/extract"
	"healthjournal-backend/internal/shared/metrics"
	"healthjournal-backend/internal/shared/telemetry"
)

// User-facing terminal failure reasons.
const (
	msgNoText     = "Could not extract text from this document"
	msgAIFailed   = "AI processing failed or quota is exhausted; try reprocessing later"
	msgUnexpected = "Unexpected error while processing the document"
)

// Extracted text shorter than this is not worth sending to the model.
const minExtractedTextLen = 10

// Process runs the full extraction pipeline for one document. It is launched
// as a goroutine after the upload/reprocess response is sent and owns the
// document's status transitions; every exit path lands on a terminal status,
// never leaving the row stuck in PROCESSING.
func (s *Service) Process(ctx context.Context, doc Document, language string) {
	if s.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ProcessTimeout)
		defer cancel()
	}

	startedAt := time.Now().UTC()
	metrics.IncExtractionStarted()
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("documents.pipeline.panic", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"document_id": doc.ID,
				"error":       r,
			})
			s.fail(ctx, doc, msgUnexpected, startedAt)
		}
	}()

	if err := s.Repo.MarkProcessing(ctx, doc.ID); err != nil {
		telemetry.Error("documents.pipeline.mark_processing_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		s.fail(ctx, doc, msgUnexpected, startedAt)
		return
	}
	s.logTransition(ctx, doc, StatusPending, StatusProcessing, startedAt)

	path, err := s.Store.Path(doc.StoragePath)
	if err != nil {
		s.fail(ctx, doc, msgUnexpected, startedAt)
		return
	}

	res := s.Extractor.Extract(ctx, path, doc.MimeType)
	text := strings.TrimSpace(res.Text)
	if res.Method == extract.MethodNone || len(text) < minExtractedTextLen {
		reason := res.Err
		if reason == "" {
			reason = msgNoText
		}
		s.fail(ctx, doc, reason, startedAt)
		return
	}

	data := s.Structured.Extract(ctx, text, doc.DocType, language)
	if data == nil {
		s.fail(ctx, doc, msgAIFailed, startedAt)
		return
	}

	payload, err := json.Marshal(storedPayload{
		ExtractedData:    *data,
		ExtractionMethod: res.Method,
	})
	if err != nil {
		s.fail(ctx, doc, msgUnexpected, startedAt)
		return
	}

	// MarkSuccess runs on a fresh context so a pipeline deadline that fired
	// during the AI call cannot block persisting the result we already have.
	if err := s.Repo.MarkSuccess(context.Background(), doc.ID, payload, data.ShortSummary); err != nil {
		telemetry.Error("documents.pipeline.mark_success_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		s.fail(ctx, doc, msgUnexpected, startedAt)
		return
	}
	s.logTransition(ctx, doc, StatusProcessing, StatusSuccess, startedAt)
}

func (s *Service) fail(ctx context.Context, doc Document, reason string, startedAt time.Time) {
	// Background context: the pipeline context may already be expired and a
	// document must never stay in PROCESSING.
	if err := s.Repo.MarkFailed(context.Background(), doc.ID, reason); err != nil {
		telemetry.Error("documents.pipeline.mark_failed_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
			"reason":      reason,
		})
		return
	}
	s.logTransition(ctx, doc, StatusProcessing, StatusFailed, startedAt)
}

func (s *Service) logTransition(ctx context.Context, doc Document, from, to ExtractionStatus, startedAt time.Time) {
	switch to {
	case StatusSuccess:
		metrics.IncExtractionSucceeded()
		metrics.ObserveExtractionDurationMs(float64(time.Since(startedAt).Milliseconds()))
	case StatusFailed:
		metrics.IncExtractionFailed()
		metrics.ObserveExtractionDurationMs(float64(time.Since(startedAt).Milliseconds()))
	}
	telemetry.Info("documents.pipeline.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           doc.UserID,
		"document_id":       doc.ID,
		"status":            string(to),
		"status_transition": string(from) + "->" + string(to),
		"duration_ms":       float64(time.Since(startedAt).Microseconds()) / 1000.0,
	})
}
