package documents

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"healthjournal-backend/internal/extract"
	"healthjournal-backend/internal/shared/metrics"
	"healthjournal-backend/internal/shared/storage/object"
	"healthjournal-backend/internal/shared/telemetry"
)

// TextExtractor produces raw text from a stored file.
type TextExtractor interface {
	Extract(ctx context.Context, path, mimeType string) extract.Result
}

// StructuredExtractor turns raw text into structured data, nil on any failure.
type StructuredExtractor interface {
	Extract(ctx context.Context, rawText string, docType DocType, language string) *ExtractedData
}

// Service owns the document lifecycle: upload, async processing, retrieval,
// reprocessing and deletion.
type Service struct {
	Repo           Repo
	Store          object.ObjectStore
	Extractor      TextExtractor
	Structured     StructuredExtractor
	ProcessTimeout time.Duration
}

// UploadInput carries one file plus its metadata from the HTTP layer.
type UploadInput struct {
	UserID   string
	FileName string
	DocType  DocType
	Language string
	Body     io.Reader
}

// Upload stores the file, creates the PENDING record and kicks off the
// extraction pipeline without waiting for it.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	if in.UserID == "" || in.FileName == "" {
		return Document{}, ErrInvalidInput
	}

	key, size, mime, err := s.Store.Save(ctx, in.UserID, in.FileName, in.Body)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		Filename:         in.FileName,
		MimeType:         mime,
		SizeBytes:        size,
		StoragePath:      key,
		DocType:          in.DocType,
		ExtractionStatus: StatusPending,
		UploadedAt:       time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		// Stored file without a record is unreachable garbage; best effort.
		if delErr := s.Store.Delete(ctx, key); delErr != nil {
			telemetry.Error("documents.upload.orphan_cleanup_failed", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"storage_key": key,
				"error":       delErr.Error(),
			})
		}
		return Document{}, err
	}

	metrics.IncUploads()
	telemetry.Info("documents.upload.accepted", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"user_id":     in.UserID,
		"document_id": doc.ID,
		"doc_type":    string(doc.DocType),
		"size_bytes":  size,
		"mime_type":   mime,
	})

	go s.Process(backgroundWithRequestID(ctx), doc, in.Language)
	return doc, nil
}

// List returns the caller's documents, newest first, without payloads.
func (s *Service) List(ctx context.Context, userID string) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID)
}

// Get returns one document including its extracted payload.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// Reprocess re-runs the pipeline on an existing document. Documents currently
// PROCESSING are rejected, as are documents whose stored file has gone missing.
func (s *Service) Reprocess(ctx context.Context, userID, documentID, language string) (Document, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.ExtractionStatus == StatusProcessing {
		return Document{}, ErrAlreadyProcessing
	}
	if !s.Store.Exists(ctx, doc.StoragePath) {
		return Document{}, ErrFileMissing
	}
	if err := s.Repo.ResetForReprocess(ctx, doc.ID); err != nil {
		return Document{}, err
	}
	doc.ExtractionStatus = StatusPending
	doc.ExtractedJSON = nil
	doc.SummaryText = ""

	telemetry.Info("documents.reprocess.accepted", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"user_id":     userID,
		"document_id": doc.ID,
	})

	go s.Process(backgroundWithRequestID(ctx), doc, language)
	return doc, nil
}

// OpenFile streams the original uploaded file.
func (s *Service) OpenFile(ctx context.Context, userID, documentID string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StoragePath)
	if err != nil {
		return Document{}, nil, ErrFileMissing
	}
	return doc, rc, nil
}

// Delete soft-deletes the record, then removes the stored file best effort.
// A failed file removal is logged but never surfaces: the record is gone.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	if userID == "" || documentID == "" {
		return ErrInvalidInput
	}
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.Repo.SoftDelete(ctx, userID, documentID); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, doc.StoragePath); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Error("documents.delete.file_removal_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": documentID,
			"storage_key": doc.StoragePath,
			"error":       err.Error(),
		})
	}
	return nil
}
