package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo for dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]Document // documentID -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document)}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

// GetByID returns a non-deleted document scoped to its owning user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.UserID != userID || doc.DeletedAt != nil {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByUser returns non-deleted documents newest-first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Document
	for _, doc := range r.docs {
		if doc.UserID == userID && doc.DeletedAt == nil {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

// MarkProcessing moves a document into PROCESSING.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, documentID string) error {
	return r.update(ctx, documentID, func(doc *Document) error {
		doc.ExtractionStatus = StatusProcessing
		return nil
	})
}

// MarkSuccess stores the extracted payload and summary with SUCCESS status.
func (r *MemoryRepo) MarkSuccess(ctx context.Context, documentID string, extractedJSON []byte, summary string) error {
	return r.update(ctx, documentID, func(doc *Document) error {
		doc.ExtractionStatus = StatusSuccess
		doc.ExtractedJSON = extractedJSON
		doc.SummaryText = summary
		return nil
	})
}

// MarkFailed records a terminal failure.
func (r *MemoryRepo) MarkFailed(ctx context.Context, documentID string, reason string) error {
	return r.update(ctx, documentID, func(doc *Document) error {
		doc.ExtractionStatus = StatusFailed
		doc.ExtractedJSON = nil
		doc.SummaryText = reason
		return nil
	})
}

// ResetForReprocess conditionally resets a terminal document back to PENDING.
func (r *MemoryRepo) ResetForReprocess(ctx context.Context, documentID string) error {
	return r.update(ctx, documentID, func(doc *Document) error {
		if !doc.ExtractionStatus.Terminal() {
			return ErrAlreadyProcessing
		}
		doc.ExtractionStatus = StatusPending
		doc.ExtractedJSON = nil
		doc.SummaryText = ""
		return nil
	})
}

// SoftDelete marks the document deleted.
func (r *MemoryRepo) SoftDelete(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.UserID != userID || doc.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	doc.DeletedAt = &now
	r.docs[documentID] = doc
	return nil
}

func (r *MemoryRepo) update(ctx context.Context, documentID string, fn func(*Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.DeletedAt != nil {
		return ErrNotFound
	}
	if err := fn(&doc); err != nil {
		return err
	}
	r.docs[documentID] = doc
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
