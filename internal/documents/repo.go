package documents

import "context"

// Repo defines persistence operations for medical documents. All read paths
// exclude soft-deleted rows.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	MarkProcessing(ctx context.Context, documentID string) error
	MarkSuccess(ctx context.Context, documentID string, extractedJSON []byte, summary string) error
	MarkFailed(ctx context.Context, documentID string, reason string) error
	// ResetForReprocess moves a terminal document back to PENDING and clears
	// its payload. It returns ErrAlreadyProcessing when the document is not in
	// a terminal status, so a racing reprocess is rejected rather than queued.
	ResetForReprocess(ctx context.Context, documentID string) error
	SoftDelete(ctx context.Context, userID, documentID string) error
}
