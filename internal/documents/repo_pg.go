package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document row.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO medical_documents (
    id,
    user_id,
    filename,
    mime_type,
    size_bytes,
    storage_path,
    doc_type,
    extraction_status,
    extracted_json,
    summary_text,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, NULL, $9)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.Filename,
		doc.MimeType,
		doc.SizeBytes,
		doc.StoragePath,
		string(doc.DocType),
		string(doc.ExtractionStatus),
		doc.UploadedAt,
	)
	return err
}

// GetByID fetches a non-deleted document scoped to its owning user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	const query = `
SELECT id, user_id, filename, mime_type, size_bytes, storage_path, doc_type, extraction_status, extracted_json, summary_text, uploaded_at
FROM medical_documents
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
LIMIT 1`

	var doc Document
	var docType, status string
	var extracted []byte
	var summary sql.NullString
	err := r.DB.QueryRowContext(ctx, query, userID, documentID).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Filename,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StoragePath,
		&docType,
		&status,
		&extracted,
		&summary,
		&doc.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.DocType = DocType(docType)
	doc.ExtractionStatus = ExtractionStatus(status)
	doc.ExtractedJSON = extracted
	if summary.Valid {
		doc.SummaryText = summary.String
	}
	return doc, nil
}

// ListByUser lists non-deleted documents newest-first. The heavy
// extracted_json column is intentionally left out.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	const query = `
SELECT id, user_id, filename, mime_type, size_bytes, storage_path, doc_type, extraction_status, summary_text, uploaded_at
FROM medical_documents
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY uploaded_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		var docType, status string
		var summary sql.NullString
		if err := rows.Scan(
			&doc.ID,
			&doc.UserID,
			&doc.Filename,
			&doc.MimeType,
			&doc.SizeBytes,
			&doc.StoragePath,
			&docType,
			&status,
			&summary,
			&doc.UploadedAt,
		); err != nil {
			return nil, err
		}
		doc.DocType = DocType(docType)
		doc.ExtractionStatus = ExtractionStatus(status)
		if summary.Valid {
			doc.SummaryText = summary.String
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// MarkProcessing moves a document into PROCESSING.
func (r *PGRepo) MarkProcessing(ctx context.Context, documentID string) error {
	const query = `
UPDATE medical_documents
SET extraction_status = $1
WHERE id = $2 AND deleted_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, string(StatusProcessing), documentID)
	return err
}

// MarkSuccess stores the extracted payload and summary with SUCCESS status.
func (r *PGRepo) MarkSuccess(ctx context.Context, documentID string, extractedJSON []byte, summary string) error {
	const query = `
UPDATE medical_documents
SET extraction_status = $1, extracted_json = $2, summary_text = $3
WHERE id = $4 AND deleted_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, string(StatusSuccess), extractedJSON, summary, documentID)
	return err
}

// MarkFailed records a terminal failure; the payload stays null.
func (r *PGRepo) MarkFailed(ctx context.Context, documentID string, reason string) error {
	const query = `
UPDATE medical_documents
SET extraction_status = $1, extracted_json = NULL, summary_text = $2
WHERE id = $3 AND deleted_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, string(StatusFailed), reason, documentID)
	return err
}

// ResetForReprocess conditionally resets a terminal document back to PENDING.
func (r *PGRepo) ResetForReprocess(ctx context.Context, documentID string) error {
	const query = `
UPDATE medical_documents
SET extraction_status = $1, extracted_json = NULL, summary_text = NULL
WHERE id = $2 AND deleted_at IS NULL AND extraction_status IN ($3, $4)`
	res, err := r.DB.ExecContext(ctx, query, string(StatusPending), documentID, string(StatusSuccess), string(StatusFailed))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyProcessing
	}
	return nil
}

// SoftDelete marks the document deleted; the row is kept.
func (r *PGRepo) SoftDelete(ctx context.Context, userID, documentID string) error {
	const query = `
UPDATE medical_documents
SET deleted_at = now()
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
