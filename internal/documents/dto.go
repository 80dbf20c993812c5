package documents

import (
	"encoding/json"
	"time"
)

// UploadedDocument is the compact shape echoed back from upload endpoints.
type UploadedDocument struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	DocType          DocType   `json:"docType"`
	ExtractionStatus string    `json:"extractionStatus"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

// DocumentSummary is the list-view shape, without the extracted payload.
type DocumentSummary struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	DocType          DocType   `json:"docType"`
	SizeBytes        int64     `json:"sizeBytes"`
	UploadedAt       time.Time `json:"uploadedAt"`
	ExtractionStatus string    `json:"extractionStatus"`
	SummaryText      string    `json:"summaryText"`
}

// DocumentDetail is the full shape returned by Get, with the extracted
// payload parsed into a JSON object rather than a string.
type DocumentDetail struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Filename         string          `json:"filename"`
	MimeType         string          `json:"mimeType"`
	SizeBytes        int64           `json:"sizeBytes"`
	DocType          DocType         `json:"docType"`
	ExtractionStatus string          `json:"extractionStatus"`
	ExtractedData    json.RawMessage `json:"extractedData"`
	SummaryText      string          `json:"summaryText"`
	UploadedAt       time.Time       `json:"uploadedAt"`
}

func toUploadedDocument(doc Document) UploadedDocument {
	return UploadedDocument{
		ID:               doc.ID,
		Filename:         doc.Filename,
		DocType:          doc.DocType,
		ExtractionStatus: string(doc.ExtractionStatus),
		UploadedAt:       doc.UploadedAt,
	}
}

func toDocumentSummary(doc Document) DocumentSummary {
	return DocumentSummary{
		ID:               doc.ID,
		Filename:         doc.Filename,
		DocType:          doc.DocType,
		SizeBytes:        doc.SizeBytes,
		UploadedAt:       doc.UploadedAt,
		ExtractionStatus: string(doc.ExtractionStatus),
		SummaryText:      doc.SummaryText,
	}
}

func toDocumentDetail(doc Document) DocumentDetail {
	detail := DocumentDetail{
		ID:               doc.ID,
		UserID:           doc.UserID,
		Filename:         doc.Filename,
		MimeType:         doc.MimeType,
		SizeBytes:        doc.SizeBytes,
		DocType:          doc.DocType,
		ExtractionStatus: string(doc.ExtractionStatus),
		SummaryText:      doc.SummaryText,
		UploadedAt:       doc.UploadedAt,
	}
	if len(doc.ExtractedJSON) > 0 {
		detail.ExtractedData = json.RawMessage(doc.ExtractedJSON)
	}
	return detail
}
