package documents

import (
	"encoding/json"
	"strings"
	"time"
)

// DocType classifies an uploaded medical document.
type DocType string

const (
	DocTypeBloodTest  DocType = "BLOOD_TEST"
	DocTypeImaging    DocType = "IMAGING"
	DocTypeDoctorNote DocType = "DOCTOR_NOTE"
	DocTypeOther      DocType = "OTHER"
)

// ParseDocType maps caller input onto the closed set, defaulting to OTHER.
func ParseDocType(raw string) DocType {
	switch DocType(strings.ToUpper(strings.TrimSpace(raw))) {
	case DocTypeBloodTest:
		return DocTypeBloodTest
	case DocTypeImaging:
		return DocTypeImaging
	case DocTypeDoctorNote:
		return DocTypeDoctorNote
	default:
		return DocTypeOther
	}
}

// ExtractionStatus is the pipeline state of a document.
type ExtractionStatus string

const (
	StatusPending    ExtractionStatus = "PENDING"
	StatusProcessing ExtractionStatus = "PROCESSING"
	StatusSuccess    ExtractionStatus = "SUCCESS"
	StatusFailed     ExtractionStatus = "FAILED"
)

// Terminal reports whether the status ends a pipeline run. Terminal statuses
// are not final: Reprocess resets them back to PENDING.
func (s ExtractionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Document is a persisted medical document record.
type Document struct {
	ID               string
	UserID           string
	Filename         string
	MimeType         string
	SizeBytes        int64
	StoragePath      string
	DocType          DocType
	ExtractionStatus ExtractionStatus
	ExtractedJSON    []byte // non-nil iff ExtractionStatus == SUCCESS
	SummaryText      string
	UploadedAt       time.Time
	DeletedAt        *time.Time
}

// LabResult is one extracted lab measurement. Order follows the model output.
type LabResult struct {
	TestName   string     `json:"testName"`
	Value      FlexString `json:"value"`
	Unit       string     `json:"unit"`
	RefRange   string     `json:"refRange,omitempty"`
	Flag       string     `json:"flag,omitempty"`
	ResultDate string     `json:"resultDate,omitempty"`
}

// ExtractedData is the structured payload produced by the AI extraction.
type ExtractedData struct {
	DocTypeGuess       *string     `json:"docTypeGuess"`
	DocDateGuess       *string     `json:"docDateGuess"`
	Labs               []LabResult `json:"labs"`
	MedsMentioned      []string    `json:"medsMentioned"`
	DiagnosesMentioned []string    `json:"diagnosesMentioned"`
	FollowupStatements []string    `json:"followupStatements"`
	ShortSummary       string      `json:"shortSummary"`
	Confidence         float64     `json:"confidence"`
}

// storedPayload is what gets serialized into extracted_json: the payload plus
// the text-extraction method for diagnostics.
type storedPayload struct {
	ExtractedData
	ExtractionMethod string `json:"extractionMethod"`
}

// FlexString tolerates models returning numbers where strings were requested.
type FlexString string

// UnmarshalJSON accepts strings and numbers; anything else becomes empty.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*s = FlexString(num.String())
		return nil
	}
	*s = ""
	return nil
}

const defaultConfidence = 0.5

// decodeExtractedData parses model output into ExtractedData, backfilling
// missing arrays as empty, a missing summary as "" and a missing or
// non-numeric confidence as 0.5 (clamped to [0,1]).
func decodeExtractedData(raw []byte) (*ExtractedData, error) {
	var aux struct {
		DocTypeGuess       *string         `json:"docTypeGuess"`
		DocDateGuess       *string         `json:"docDateGuess"`
		Labs               []LabResult     `json:"labs"`
		MedsMentioned      []string        `json:"medsMentioned"`
		DiagnosesMentioned []string        `json:"diagnosesMentioned"`
		FollowupStatements []string        `json:"followupStatements"`
		ShortSummary       string          `json:"shortSummary"`
		Confidence         json.RawMessage `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return nil, err
	}

	data := &ExtractedData{
		DocTypeGuess:       aux.DocTypeGuess,
		DocDateGuess:       aux.DocDateGuess,
		Labs:               aux.Labs,
		MedsMentioned:      aux.MedsMentioned,
		DiagnosesMentioned: aux.DiagnosesMentioned,
		FollowupStatements: aux.FollowupStatements,
		ShortSummary:       aux.ShortSummary,
		Confidence:         defaultConfidence,
	}
	if data.Labs == nil {
		data.Labs = []LabResult{}
	}
	if data.MedsMentioned == nil {
		data.MedsMentioned = []string{}
	}
	if data.DiagnosesMentioned == nil {
		data.DiagnosesMentioned = []string{}
	}
	if data.FollowupStatements == nil {
		data.FollowupStatements = []string{}
	}

	if len(aux.Confidence) > 0 {
		var conf float64
		if err := json.Unmarshal(aux.Confidence, &conf); err == nil {
			if conf < 0 {
				conf = 0
			}
			if conf > 1 {
				conf = 1
			}
			data.Confidence = conf
		}
	}

	return data, nil
}
