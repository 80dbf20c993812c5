package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"healthjournal-backend/internal/extract"
	"healthjournal-backend/internal/shared/server/middleware"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery())
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1/documents"))
	return r
}

type multipartFile struct {
	field       string
	name        string
	contentType string
	content     []byte
}

func buildMultipart(t *testing.T, fields map[string]string, files ...multipartFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		hdr.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func doRequest(r *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func pdfFile(name string, size int) multipartFile {
	return multipartFile{field: "file", name: name, contentType: "application/pdf", content: bytes.Repeat([]byte("a"), size)}
}

func TestUploadValidation(t *testing.T) {
	svc := newTestService(NewMemoryRepo(), newStubStore(), &stubExtractor{}, &stubStructured{})
	r := newTestRouter(svc)

	tests := []struct {
		name       string
		fields     map[string]string
		files      []multipartFile
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing userId",
			fields:     map[string]string{"docType": "BLOOD_TEST"},
			files:      []multipartFile{pdfFile("labs.pdf", 100)},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeMissingUserID,
		},
		{
			name:       "missing file",
			fields:     map[string]string{"userId": "u1"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeNoFile,
		},
		{
			name:       "oversized file",
			fields:     map[string]string{"userId": "u1"},
			files:      []multipartFile{pdfFile("big.pdf", 10<<20+1)},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   CodeFileTooLarge,
		},
		{
			name:       "unsupported type",
			fields:     map[string]string{"userId": "u1"},
			files:      []multipartFile{{field: "file", name: "notes.txt", contentType: "text/plain", content: []byte("hello")}},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   CodeInvalidFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := buildMultipart(t, tt.fields, tt.files...)
			rec := doRequest(r, http.MethodPost, "/api/v1/documents/upload", body, ct)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body=%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeBody(t, rec)["code"]; got != tt.wantCode {
				t.Fatalf("code = %v, want %v", got, tt.wantCode)
			}
		})
	}
}

func TestUploadMultipleValidation(t *testing.T) {
	svc := newTestService(NewMemoryRepo(), newStubStore(), &stubExtractor{}, &stubStructured{})
	r := newTestRouter(svc)

	t.Run("no files", func(t *testing.T) {
		body, ct := buildMultipart(t, map[string]string{"userId": "u1"})
		rec := doRequest(r, http.MethodPost, "/api/v1/documents/upload-multiple", body, ct)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := decodeBody(t, rec)["code"]; got != CodeNoFiles {
			t.Fatalf("code = %v", got)
		}
	})

	t.Run("too many files", func(t *testing.T) {
		var files []multipartFile
		for i := 0; i < 11; i++ {
			files = append(files, multipartFile{
				field: "files", name: fmt.Sprintf("doc-%d.pdf", i),
				contentType: "application/pdf", content: []byte("content"),
			})
		}
		body, ct := buildMultipart(t, map[string]string{"userId": "u1"}, files...)
		rec := doRequest(r, http.MethodPost, "/api/v1/documents/upload-multiple", body, ct)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := decodeBody(t, rec)["code"]; got != CodeTooManyFiles {
			t.Fatalf("code = %v", got)
		}
	})

	t.Run("accepts a valid batch", func(t *testing.T) {
		files := []multipartFile{
			{field: "files", name: "a.pdf", contentType: "application/pdf", content: []byte("content a")},
			{field: "files", name: "b.png", contentType: "image/png", content: []byte("content b")},
		}
		body, ct := buildMultipart(t, map[string]string{"userId": "u1", "docType": "OTHER"}, files...)
		rec := doRequest(r, http.MethodPost, "/api/v1/documents/upload-multiple", body, ct)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (body=%s)", rec.Code, rec.Body.String())
		}
		resp := decodeBody(t, rec)
		if resp["count"] != float64(2) {
			t.Fatalf("count = %v", resp["count"])
		}
		if docs := resp["documents"].([]any); len(docs) != 2 {
			t.Fatalf("documents = %v", docs)
		}
	})

	t.Run("bad file in batch rejects whole request", func(t *testing.T) {
		files := []multipartFile{
			{field: "files", name: "ok.pdf", contentType: "application/pdf", content: []byte("content")},
			{field: "files", name: "bad.gif", contentType: "image/gif", content: []byte("gif")},
		}
		body, ct := buildMultipart(t, map[string]string{"userId": "u1"}, files...)
		rec := doRequest(r, http.MethodPost, "/api/v1/documents/upload-multiple", body, ct)
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestUploadThroughPipelineSuccess(t *testing.T) {
	repo := NewMemoryRepo()
	store := newStubStore()
	svc := newTestService(repo, store,
		&stubExtractor{result: extract.Result{Text: strings.Repeat("Hemoglobin: 13.5 g/dL (Normal) ", 5), Method: extract.MethodEmbeddedText}},
		&stubStructured{data: sampleExtractedData()},
	)
	r := newTestRouter(svc)

	body, ct := buildMultipart(t,
		map[string]string{"userId": "u1", "docType": "BLOOD_TEST", "language": "en"},
		pdfFile("labs.pdf", 200),
	)
	rec := doRequest(r, http.MethodPost, "/api/v1/documents/upload", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body=%s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["success"] != true {
		t.Fatalf("success = %v", resp["success"])
	}
	if resp["requestId"] == "" || resp["requestId"] == nil {
		t.Fatal("requestId missing from response")
	}
	docMap, ok := resp["document"].(map[string]any)
	if !ok {
		t.Fatalf("document = %v", resp["document"])
	}
	if docMap["extractionStatus"] != string(StatusPending) {
		t.Fatalf("initial status = %v, want PENDING", docMap["extractionStatus"])
	}
	docID, _ := docMap["id"].(string)

	waitForTerminal(t, repo, "u1", docID)

	rec = doRequest(r, http.MethodGet, "/api/v1/documents/"+docID+"?userId=u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	detail := decodeBody(t, rec)["document"].(map[string]any)
	if detail["extractionStatus"] != string(StatusSuccess) {
		t.Fatalf("final status = %v (summary=%v)", detail["extractionStatus"], detail["summaryText"])
	}
	extracted, ok := detail["extractedData"].(map[string]any)
	if !ok {
		t.Fatalf("extractedData = %v", detail["extractedData"])
	}
	labs, ok := extracted["labs"].([]any)
	if !ok || len(labs) != 1 {
		t.Fatalf("labs = %v", extracted["labs"])
	}
	if lab := labs[0].(map[string]any); lab["testName"] != "Hemoglobin" {
		t.Fatalf("lab = %v", lab)
	}
}

func TestUploadUnreadableImageEndsFailed(t *testing.T) {
	repo := NewMemoryRepo()
	store := newStubStore()
	store.mime = "image/png"
	svc := newTestService(repo, store,
		&stubExtractor{result: extract.Result{Method: extract.MethodNone, Err: "could not extract sufficient text from image"}},
		&stubStructured{data: sampleExtractedData()},
	)
	r := newTestRouter(svc)

	body, ct := buildMultipart(t,
		map[string]string{"userId": "u1"},
		multipartFile{field: "file", name: "blank.png", contentType: "image/png", content: []byte("blank")},
	)
	rec := doRequest(r, http.MethodPost, "/api/v1/documents/upload", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	docID := decodeBody(t, rec)["document"].(map[string]any)["id"].(string)

	waitForTerminal(t, repo, "u1", docID)
	doc := mustGet(t, repo, "u1", docID)
	if doc.ExtractionStatus != StatusFailed {
		t.Fatalf("status = %q, want FAILED", doc.ExtractionStatus)
	}
	if !strings.Contains(doc.SummaryText, "could not extract sufficient text") {
		t.Fatalf("summary = %q", doc.SummaryText)
	}
	if doc.ExtractedJSON != nil {
		t.Fatal("payload must be null on FAILED")
	}
}

func TestDeleteThenGetReturns404(t *testing.T) {
	repo := NewMemoryRepo()
	store := newStubStore()
	doc := seedDocument(t, repo, store)
	if err := repo.MarkSuccess(context.Background(), doc.ID, []byte(`{"labs":[]}`), "ok"); err != nil {
		t.Fatal(err)
	}

	svc := newTestService(repo, store, &stubExtractor{}, &stubStructured{})
	r := newTestRouter(svc)

	rec := doRequest(r, http.MethodDelete, "/api/v1/documents/"+doc.ID,
		strings.NewReader(`{"userId":"user-1"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d (body=%s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(r, http.MethodGet, "/api/v1/documents/"+doc.ID+"?userId=user-1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
	if got := decodeBody(t, rec)["code"]; got != CodeNotFound {
		t.Fatalf("code = %v", got)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	repo := NewMemoryRepo()
	store := newStubStore()
	doc := seedDocument(t, repo, store)

	svc := newTestService(repo, store, &stubExtractor{}, &stubStructured{})
	r := newTestRouter(svc)

	rec := doRequest(r, http.MethodGet, "/api/v1/documents/"+doc.ID+"?userId=somebody-else", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListOmitsPayloadAndDeleted(t *testing.T) {
	repo := NewMemoryRepo()
	store := newStubStore()
	svc := newTestService(repo, store, &stubExtractor{}, &stubStructured{})
	r := newTestRouter(svc)

	older := Document{
		ID: "old", UserID: "u1", Filename: "old.pdf", MimeType: "application/pdf",
		StoragePath: "u1/old.pdf", DocType: DocTypeOther,
		ExtractionStatus: StatusSuccess, UploadedAt: time.Now().Add(-time.Hour),
	}
	newer := Document{
		ID: "new", UserID: "u1", Filename: "new.pdf", MimeType: "application/pdf",
		StoragePath: "u1/new.pdf", DocType: DocTypeOther,
		ExtractionStatus: StatusPending, UploadedAt: time.Now(),
	}
	deleted := Document{
		ID: "gone", UserID: "u1", Filename: "gone.pdf", MimeType: "application/pdf",
		StoragePath: "u1/gone.pdf", DocType: DocTypeOther,
		ExtractionStatus: StatusFailed, UploadedAt: time.Now(),
	}
	for _, d := range []Document{older, newer, deleted} {
		if err := repo.Create(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.SoftDelete(context.Background(), "u1", "gone"); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(r, http.MethodGet, "/api/v1/documents?userId=u1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	docs := decodeBody(t, rec)["documents"].([]any)
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	first := docs[0].(map[string]any)
	if first["id"] != "new" {
		t.Fatalf("first = %v, want newest first", first["id"])
	}
	if _, present := first["extractedData"]; present {
		t.Fatal("list view must not include the extracted payload")
	}
}

func TestReprocessEndpoint(t *testing.T) {
	repo := NewMemoryRepo()
	store := newStubStore()
	doc := seedDocument(t, repo, store)

	svc := newTestService(repo, store,
		&stubExtractor{result: extract.Result{Text: strings.Repeat("text ", 20), Method: extract.MethodOCR}},
		&stubStructured{data: sampleExtractedData()},
	)
	r := newTestRouter(svc)

	t.Run("rejected while processing", func(t *testing.T) {
		if err := repo.MarkProcessing(context.Background(), doc.ID); err != nil {
			t.Fatal(err)
		}
		rec := doRequest(r, http.MethodPost, "/api/v1/documents/"+doc.ID+"/reprocess",
			strings.NewReader(`{"userId":"user-1"}`), "application/json")
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		if got := decodeBody(t, rec)["code"]; got != CodeAlreadyProcessing {
			t.Fatalf("code = %v", got)
		}
	})

	t.Run("accepted on terminal document", func(t *testing.T) {
		if err := repo.MarkFailed(context.Background(), doc.ID, "first run failed"); err != nil {
			t.Fatal(err)
		}
		rec := doRequest(r, http.MethodPost, "/api/v1/documents/"+doc.ID+"/reprocess",
			strings.NewReader(`{"userId":"user-1","language":"en"}`), "application/json")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (body=%s)", rec.Code, rec.Body.String())
		}
		resp := decodeBody(t, rec)
		if resp["success"] != true || resp["documentId"] != doc.ID {
			t.Fatalf("resp = %v", resp)
		}
		waitForTerminal(t, repo, doc.UserID, doc.ID)
		got := mustGet(t, repo, doc.UserID, doc.ID)
		if got.ExtractionStatus != StatusSuccess {
			t.Fatalf("status = %q, want SUCCESS", got.ExtractionStatus)
		}
	})

	t.Run("missing userId", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/v1/documents/"+doc.ID+"/reprocess",
			strings.NewReader(`{}`), "application/json")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestFileEndpoint(t *testing.T) {
	repo := NewMemoryRepo()
	store := newStubStore()
	doc := seedDocument(t, repo, store)

	svc := newTestService(repo, store, &stubExtractor{}, &stubStructured{})
	r := newTestRouter(svc)

	rec := doRequest(r, http.MethodGet, "/api/v1/documents/"+doc.ID+"/file?userId=user-1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content-type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "inline") {
		t.Fatalf("content-disposition = %q", cd)
	}
	if rec.Body.String() != "fake content" {
		t.Fatalf("body = %q", rec.Body.String())
	}

	t.Run("missing stored file", func(t *testing.T) {
		delete(store.objects, doc.StoragePath)
		rec := doRequest(r, http.MethodGet, "/api/v1/documents/"+doc.ID+"/file?userId=user-1", nil, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}
