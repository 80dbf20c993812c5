package documents

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"healthjournal-backend/internal/shared/server/respond"
)

const (
	maxFileBytes      = 10 << 20 // 10MB per file
	maxFilesPerUpload = 10
	defaultLanguage   = "en"
)

var allowedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

// Handler exposes the document endpoints.
type Handler struct {
	Service *Service
}

// NewHandler creates a document handler backed by the given service.
func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes mounts the document endpoints on the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.Upload)
	rg.POST("/upload-multiple", h.UploadMultiple)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/reprocess", h.Reprocess)
	rg.GET("/:id/file", h.File)
	rg.DELETE("/:id", h.Delete)
}

// Upload accepts one multipart file and creates a PENDING document.
func (h *Handler) Upload(c *gin.Context) {
	userID := strings.TrimSpace(c.PostForm("userId"))
	if userID == "" {
		respond.Error(c, http.StatusBadRequest, CodeMissingUserID, "userId is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, CodeNoFile, "file is required")
		return
	}
	if !h.validateFile(c, fileHeader) {
		return
	}

	doc, ok := h.saveUpload(c, userID, fileHeader)
	if !ok {
		return
	}

	respond.OK(c, gin.H{
		"success":   true,
		"document":  toUploadedDocument(doc),
		"requestId": c.GetString("requestId"),
	})
}

// UploadMultiple accepts up to 10 multipart files in one request.
func (h *Handler) UploadMultiple(c *gin.Context) {
	userID := strings.TrimSpace(c.PostForm("userId"))
	if userID == "" {
		respond.Error(c, http.StatusBadRequest, CodeMissingUserID, "userId is required")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, CodeNoFiles, "files are required")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		respond.Error(c, http.StatusBadRequest, CodeNoFiles, "files are required")
		return
	}
	if len(files) > maxFilesPerUpload {
		respond.Error(c, http.StatusBadRequest, CodeTooManyFiles,
			fmt.Sprintf("at most %d files per request", maxFilesPerUpload))
		return
	}

	// Validate the whole batch before storing anything, so a bad file at
	// position N does not leave N-1 half-accepted uploads behind.
	for _, fh := range files {
		if !h.validateFile(c, fh) {
			return
		}
	}

	uploaded := make([]UploadedDocument, 0, len(files))
	for _, fh := range files {
		doc, ok := h.saveUpload(c, userID, fh)
		if !ok {
			return
		}
		uploaded = append(uploaded, toUploadedDocument(doc))
	}

	respond.OK(c, gin.H{
		"success":   true,
		"documents": uploaded,
		"count":     len(uploaded),
		"requestId": c.GetString("requestId"),
	})
}

// List returns the caller's documents, newest first.
func (h *Handler) List(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		respond.Error(c, http.StatusBadRequest, CodeMissingUserID, "userId is required")
		return
	}

	docs, err := h.Service.List(h.requestContext(c), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, CodeInternalError, "could not list documents")
		return
	}

	summaries := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, toDocumentSummary(doc))
	}
	respond.OK(c, gin.H{"documents": summaries})
}

// Get returns one document with its extracted payload.
func (h *Handler) Get(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		respond.Error(c, http.StatusBadRequest, CodeMissingUserID, "userId is required")
		return
	}

	doc, err := h.Service.Get(h.requestContext(c), userID, c.Param("id"))
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	respond.OK(c, gin.H{"document": toDocumentDetail(doc)})
}

type reprocessRequest struct {
	UserID   string `json:"userId"`
	Language string `json:"language"`
}

// Reprocess re-runs the extraction pipeline for a terminal document.
func (h *Handler) Reprocess(c *gin.Context) {
	var req reprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		respond.Error(c, http.StatusBadRequest, CodeMissingUserID, "userId is required")
		return
	}
	language := req.Language
	if language == "" {
		language = defaultLanguage
	}

	doc, err := h.Service.Reprocess(h.requestContext(c), strings.TrimSpace(req.UserID), c.Param("id"), language)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyProcessing):
		respond.Error(c, http.StatusConflict, CodeAlreadyProcessing, "document is already processing")
		return
	case errors.Is(err, ErrFileMissing):
		respond.Error(c, http.StatusNotFound, CodeFileMissing, "original file is no longer available")
		return
	default:
		h.notFoundOrInternal(c, err)
		return
	}

	respond.OK(c, gin.H{
		"success":    true,
		"message":    "reprocessing started",
		"documentId": doc.ID,
	})
}

// File streams the original uploaded file back to the owner.
func (h *Handler) File(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		respond.Error(c, http.StatusBadRequest, CodeMissingUserID, "userId is required")
		return
	}

	doc, rc, err := h.Service.OpenFile(h.requestContext(c), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrFileMissing) {
			respond.Error(c, http.StatusNotFound, CodeFileMissing, "original file is no longer available")
			return
		}
		h.notFoundOrInternal(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.MimeType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", doc.Filename),
	})
}

type deleteRequest struct {
	UserID string `json:"userId"`
}

// Delete soft-deletes a document.
func (h *Handler) Delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		respond.Error(c, http.StatusBadRequest, CodeMissingUserID, "userId is required")
		return
	}

	if err := h.Service.Delete(h.requestContext(c), strings.TrimSpace(req.UserID), c.Param("id")); err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) validateFile(c *gin.Context, fh *multipart.FileHeader) bool {
	if fh.Size > maxFileBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge,
			fmt.Sprintf("file %q exceeds the 10MB limit", fh.Filename))
		return false
	}
	if !allowedMime(fh.Header.Get("Content-Type")) {
		respond.Error(c, http.StatusUnsupportedMediaType, CodeInvalidFileType,
			"only PDF, JPEG and PNG files are accepted")
		return false
	}
	return true
}

func (h *Handler) saveUpload(c *gin.Context, userID string, fh *multipart.FileHeader) (Document, bool) {
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, CodeUploadError, "could not read uploaded file")
		return Document{}, false
	}
	defer f.Close()

	doc, err := h.Service.Upload(h.requestContext(c), UploadInput{
		UserID:   userID,
		FileName: fh.Filename,
		DocType:  ParseDocType(c.PostForm("docType")),
		Language: languageOrDefault(c.PostForm("language")),
		Body:     f,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, CodeUploadError, "could not store uploaded file")
		return Document{}, false
	}
	return doc, true
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, CodeNotFound, "document not found")
		return
	}
	respond.Error(c, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func (h *Handler) requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), c.GetString("requestId"))
}

func allowedMime(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := allowedMimeTypes[strings.ToLower(mt)]
	return ok
}

func languageOrDefault(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return defaultLanguage
	}
	return strings.TrimSpace(lang)
}
