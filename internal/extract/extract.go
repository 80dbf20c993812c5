package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction methods reported in Result.Method.
const (
	MethodEmbeddedText = "embedded_text"
	MethodOCR          = "ocr"
	MethodNone         = "none"
)

// Minimum trimmed lengths to accept an extraction. Embedded text from a real
// document should yield far more than OCR on a noisy photo; a low embedded
// threshold would falsely accept corrupt or garbage parses.
const (
	minEmbeddedTextLen = 50
	minOCRTextLen      = 20
)

// Result carries the outcome of a text extraction attempt. Failures are never
// returned as Go errors: Method is MethodNone and Err holds a human-readable
// reason, so callers can persist it without special-casing.
type Result struct {
	Text   string
	Method string
	Err    string
}

// Config controls the OCR toolchain.
type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Languages string // tesseract -l value, default "eng+heb"
	DPI       int    // rasterization DPI for scanned PDFs, default 300
	MaxPages  int    // 0 = no limit
}

// Extractor pulls raw text out of stored files using an embedded-text parse
// for PDFs with an OCR fallback, and straight OCR for images.
type Extractor struct {
	cfg    Config
	runner Runner

	// pdfText is swappable in tests.
	pdfText func(path string) (string, error)
}

// New constructs an Extractor with defaults filled in.
func New(cfg Config) *Extractor {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng+heb"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, pdfText: embeddedPDFText}
}

// Extract picks a strategy based on the declared MIME type.
func (e *Extractor) Extract(ctx context.Context, path string, mimeType string) Result {
	mime := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch {
	case mime == "application/pdf":
		return e.extractPDF(ctx, path)
	case strings.HasPrefix(mime, "image/"):
		return e.extractImage(ctx, path)
	default:
		return Result{Method: MethodNone, Err: fmt.Sprintf("Unsupported file type: %s", mimeType)}
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) Result {
	if errMsg := checkFile(path); errMsg != "" {
		return Result{Method: MethodNone, Err: errMsg}
	}

	embedded := ""
	if text, err := e.pdfText(path); err == nil {
		embedded = strings.TrimSpace(text)
	}
	if len(embedded) >= minEmbeddedTextLen {
		return Result{Text: embedded, Method: MethodEmbeddedText}
	}

	// Scanned or image-only PDF: rasterize and OCR.
	ocrText, err := e.ocrPDF(ctx, path)
	if err != nil {
		ocrText = ""
	}
	ocrText = strings.TrimSpace(ocrText)
	if len(ocrText) >= minOCRTextLen {
		return Result{Text: ocrText, Method: MethodOCR}
	}

	// Keep whichever partial text was longer for diagnostic visibility.
	partial := embedded
	if len(ocrText) > len(partial) {
		partial = ocrText
	}
	return Result{Text: partial, Method: MethodNone, Err: "could not extract sufficient text from document"}
}

func (e *Extractor) extractImage(ctx context.Context, path string) Result {
	if errMsg := checkFile(path); errMsg != "" {
		return Result{Method: MethodNone, Err: errMsg}
	}

	text, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return Result{Method: MethodNone, Err: fmt.Sprintf("OCR failed: %v", err)}
	}
	text = strings.TrimSpace(text)
	if len(text) >= minOCRTextLen {
		return Result{Text: text, Method: MethodOCR}
	}
	return Result{Text: text, Method: MethodNone, Err: "could not extract sufficient text from image"}
}

func checkFile(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("file not found: %s", path)
	}
	if info.Size() == 0 {
		return "file is empty"
	}
	return ""
}

// embeddedPDFText parses the PDF text layer. The parser panics on some corrupt
// inputs, so the recover keeps the no-error contract intact.
func embeddedPDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
