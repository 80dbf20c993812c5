package documents

import (
	"context"
	"fmt"
	"strings"

	"healthjournal-backend/internal/llm"
	"healthjournal-backend/internal/shared/telemetry"
)

const (
	// Documents rarely need more than this for the extraction schema;
	// truncation bounds cost and latency.
	maxPromptChars = 8000
	// Below this there is nothing worth sending to the model.
	minInputChars = 10
)

// AIExtractor turns raw document text into ExtractedData via a generative
// model. It never returns an error: any failure (quota, malformed output,
// network) yields nil so the orchestrator assigns one terminal status.
type AIExtractor struct {
	LLM     llm.Client
	Prompts llm.PromptSet
	Retry   RetryPolicy
}

// Extract runs the structured extraction with retry. Returns nil when no AI
// client is configured, the input is too short, or all attempts fail.
func (a *AIExtractor) Extract(ctx context.Context, rawText string, docType DocType, language string) *ExtractedData {
	if a == nil || a.LLM == nil {
		return nil
	}
	text := strings.TrimSpace(rawText)
	if len(text) < minInputChars {
		return nil
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	input := llm.ExtractInput{
		SystemPrompt: a.Prompts.ForLanguage(language),
		DocumentText: fmt.Sprintf("Document type hint: %s\nTarget language: %s\n\n%s", docType, language, text),
	}

	var data *ExtractedData
	err := a.Retry.Do(ctx, func() error {
		raw, err := a.LLM.ExtractDocument(ctx, input)
		if err != nil {
			return err
		}
		if err := validateExtraction(raw); err != nil {
			return fmt.Errorf("llm output invalid: %w", err)
		}
		parsed, err := decodeExtractedData(raw)
		if err != nil {
			return fmt.Errorf("llm output invalid: %w", err)
		}
		data = parsed
		return nil
	})
	if err != nil {
		telemetry.Error("documents.ai_extraction.failed", map[string]any{
			"doc_type":     string(docType),
			"language":     language,
			"rate_limited": llm.IsRateLimited(err),
			"error":        sanitizeError(err),
		})
		return nil
	}
	return data
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
