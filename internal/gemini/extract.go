package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// InlineRequestLimitBytes caps the estimated size of an inline
// generateContent request. Documents that would push the request past it
// go through the file API instead.
const InlineRequestLimitBytes = 20 * 1024 * 1024

// DefaultPrompt is the extraction instruction used when none is configured.
const DefaultPrompt = "Extract the following details from this French traffic fine notice."

const pdfMIMEType = "application/pdf"

// ExtractorConfig tunes one extractor instance.
type ExtractorConfig struct {
	Model  string // required
	Prompt string // default DefaultPrompt
	// Schema constrains and validates the response; default traffic fine.
	Schema map[string]any
}

// Extractor turns a PDF into a schema-validated TrafficFine via the
// extraction service.
type Extractor struct {
	api    API
	model  string
	prompt string
	schema map[string]any
	log    *slog.Logger
}

func NewExtractor(api API, cfg ExtractorConfig, logger *slog.Logger) *Extractor {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Schema == nil {
		cfg.Schema = BuildTrafficFineJSONSchema()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		api:    api,
		model:  cfg.Model,
		prompt: cfg.Prompt,
		schema: cfg.Schema,
		log:    logger,
	}
}

// Extract sends the document and prompt to the extraction service and
// returns the decoded result plus the raw response JSON for auditing.
// Schema or JSON failures are hard errors; the caller decides retries.
func (e *Extractor) Extract(ctx context.Context, pdf []byte) (TrafficFine, json.RawMessage, error) {
	start := time.Now()

	promptBytes := len(e.prompt)
	estimated := estimateInlineBytes(len(pdf), promptBytes)
	useFileAPI := estimated > InlineRequestLimitBytes

	e.log.Info("gemini.extract.start",
		"model", e.model,
		"pdf_bytes", len(pdf),
		"prompt_bytes", promptBytes,
		"estimated_inline_bytes", estimated,
		"inline_limit_bytes", InlineRequestLimitBytes,
		"use_file_api", useFileAPI,
	)

	var parts []Part
	if useFileAPI {
		file, err := e.api.UploadFile(ctx, pdf, pdfMIMEType)
		if err != nil {
			return TrafficFine{}, nil, fmt.Errorf("upload document: %w", err)
		}
		fileURI := file.URI
		if fileURI == "" {
			fileURI = file.Name
		}
		if fileURI == "" {
			return TrafficFine{}, nil, fmt.Errorf("file upload returned no file URI")
		}
		e.log.Info("gemini.extract.file_uploaded",
			"file_uri", fileURI, "file_name", file.Name, "size_bytes", file.SizeBytes)
		parts = []Part{
			{FileData: &FileData{MIMEType: pdfMIMEType, FileURI: fileURI}},
			{Text: e.prompt},
		}
	} else {
		parts = []Part{
			{InlineData: &Blob{MIMEType: pdfMIMEType, Data: base64.StdEncoding.EncodeToString(pdf)}},
			{Text: e.prompt},
		}
	}

	resp, err := e.api.GenerateContent(ctx, GenerateContentRequest{
		Model:    e.model,
		Contents: []Content{{Parts: parts}},
		Config: &GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   e.schema,
		},
	})
	if err != nil {
		return TrafficFine{}, nil, fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return TrafficFine{}, nil, fmt.Errorf("no response from extraction service")
	}
	raw := json.RawMessage(text)

	if err := ValidateJSONAgainstSchema(e.schema, raw); err != nil {
		e.log.Error("gemini.extract.schema_validation_failed",
			"error", err, "response_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return TrafficFine{}, raw, fmt.Errorf("extraction returned invalid JSON: %w", err)
	}

	var fine TrafficFine
	if err := json.Unmarshal(raw, &fine); err != nil {
		return TrafficFine{}, raw, fmt.Errorf("extraction returned invalid JSON: %w", err)
	}

	e.log.Info("gemini.extract.ok",
		"document_type", fine.DocumentType,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fine, raw, nil
}

// estimateInlineBytes accounts for base64 expansion of the document plus
// the prompt text riding along in the same request.
func estimateInlineBytes(pdfBytes, promptBytes int) int {
	return (pdfBytes*4+2)/3 + promptBytes
}
