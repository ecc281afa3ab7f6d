package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API is the minimal surface of the extraction service the pipeline
// depends on. The real client and test doubles both implement it.
type API interface {
	GenerateContent(ctx context.Context, req GenerateContentRequest) (*GenerateContentResponse, error)
	UploadFile(ctx context.Context, data []byte, mimeType string) (*FileInfo, error)
}

// GenerateContentRequest mirrors the generateContent REST body.
type GenerateContentRequest struct {
	Model    string            `json:"-"`
	Contents []Content         `json:"contents"`
	Config   *GenerationConfig `json:"generationConfig,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *Blob     `json:"inlineData,omitempty"`
	FileData   *FileData `json:"fileData,omitempty"`
}

type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type FileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type GenerationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content Content `json:"content"`
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// FileInfo describes an out-of-band uploaded document.
type FileInfo struct {
	Name      string `json:"name"`
	URI       string `json:"uri"`
	SizeBytes string `json:"sizeBytes"`
	MIMEType  string `json:"mimeType"`
}

// Config for the Gemini client.
type Config struct {
	APIKey  string        // required
	BaseURL string        // default https://generativelanguage.googleapis.com
	Timeout time.Duration // http client timeout
}

// Client is a thin REST client for generateContent and file uploads.
// One client per process; it is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

func (c *Client) GenerateContent(ctx context.Context, req GenerateContentRequest) (*GenerateContentResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), req.Model)

	c.log.Info("gemini.generate.request",
		"req_id", rid,
		"model", req.Model,
		"content_length", len(body),
	)

	raw, status, err := c.post(ctx, url, "application/json", bytes.NewReader(body))
	if err != nil {
		c.log.Error("gemini.generate.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var out GenerateContentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Error("gemini.generate.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("decode generateContent response: %w", err)
	}

	c.log.Info("gemini.generate.ok",
		"req_id", rid,
		"candidates", len(out.Candidates),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}

// UploadFile sends document bytes through the file API and returns the
// stored file's metadata.
func (c *Client) UploadFile(ctx context.Context, data []byte, mimeType string) (*FileInfo, error) {
	rid := uuid.New().String()
	start := time.Now()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("build upload metadata: %w", err)
	}
	if err := json.NewEncoder(meta).Encode(map[string]any{"file": map[string]any{}}); err != nil {
		return nil, fmt.Errorf("encode upload metadata: %w", err)
	}

	media, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mimeType}})
	if err != nil {
		return nil, fmt.Errorf("build upload media part: %w", err)
	}
	if _, err := media.Write(data); err != nil {
		return nil, fmt.Errorf("write upload media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish upload body: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/upload/v1beta/files?uploadType=multipart"
	contentType := "multipart/related; boundary=" + mw.Boundary()

	c.log.Info("gemini.upload.request",
		"req_id", rid, "bytes", len(data), "mime_type", mimeType)

	raw, status, err := c.post(ctx, url, contentType, &buf)
	if err != nil {
		c.log.Error("gemini.upload.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var out struct {
		File FileInfo `json:"file"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	c.log.Info("gemini.upload.ok",
		"req_id", rid,
		"file_name", out.File.Name,
		"file_uri", out.File.URI,
		"size_bytes", out.File.SizeBytes,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out.File, nil
}

func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("gemini http error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("gemini response body close error", "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, resp.StatusCode, fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, resp.StatusCode, nil
}
