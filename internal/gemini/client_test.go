package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_GenerateContent(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":1}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key-123", BaseURL: srv.URL}, nil)
	resp, err := c.GenerateContent(context.Background(), GenerateContentRequest{
		Model:    "gemini-test",
		Contents: []Content{{Parts: []Part{{Text: "hello"}}}},
		Config:   &GenerationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "key-123" {
		t.Errorf("api key header = %q", gotKey)
	}
	if _, ok := gotBody["contents"]; !ok {
		t.Error("request body should carry contents")
	}
	if gotBody["generationConfig"].(map[string]any)["responseMimeType"] != "application/json" {
		t.Error("request body should carry generationConfig")
	}
	if got := resp.Text(); got != `{"a":1}` {
		t.Errorf("Text() = %q", got)
	}
}

func TestClient_GenerateContent_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL}, nil)
	_, err := c.GenerateContent(context.Background(), GenerateContentRequest{Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestClient_UploadFile(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"file":{"name":"files/abc","uri":"https://files.example/abc","sizeBytes":"11","mimeType":"application/pdf"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL}, nil)
	info, err := c.UploadFile(context.Background(), []byte("%PDF-1.4 xx"), "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.URI != "https://files.example/abc" || info.Name != "files/abc" {
		t.Errorf("unexpected file info %+v", info)
	}
	if !strings.HasPrefix(gotContentType, "multipart/related") {
		t.Errorf("content type = %q", gotContentType)
	}
	if !strings.Contains(string(gotBody), "%PDF-1.4 xx") {
		t.Error("upload body should carry the document bytes")
	}
}

func TestResponse_TextJoinsParts(t *testing.T) {
	r := &GenerateContentResponse{Candidates: []Candidate{{
		Content: Content{Parts: []Part{{Text: `{"a":`}, {Text: `1}`}}},
	}}}
	if got := r.Text(); got != `{"a":1}` {
		t.Errorf("Text() = %q", got)
	}
}
