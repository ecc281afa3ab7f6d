package gemini

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type fakeAPI struct {
	generateReq  *GenerateContentRequest
	generateResp *GenerateContentResponse
	generateErr  error

	uploadCalls int
	uploadData  []byte
	uploadInfo  *FileInfo
	uploadErr   error
}

func (f *fakeAPI) GenerateContent(_ context.Context, req GenerateContentRequest) (*GenerateContentResponse, error) {
	f.generateReq = &req
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.generateResp, nil
}

func (f *fakeAPI) UploadFile(_ context.Context, data []byte, _ string) (*FileInfo, error) {
	f.uploadCalls++
	f.uploadData = data
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.uploadInfo, nil
}

func textResponse(text string) *GenerateContentResponse {
	return &GenerateContentResponse{
		Candidates: []Candidate{{Content: Content{Parts: []Part{{Text: text}}}}},
	}
}

func validFineJSON(t *testing.T) string {
	t.Helper()
	doc := map[string]any{
		"document_type": "avis_de_contravention",
		"fine_identifiers": map[string]any{
			"fine_number":     "1234567890",
			"qr_code_present": true,
		},
		"issuing_authority": map[string]any{
			"country":        "FRANCE",
			"authority_name": "ANTAI",
			"website":        "https://www.antai.gouv.fr",
		},
		"notice_dates": map[string]any{
			"notice_issue_date": "10/03/2024",
			"infraction_date":   "05/03/2024",
			"infraction_time":   "14:32",
		},
		"offender": map[string]any{
			"full_name": "Jean Dupont",
			"address": map[string]any{
				"street":      "1 Rue de la Paix",
				"postal_code": "75002",
				"city":        "Paris",
			},
		},
		"vehicle": map[string]any{
			"license_plate":           "AB-123-CD",
			"country_of_registration": "FRANCE",
			"brand":                   "Renault",
		},
		"infraction": map[string]any{
			"infraction_category":    "excès de vitesse",
			"infraction_description": "Dépassement de la vitesse maximale autorisée",
			"legal_references":       []string{"Art. R413-14"},
		},
		"location": map[string]any{
			"street_name":     "A6",
			"city":            "Auxerre",
			"department_code": "89",
			"country":         "FRANCE",
		},
		"enforcement": map[string]any{
			"reporting_officer_id": "1187",
			"service_code":         "CRS-21",
		},
		"penalty": map[string]any{
			"fine_type":             "amende_forfaitaire",
			"base_amount_eur":       90,
			"increased_amount_eur":  375,
			"payment_deadline_days": 45,
			"points_removed":        1,
		},
		"payment_and_contestation": map[string]any{
			"payment_required_for_admission":   true,
			"payment_website":                  "https://www.amendes.gouv.fr",
			"contestation_website":             "https://www.antai.gouv.fr",
			"contestation_requires_no_payment": true,
			"contestation_address": map[string]any{
				"recipient":   "Officier du Ministère Public",
				"street":      "CS 41101",
				"postal_code": "35911",
				"city":        "Rennes",
			},
		},
		"postal_information": map[string]any{
			"delivery_service": "La Poste",
		},
		"data_protection": map[string]any{
			"personal_data_processing": true,
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(b)
}

func TestExtract_InlineMode(t *testing.T) {
	api := &fakeAPI{generateResp: textResponse(validFineJSON(t))}
	e := NewExtractor(api, ExtractorConfig{Model: "gemini-test"}, nil)

	fine, raw, err := e.Extract(context.Background(), []byte("%PDF-1.4 tiny"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.uploadCalls != 0 {
		t.Errorf("small documents must not use the file API")
	}
	if fine.FineIdentifiers == nil || fine.FineIdentifiers.FineNumber != "1234567890" {
		t.Errorf("unexpected fine %+v", fine)
	}
	if len(raw) == 0 {
		t.Error("raw extraction JSON should be returned for auditing")
	}

	req := api.generateReq
	if req.Model != "gemini-test" {
		t.Errorf("model = %q", req.Model)
	}
	parts := req.Contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil || parts[1].Text == "" {
		t.Fatalf("expected inline data + prompt parts, got %+v", parts)
	}
	if parts[0].InlineData.MIMEType != "application/pdf" {
		t.Errorf("mime type = %q", parts[0].InlineData.MIMEType)
	}
	if req.Config == nil || req.Config.ResponseMIMEType != "application/json" || req.Config.ResponseSchema == nil {
		t.Error("request must constrain output to schema-validated JSON")
	}
}

// The inline ceiling is exact: an estimated payload at the limit stays
// inline, one byte over switches to the file API.
func TestExtract_SizeBoundary(t *testing.T) {
	prompt := DefaultPrompt

	// Largest document size whose estimate fits the limit.
	budget := InlineRequestLimitBytes - len(prompt)
	atLimit := (budget*3 - 2) / 4
	for estimateInlineBytes(atLimit+1, len(prompt)) <= InlineRequestLimitBytes {
		atLimit++
	}
	if estimateInlineBytes(atLimit, len(prompt)) > InlineRequestLimitBytes {
		t.Fatalf("fixture bug: %d over limit", atLimit)
	}

	t.Run("at limit stays inline", func(t *testing.T) {
		api := &fakeAPI{generateResp: textResponse(validFineJSON(t))}
		e := NewExtractor(api, ExtractorConfig{Model: "gemini-test"}, nil)
		if _, _, err := e.Extract(context.Background(), make([]byte, atLimit)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if api.uploadCalls != 0 {
			t.Error("document at the limit must stay inline")
		}
	})

	t.Run("one byte over uploads", func(t *testing.T) {
		api := &fakeAPI{
			generateResp: textResponse(validFineJSON(t)),
			uploadInfo:   &FileInfo{Name: "files/abc", URI: "https://files.example/abc"},
		}
		e := NewExtractor(api, ExtractorConfig{Model: "gemini-test"}, nil)
		if _, _, err := e.Extract(context.Background(), make([]byte, atLimit+1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if api.uploadCalls != 1 {
			t.Fatal("document over the limit must go through the file API")
		}
		parts := api.generateReq.Contents[0].Parts
		if parts[0].FileData == nil || parts[0].FileData.FileURI != "https://files.example/abc" {
			t.Errorf("expected file reference part, got %+v", parts[0])
		}
	})
}

func TestExtract_UploadURIFallback(t *testing.T) {
	big := make([]byte, InlineRequestLimitBytes)

	t.Run("uses name when uri missing", func(t *testing.T) {
		api := &fakeAPI{
			generateResp: textResponse(validFineJSON(t)),
			uploadInfo:   &FileInfo{Name: "files/abc"},
		}
		e := NewExtractor(api, ExtractorConfig{Model: "gemini-test"}, nil)
		if _, _, err := e.Extract(context.Background(), big); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := api.generateReq.Contents[0].Parts[0].FileData.FileURI; got != "files/abc" {
			t.Errorf("file uri = %q", got)
		}
	})

	t.Run("fails when both missing", func(t *testing.T) {
		api := &fakeAPI{uploadInfo: &FileInfo{}}
		e := NewExtractor(api, ExtractorConfig{Model: "gemini-test"}, nil)
		_, _, err := e.Extract(context.Background(), big)
		if err == nil || !strings.Contains(err.Error(), "no file URI") {
			t.Fatalf("expected a missing-URI error, got %v", err)
		}
	})
}

func TestExtract_EmptyResponse(t *testing.T) {
	api := &fakeAPI{generateResp: &GenerateContentResponse{}}
	e := NewExtractor(api, ExtractorConfig{Model: "gemini-test"}, nil)

	_, _, err := e.Extract(context.Background(), []byte("doc"))
	if err == nil || !strings.Contains(err.Error(), "no response from extraction service") {
		t.Fatalf("expected empty-response error, got %v", err)
	}
}

func TestExtract_InvalidJSON(t *testing.T) {
	api := &fakeAPI{generateResp: textResponse("this is not json")}
	e := NewExtractor(api, ExtractorConfig{Model: "gemini-test"}, nil)

	_, _, err := e.Extract(context.Background(), []byte("doc"))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected invalid-JSON error, got %v", err)
	}
}

func TestExtract_SchemaValidationFailure(t *testing.T) {
	// Valid JSON, but missing required groups.
	api := &fakeAPI{generateResp: textResponse(`{"document_type":"avis_de_contravention"}`)}
	e := NewExtractor(api, ExtractorConfig{Model: "gemini-test"}, nil)

	_, raw, err := e.Extract(context.Background(), []byte("doc"))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected schema validation to fail, got %v", err)
	}
	if len(raw) == 0 {
		t.Error("raw response should still be surfaced for debugging")
	}
}

func TestExtract_CustomPrompt(t *testing.T) {
	api := &fakeAPI{generateResp: textResponse(validFineJSON(t))}
	e := NewExtractor(api, ExtractorConfig{Model: "gemini-test", Prompt: "Custom instructions"}, nil)

	if _, _, err := e.Extract(context.Background(), []byte("doc")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := api.generateReq.Contents[0].Parts[1].Text; got != "Custom instructions" {
		t.Errorf("prompt = %q", got)
	}
}
