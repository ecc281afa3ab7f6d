package queue

import (
	"strings"
	"testing"
	"time"

	"github.com/fineprocessing/fines-processor/constants"
)

func TestJobFromHash(t *testing.T) {
	created := time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)
	job, err := jobFromHash("job-1", map[string]string{
		"name":       constants.JobName,
		"data":       `{"recordId":"fine-1","fileName":"a.pdf","webhook":{"recordId":"fine-1"}}`,
		"status":     string(constants.JobStatusQueued),
		"attempts":   "2",
		"error":      "extract document: boom",
		"created_at": created.Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.ID != "job-1" || job.Name != constants.JobName {
		t.Errorf("unexpected identity %+v", job)
	}
	if job.Payload.RecordID != "fine-1" || job.Payload.FileName != "a.pdf" {
		t.Errorf("unexpected payload %+v", job.Payload)
	}
	if string(job.Payload.Webhook) != `{"recordId":"fine-1"}` {
		t.Errorf("webhook audit = %s", job.Payload.Webhook)
	}
	if job.Status != constants.JobStatusQueued || job.Attempts != 2 {
		t.Errorf("unexpected bookkeeping %+v", job)
	}
	if job.Error != "extract document: boom" {
		t.Errorf("error = %q", job.Error)
	}
	if !job.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v", job.CreatedAt)
	}
}

func TestJobFromHash_MinimalFields(t *testing.T) {
	job, err := jobFromHash("job-1", map[string]string{
		"status": string(constants.JobStatusQueued),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Attempts != 0 || !job.CreatedAt.IsZero() {
		t.Errorf("zero values expected for absent fields, got %+v", job)
	}
}

func TestJobFromHash_Corrupt(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{"bad payload", map[string]string{"data": `{"recordId":`}, "payload"},
		{"bad attempts", map[string]string{"attempts": "many"}, "attempts"},
		{"bad created_at", map[string]string{"created_at": "yesterday"}, "created_at"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := jobFromHash("job-1", tc.fields)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %s decode error, got %v", tc.want, err)
			}
		})
	}
}
