package webhook

import (
	"encoding/json"
	"regexp"

	"github.com/fineprocessing/fines-processor/internal/queue"
)

// UUID v1–v5, variant 8/9/a/b. Matching the record store's primary-key
// format up front avoids silent no-op updates later in the pipeline.
var uuidRegex = regexp.MustCompile(
	`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// ParsePayload narrows the untyped webhook body into a job payload.
// rawBody must be the same bytes the signature was verified against.
func ParsePayload(rawBody []byte) (queue.JobPayload, error) {
	var body any
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return queue.JobPayload{}, &PayloadError{Message: "payload must be an object"}
	}
	obj, ok := body.(map[string]any)
	if !ok || obj == nil {
		return queue.JobPayload{}, &PayloadError{Message: "payload must be an object"}
	}

	recordID, present := obj["recordId"]
	if !present || recordID == nil {
		return queue.JobPayload{}, &PayloadError{Message: "recordId is required"}
	}
	id, ok := recordID.(string)
	if !ok || !isUUID(id) {
		return queue.JobPayload{}, &PayloadError{Message: "recordId must be a UUID string"}
	}

	fileName, _ := obj["fileName"].(string)

	return queue.JobPayload{
		RecordID: id,
		FileName: fileName,
		Webhook:  json.RawMessage(rawBody),
	}, nil
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	return uuidRegex.MatchString(toLowerASCII(s))
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
