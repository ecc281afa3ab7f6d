package webhook

import "net/http"

// SignatureError rejects a request before it reaches the queue. The
// status distinguishes client faults (missing/invalid signature) from a
// missing server secret.
type SignatureError struct {
	Status  int
	Message string
}

func (e *SignatureError) Error() string { return e.Message }

func newSignatureError(message string) *SignatureError {
	return &SignatureError{Status: http.StatusUnauthorized, Message: message}
}

// PayloadError marks a malformed webhook body. Always a client fault.
type PayloadError struct {
	Message string
}

func (e *PayloadError) Error() string { return e.Message }

func (e *PayloadError) status() int { return http.StatusBadRequest }
