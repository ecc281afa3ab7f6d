package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	// SignatureHeader carries the sender's HMAC of the raw request body.
	SignatureHeader = "x-webhook-signature"

	signaturePrefix = "sha256="
)

// ComputeSignature returns the hex HMAC-SHA256 of body under secret.
// Exported so tests and callers can sign payloads the way senders do.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an inbound signature header value against the
// exact raw body bytes. The signature may carry a "sha256=" prefix.
//
// The comparison decodes the presented hex and compares byte-for-byte in
// constant time; a decoded-length mismatch short-circuits to "not equal"
// without a timing-sensitive walk over either buffer.
func VerifySignature(rawBody []byte, signature, secret string) error {
	// A request with no signature is a client fault even when the server
	// secret is missing; the header check comes first.
	if signature == "" {
		return &SignatureError{
			Status:  http.StatusBadRequest,
			Message: "signature is required",
		}
	}
	if secret == "" {
		return &SignatureError{
			Status:  http.StatusInternalServerError,
			Message: "webhook secret is not configured",
		}
	}

	presented := strings.TrimPrefix(signature, signaturePrefix)
	got, err := hex.DecodeString(presented)
	if err != nil {
		return newSignatureError("invalid signature")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	want := mac.Sum(nil)

	// hmac.Equal is constant-time for equal lengths and O(1) otherwise.
	if len(got) != len(want) || !hmac.Equal(got, want) {
		return newSignatureError("invalid signature")
	}
	return nil
}
