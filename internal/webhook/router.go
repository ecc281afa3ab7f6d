package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fineprocessing/fines-processor/internal/queue"
)

// Server handles webhook ingestion: authenticate, parse, enqueue, respond.
type Server struct {
	enqueuer queue.Enqueuer
	secret   string
	log      *slog.Logger
}

func NewServer(enqueuer queue.Enqueuer, secret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{enqueuer: enqueuer, secret: secret, log: logger}
}

// Router mounts the webhook and health endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	// Capture the exact bytes on the wire before any parsing; signature
	// verification and JSON decoding must see the same buffer.
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Error("webhook.body_read_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to enqueue job"})
		return
	}

	if err := VerifySignature(rawBody, r.Header.Get(SignatureHeader), s.secret); err != nil {
		s.writeError(w, err)
		return
	}

	payload, err := ParsePayload(rawBody)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("webhook.accepted", "record_id", payload.RecordID, "file_name", payload.FileName)

	jobID, err := s.enqueuer.Enqueue(r.Context(), payload)
	if err != nil {
		s.log.Error("webhook.enqueue_failed", "record_id", payload.RecordID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to enqueue job"})
		return
	}
	s.log.Info("webhook.enqueued", "record_id", payload.RecordID, "job_id", jobID)

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "jobId": jobID})
}

// writeError maps typed webhook errors to their HTTP status; anything
// else collapses to a generic 500 so internals never leak to callers.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var sigErr *SignatureError
	if errors.As(err, &sigErr) {
		writeJSON(w, sigErr.Status, map[string]any{"error": sigErr.Message})
		return
	}
	var payloadErr *PayloadError
	if errors.As(err, &payloadErr) {
		writeJSON(w, payloadErr.status(), map[string]any{"error": payloadErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to enqueue job"})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
