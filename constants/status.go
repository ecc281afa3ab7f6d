package constants

// FineStatus is the canonical status for rows in the fines table.
type FineStatus string

// Stable values (store these exact strings in DB).
const (
	FineStatusPending    FineStatus = "pending"    // created by the upload flow, not yet picked up
	FineStatusProcessing FineStatus = "processing" // a worker owns the fine
	FineStatusProcessed  FineStatus = "processed"  // terminal success
	FineStatusError      FineStatus = "error"      // terminal failure, processing_error set
)

// JobStatus is the lifecycle of a queue job (bookkeeping only; the fine
// row is the source of truth for processing outcome).
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

const (
	// QueueName is the Redis queue the webhook producer and workers share.
	QueueName = "fine-processing"
	// JobName labels queue entries for observability.
	JobName = "process-fine"
)
