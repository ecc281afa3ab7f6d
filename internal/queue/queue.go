package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fineprocessing/fines-processor/constants"
)

// JobPayload is the producer→consumer contract for one processing job.
// Webhook carries the raw inbound body verbatim for auditing.
type JobPayload struct {
	RecordID string          `json:"recordId"`
	FileName string          `json:"fileName,omitempty"`
	Webhook  json.RawMessage `json:"webhook"`
}

// Job is a queue entry plus its bookkeeping fields.
type Job struct {
	ID        string
	Name      string
	Payload   JobPayload
	Status    constants.JobStatus
	Attempts  int
	Error     string
	CreatedAt time.Time
}

// ErrJobNotFound is returned by Job lookups for unknown IDs.
var ErrJobNotFound = errors.New("job not found")

// errNoJob signals an empty poll, not a failure.
var errNoJob = errors.New("no job available")

// Enqueuer is the narrow capability the webhook endpoint depends on.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload JobPayload) (string, error)
}

// Queue is a durable FIFO on Redis. Jobs live in a pending list and a
// per-job hash; consumers move IDs to an active list while working so a
// killed process leaves a visible trail for RequeueStalled.
type Queue struct {
	rdb  *redis.Client
	name string
	log  *slog.Logger
}

func New(rdb *redis.Client, name string, logger *slog.Logger) *Queue {
	if name == "" {
		name = constants.QueueName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{rdb: rdb, name: name, log: logger}
}

func (q *Queue) pendingKey() string { return "queue:" + q.name + ":pending" }
func (q *Queue) activeKey() string  { return "queue:" + q.name + ":active" }
func (q *Queue) jobKey(id string) string {
	return "queue:" + q.name + ":job:" + id
}

// Enqueue persists the job hash and pushes its ID onto the pending list.
func (q *Queue) Enqueue(ctx context.Context, payload JobPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.jobKey(id), map[string]any{
		"name":       constants.JobName,
		"data":       data,
		"status":     string(constants.JobStatusQueued),
		"attempts":   0,
		"created_at": now.Format(time.RFC3339Nano),
	})
	pipe.LPush(ctx, q.pendingKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	q.log.Info("queue.enqueued", "queue", q.name, "job_id", id, "record_id", payload.RecordID)
	return id, nil
}

// Job returns a job by ID. Operational lookup, not part of the
// processing flow.
func (q *Queue) Job(ctx context.Context, id string) (*Job, error) {
	fields, err := q.rdb.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}
	return jobFromHash(id, fields)
}

// Purge removes every key owned by this queue. Test teardown helper.
func (q *Queue) Purge(ctx context.Context) error {
	if err := q.rdb.Del(ctx, q.pendingKey(), q.activeKey()).Err(); err != nil {
		return fmt.Errorf("purge lists: %w", err)
	}
	var cursor uint64
	for {
		keys, next, err := q.rdb.Scan(ctx, cursor, q.jobKey("*"), 256).Result()
		if err != nil {
			return fmt.Errorf("purge scan: %w", err)
		}
		if len(keys) > 0 {
			if err := q.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("purge jobs: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// RequeueStalled moves jobs abandoned on the active list (a worker died
// mid-job) back to pending. Call before starting consumers.
func (q *Queue) RequeueStalled(ctx context.Context) (int, error) {
	moved := 0
	for {
		id, err := q.rdb.LMove(ctx, q.activeKey(), q.pendingKey(), "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("requeue stalled: %w", err)
		}
		if err := q.rdb.HSet(ctx, q.jobKey(id), "status", string(constants.JobStatusQueued)).Err(); err != nil {
			q.log.Error("queue.stalled_status_failed", "queue", q.name, "job_id", id, "error", err)
		}
		q.log.Warn("queue.stalled_requeued", "queue", q.name, "job_id", id)
		moved++
	}
}

// dequeue blocks up to timeout for a pending job ID, moving it onto the
// active list. Returns errNoJob on an empty poll.
func (q *Queue) dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	id, err := q.rdb.BLMove(ctx, q.pendingKey(), q.activeKey(), "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", errNoJob
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// markActive records a delivery: bumps the attempt counter and flips the
// job hash to active. Returns this delivery's attempt number.
func (q *Queue) markActive(ctx context.Context, id string) (int, error) {
	attempts, err := q.rdb.HIncrBy(ctx, q.jobKey(id), "attempts", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("increment attempts for job %s: %w", id, err)
	}
	if err := q.rdb.HSet(ctx, q.jobKey(id), "status", string(constants.JobStatusActive)).Err(); err != nil {
		return int(attempts), fmt.Errorf("mark job %s active: %w", id, err)
	}
	return int(attempts), nil
}

// complete acknowledges a successfully handled job.
func (q *Queue) complete(ctx context.Context, id string) error {
	if err := q.rdb.HSet(ctx, q.jobKey(id), "status", string(constants.JobStatusCompleted)).Err(); err != nil {
		return fmt.Errorf("mark job %s completed: %w", id, err)
	}
	if err := q.rdb.LRem(ctx, q.activeKey(), 1, id).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", id, err)
	}
	return nil
}

// retry puts a failed delivery back on the pending list. The ID leaves
// the active list only after the re-enqueue succeeded: if the push
// fails, the job is still on active and RequeueStalled can recover it —
// it is never on neither list.
func (q *Queue) retry(ctx context.Context, id, reason string) error {
	if err := q.rdb.HSet(ctx, q.jobKey(id),
		"status", string(constants.JobStatusQueued),
		"error", reason,
	).Err(); err != nil {
		return fmt.Errorf("mark job %s queued: %w", id, err)
	}
	if err := q.rdb.LPush(ctx, q.pendingKey(), id).Err(); err != nil {
		return fmt.Errorf("requeue job %s: %w", id, err)
	}
	if err := q.rdb.LRem(ctx, q.activeKey(), 1, id).Err(); err != nil {
		return fmt.Errorf("ack job %s after requeue: %w", id, err)
	}
	return nil
}

// fail marks a job terminally failed and acknowledges it.
func (q *Queue) fail(ctx context.Context, id, reason string) error {
	if err := q.rdb.HSet(ctx, q.jobKey(id),
		"status", string(constants.JobStatusFailed),
		"error", reason,
	).Err(); err != nil {
		return fmt.Errorf("mark job %s failed: %w", id, err)
	}
	if err := q.rdb.LRem(ctx, q.activeKey(), 1, id).Err(); err != nil {
		return fmt.Errorf("ack failed job %s: %w", id, err)
	}
	return nil
}

// drop removes an undecodable delivery from the active list.
func (q *Queue) drop(ctx context.Context, id string) error {
	if err := q.rdb.LRem(ctx, q.activeKey(), 1, id).Err(); err != nil {
		return fmt.Errorf("drop job %s: %w", id, err)
	}
	return nil
}

func jobFromHash(id string, fields map[string]string) (*Job, error) {
	j := &Job{
		ID:     id,
		Name:   fields["name"],
		Status: constants.JobStatus(fields["status"]),
		Error:  fields["error"],
	}
	if raw, ok := fields["data"]; ok {
		if err := json.Unmarshal([]byte(raw), &j.Payload); err != nil {
			return nil, fmt.Errorf("decode job %s payload: %w", id, err)
		}
	}
	if v := fields["attempts"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("decode job %s attempts: %w", id, err)
		}
		j.Attempts = n
	}
	if v := fields["created_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("decode job %s created_at: %w", id, err)
		}
		j.CreatedAt = t
	}
	return j, nil
}
