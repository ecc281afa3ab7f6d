package fines

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fineprocessing/fines-processor/constants"
)

// ErrAmbiguousMatch means a filename-fallback update touched more than
// one row. Silently updating unrelated fines is worse than failing the
// job, so this is always fatal.
var ErrAmbiguousMatch = errors.New("file_name matched multiple rows")

// Store is the capability set the worker needs from the record store.
type Store interface {
	MarkProcessing(ctx context.Context, id, fileName string, webhookAudit []byte) (UpdateResult, error)
	MarkProcessedWithExtraction(ctx context.Context, id, fileName string, updates NormalizedUpdates) (UpdateResult, error)
	MarkFailed(ctx context.Context, id, fileName, message string, webhookAudit []byte) (UpdateResult, error)
	FileURL(ctx context.Context, id string) (string, error)
}

// SQLStore applies fine updates over a plain SQL handle. The fines table
// is owned by the upload flow; this store only updates and selects it.
type SQLStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLStore(db *sql.DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, log: logger}
}

type assignment struct {
	column string
	value  any
}

func (s *SQLStore) updateByColumn(ctx context.Context, column, value string, sets []assignment) (int, error) {
	var sb strings.Builder
	sb.WriteString("UPDATE fines SET ")
	args := make([]any, 0, len(sets)+1)
	for i, a := range sets {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = $%d", a.column, i+1)
		args = append(args, a.value)
	}
	fmt.Fprintf(&sb, " WHERE %s = $%d", column, len(sets)+1)
	args = append(args, value)

	res, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("update fines by %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update fines by %s: rows affected: %w", column, err)
	}
	return int(n), nil
}

// updateWithFallback tries the primary key first, then the filename.
// A filename match on more than one row is an ambiguity hard error; a
// miss on both identifiers is reported, not invented.
func (s *SQLStore) updateWithFallback(ctx context.Context, id, fileName string, sets []assignment) (UpdateResult, error) {
	byID, err := s.updateByColumn(ctx, "id", id, sets)
	if err != nil {
		return UpdateResult{}, err
	}
	if byID > 0 {
		return UpdateResult{UpdatedCount: byID, MatchedBy: MatchedByID}, nil
	}

	if fileName != "" {
		byName, err := s.updateByColumn(ctx, "file_name", fileName, sets)
		if err != nil {
			return UpdateResult{}, err
		}
		if byName > 1 {
			s.log.Error("fines.update.ambiguous_file_name",
				"fine_id", id,
				"file_name", fileName,
				"updated_count", byName,
			)
			return UpdateResult{}, fmt.Errorf("update fine %s: %w", id, ErrAmbiguousMatch)
		}
		if byName == 1 {
			return UpdateResult{UpdatedCount: byName, MatchedBy: MatchedByFileName}, nil
		}
	}

	return UpdateResult{UpdatedCount: 0, MatchedBy: MatchedNone}, nil
}

// MarkProcessing transitions a fine to processing, attaching the raw
// webhook payload for auditing when provided.
func (s *SQLStore) MarkProcessing(ctx context.Context, id, fileName string, webhookAudit []byte) (UpdateResult, error) {
	sets := []assignment{{column: "status", value: string(constants.FineStatusProcessing)}}
	if webhookAudit != nil {
		sets = append(sets, assignment{column: "webhook_audit", value: string(webhookAudit)})
	}
	res, err := s.updateWithFallback(ctx, id, fileName, sets)
	if err != nil {
		return res, err
	}
	s.log.Info("fines.mark_processing",
		"fine_id", id, "file_name", fileName,
		"updated_count", res.UpdatedCount, "matched_by", string(res.MatchedBy),
	)
	return res, nil
}

// MarkProcessedWithExtraction writes the normalized fields together with
// the terminal processed status and timestamp.
func (s *SQLStore) MarkProcessedWithExtraction(ctx context.Context, id, fileName string, updates NormalizedUpdates) (UpdateResult, error) {
	var analysis any
	if updates.AIAnalysis != nil {
		analysis = string(updates.AIAnalysis)
	}
	sets := []assignment{
		{column: "ai_analysis", value: analysis},
		{column: "fine_number", value: updates.FineNumber},
		{column: "fine_amount", value: updates.FineAmount},
		{column: "fine_date", value: updates.FineDate},
		{column: "location", value: updates.Location},
		{column: "violation_type", value: updates.ViolationType},
		{column: "status", value: string(constants.FineStatusProcessed)},
		{column: "processed_at", value: time.Now().UTC()},
	}
	res, err := s.updateWithFallback(ctx, id, fileName, sets)
	if err != nil {
		return res, err
	}
	s.log.Info("fines.mark_processed",
		"fine_id", id, "file_name", fileName,
		"updated_count", res.UpdatedCount, "matched_by", string(res.MatchedBy),
	)
	return res, nil
}

// MarkFailed transitions a fine to the terminal error status with a
// human-readable reason, preserving the webhook audit payload.
func (s *SQLStore) MarkFailed(ctx context.Context, id, fileName, message string, webhookAudit []byte) (UpdateResult, error) {
	sets := []assignment{
		{column: "status", value: string(constants.FineStatusError)},
		{column: "processing_error", value: message},
	}
	if webhookAudit != nil {
		sets = append(sets, assignment{column: "webhook_audit", value: string(webhookAudit)})
	}
	res, err := s.updateWithFallback(ctx, id, fileName, sets)
	if err != nil {
		return res, err
	}
	s.log.Warn("fines.mark_failed",
		"fine_id", id, "file_name", fileName,
		"updated_count", res.UpdatedCount, "matched_by", string(res.MatchedBy),
		"processing_error", message,
	)
	return res, nil
}

// FileURL resolves the stable storage path of a fine's document.
func (s *SQLStore) FileURL(ctx context.Context, id string) (string, error) {
	var fileURL sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT file_url FROM fines WHERE id = $1", id).Scan(&fileURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("fine %s not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("select file_url for fine %s: %w", id, err)
	}
	return fileURL.String, nil
}

// ListProcessed returns processed fines in the optional processed_at
// window, oldest first. Feeds the XLSX export.
func (s *SQLStore) ListProcessed(ctx context.Context, from, to *time.Time) ([]Record, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, file_name, status, fine_number, fine_amount, fine_date, location, violation_type, processed_at
FROM fines WHERE status = $1`)
	args := []any{string(constants.FineStatusProcessed)}
	if from != nil {
		args = append(args, from.UTC())
		fmt.Fprintf(&sb, " AND processed_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, to.UTC())
		fmt.Fprintf(&sb, " AND processed_at <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY processed_at")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list processed fines: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.FileName, &r.Status, &r.FineNumber, &r.FineAmount,
			&r.FineDate, &r.Location, &r.ViolationType, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan fine row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list processed fines: %w", err)
	}
	return out, nil
}
