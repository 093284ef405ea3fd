// Package learning persists correction trails and serves them back to
// the corrector and the reporter. Records live in the feedback_records
// table, keyed by a deterministic hash of the utterance/SQL pair.
package learning

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/models"
	"github.com/peachstate-cre/propquery/pkg/retry"
)

// candidatePoolSize bounds how many recent corrected records Similar
// loads before ranking them by constraint shape.
const candidatePoolSize = 25

// Store is the learning-store contract: durable upserts keyed by query
// hash, shape-ranked retrieval of prior corrections, and aggregate
// statistics.
type Store interface {
	Store(ctx context.Context, rec *models.FeedbackRecord) error
	Similar(ctx context.Context, c *models.Constraints, limit int) ([]models.FeedbackRecord, error)
	Stats(ctx context.Context) (*models.StatsReport, error)
}

// QueryHash fingerprints an utterance/SQL pair. The same pair always
// produces the same hash, so repeat runs overwrite their prior record.
func QueryHash(utterance, originalSQL string) string {
	sum := md5.Sum([]byte(utterance + ":" + originalSQL))
	return hex.EncodeToString(sum[:])
}

// Querier is the slice of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	pool   Querier
	retry  *retry.Config
	logger *zap.Logger
}

var _ Store = (*postgresStore)(nil)

// NewStore builds the Postgres-backed learning store. Writes are
// retried with backoff because a dropped connection must not cost the
// engine a correction trail.
func NewStore(pool Querier, logger *zap.Logger) Store {
	return &postgresStore{
		pool:   pool,
		retry:  retry.DefaultConfig(),
		logger: logger.Named("learning"),
	}
}

func (s *postgresStore) Store(ctx context.Context, rec *models.FeedbackRecord) error {
	constraintsJSON, err := json.Marshal(rec.Constraints)
	if err != nil {
		return fmt.Errorf("failed to serialize constraints: %w", err)
	}

	query := `
		INSERT INTO feedback_records (
			query_hash, original_query, corrected_query, user_input,
			constraints, correction_reason, timestamp, iteration_count,
			validation_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (query_hash) DO UPDATE SET
			original_query = EXCLUDED.original_query,
			corrected_query = EXCLUDED.corrected_query,
			user_input = EXCLUDED.user_input,
			constraints = EXCLUDED.constraints,
			correction_reason = EXCLUDED.correction_reason,
			timestamp = EXCLUDED.timestamp,
			iteration_count = EXCLUDED.iteration_count,
			validation_status = EXCLUDED.validation_status
		RETURNING id`

	err = retry.DoIfRetryable(ctx, s.retry, func() error {
		return s.pool.QueryRow(ctx, query,
			rec.QueryHash,
			rec.OriginalSQL,
			rec.FinalSQL,
			rec.UserUtterance,
			string(constraintsJSON),
			rec.CorrectionReason,
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.IterationCount,
			string(rec.Status),
		).Scan(&rec.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to store feedback record: %w", err)
	}

	s.logger.Debug("stored feedback record",
		zap.String("query_hash", rec.QueryHash),
		zap.String("status", string(rec.Status)),
		zap.Int("iterations", rec.IterationCount))
	return nil
}

func (s *postgresStore) Similar(ctx context.Context, c *models.Constraints, limit int) ([]models.FeedbackRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, query_hash, original_query, corrected_query, user_input,
		       constraints, correction_reason, timestamp, iteration_count,
		       validation_status
		FROM feedback_records
		WHERE validation_status = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, string(models.StatusCorrected), candidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar records: %w", err)
	}
	defer rows.Close()

	var records []models.FeedbackRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read similar records: %w", err)
	}

	ranked := rankBySimilarity(records, c)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *postgresStore) Stats(ctx context.Context) (*models.StatsReport, error) {
	report := &models.StatsReport{StatusHistogram: map[string]int{}}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(iteration_count), 0) FROM feedback_records`,
	).Scan(&report.Total, &report.AvgIterations)
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback totals: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT validation_status, COUNT(*) FROM feedback_records GROUP BY validation_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to read status histogram: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status histogram: %w", err)
		}
		report.StatusHistogram[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status histogram: %w", err)
	}

	reasonRows, err := s.pool.Query(ctx, `
		SELECT correction_reason, COUNT(*) AS occurrences
		FROM feedback_records
		WHERE correction_reason <> '' AND correction_reason <> $1
		GROUP BY correction_reason
		ORDER BY occurrences DESC, correction_reason
		LIMIT 5`, "No specific corrections applied")
	if err != nil {
		return nil, fmt.Errorf("failed to read correction reasons: %w", err)
	}
	defer reasonRows.Close()
	for reasonRows.Next() {
		var rc models.ReasonCount
		if err := reasonRows.Scan(&rc.Reason, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan correction reason: %w", err)
		}
		report.TopCorrectionReasons = append(report.TopCorrectionReasons, rc)
	}
	if err := reasonRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read correction reasons: %w", err)
	}

	return report, nil
}

func scanRecord(rows pgx.Rows) (models.FeedbackRecord, error) {
	var rec models.FeedbackRecord
	var constraintsJSON, timestamp, status string

	err := rows.Scan(
		&rec.ID,
		&rec.QueryHash,
		&rec.OriginalSQL,
		&rec.FinalSQL,
		&rec.UserUtterance,
		&constraintsJSON,
		&rec.CorrectionReason,
		&timestamp,
		&rec.IterationCount,
		&status,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan feedback record: %w", err)
	}

	rec.Status = models.ValidationStatus(status)
	if constraintsJSON != "" {
		var c models.Constraints
		if err := json.Unmarshal([]byte(constraintsJSON), &c); err == nil {
			rec.Constraints = &c
		}
	}
	if ts, err := time.Parse(time.RFC3339, timestamp); err == nil {
		rec.Timestamp = ts
	}
	return rec, nil
}
