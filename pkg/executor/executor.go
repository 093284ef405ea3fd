// Package executor runs SQL statements against the property store and
// materializes results. Execution failures never escape as Go errors;
// they are folded into the result so the validation loop can react to
// them like any other finding.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/logging"
	"github.com/peachstate-cre/propquery/pkg/models"
	sqlutil "github.com/peachstate-cre/propquery/pkg/sql"
)

// Querier is the slice of pgxpool.Pool the executor needs. Acquisition
// and release of the underlying connection are scoped inside Query and
// the returned rows, so cancellation cannot leak a connection.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Executor runs statements with a per-statement timeout.
type Executor struct {
	pool    Querier
	timeout time.Duration
	logger  *zap.Logger
}

// New constructs an Executor. A zero timeout falls back to 30 seconds.
func New(pool Querier, timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		pool:    pool,
		timeout: timeout,
		logger:  logger.Named("executor"),
	}
}

// Execute runs one statement and returns its materialized result. The
// result is immutable once returned: rows in server order, columns by
// position, wall-clock elapsed time, and any errors as strings.
func (e *Executor) Execute(ctx context.Context, query string) *models.ExecutionResult {
	result := &models.ExecutionResult{}
	start := time.Now()

	normalized, err := sqlutil.Normalize(query)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Elapsed = time.Since(start)
		return result
	}
	if normalized == "" {
		result.Errors = append(result.Errors, "empty SQL statement")
		result.Elapsed = time.Since(start)
		return result
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.pool.Query(execCtx, normalized)
	if err != nil {
		result.Errors = append(result.Errors, e.describeError(execCtx, err))
		result.Elapsed = time.Since(start)
		return result
	}
	defer rows.Close()

	for _, fd := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, string(fd.Name))
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			result.Errors = append(result.Errors, e.describeError(execCtx, err))
			break
		}
		cells := make([]models.Cell, len(values))
		for i, v := range values {
			cells[i] = models.CellFrom(v)
		}
		result.Rows = append(result.Rows, models.Row{Values: cells})
	}
	if err := rows.Err(); err != nil {
		result.Errors = append(result.Errors, e.describeError(execCtx, err))
	}

	result.RowCount = len(result.Rows)
	result.Elapsed = time.Since(start)

	e.logger.Debug("executed statement",
		zap.String("sql", logging.SanitizeQuery(normalized)),
		zap.Int("rows", result.RowCount),
		zap.Duration("elapsed", result.Elapsed),
		zap.Int("errors", len(result.Errors)))

	return result
}

// describeError renders a driver error for the result's error list,
// naming the timeout explicitly when the statement budget was the
// cause.
func (e *Executor) describeError(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "execution timed out after " + e.timeout.String()
	}
	return logging.SanitizeError(err)
}
