package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/models"
)

// fakeRows satisfies pgx.Rows over a fixed value grid.
type fakeRows struct {
	columns []string
	values  [][]any
	pos     int
	err     error
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}
func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}
func (r *fakeRows) Scan(dest ...any) error { return nil }
func (r *fakeRows) Values() ([]any, error) { return r.values[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

type fakePool struct {
	rows *fakeRows
	err  error
	// lastSQL records what the executor actually sent.
	lastSQL string
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.lastSQL = sql
	if p.err != nil {
		return nil, p.err
	}
	return p.rows, nil
}

func newTestExecutor(pool Querier) *Executor {
	return New(pool, time.Second, zap.NewNop())
}

func TestExecuteMaterializesRows(t *testing.T) {
	pool := &fakePool{rows: &fakeRows{
		columns: []string{"id", "name", "asking_price"},
		values: [][]any{
			{int64(1), "Corner Lot", float64(250000)},
			{int64(2), "Old Depot", nil},
		},
	}}

	result := newTestExecutor(pool).Execute(context.Background(), "SELECT id, name, asking_price FROM props")

	require.Empty(t, result.Errors)
	assert.Equal(t, []string{"id", "name", "asking_price"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, models.CellInt, result.Rows[0].Values[0].Kind)
	assert.Equal(t, "Corner Lot", result.Rows[0].Values[1].Text)
	assert.Equal(t, models.CellNull, result.Rows[1].Values[2].Kind)
	assert.Greater(t, result.Elapsed, time.Duration(0))
}

func TestExecuteStripsTrailingSemicolon(t *testing.T) {
	pool := &fakePool{rows: &fakeRows{columns: []string{"id"}}}
	result := newTestExecutor(pool).Execute(context.Background(), "SELECT id FROM props;")

	require.Empty(t, result.Errors)
	assert.Equal(t, "SELECT id FROM props", pool.lastSQL)
}

func TestExecuteRejectsMultipleStatements(t *testing.T) {
	pool := &fakePool{}
	result := newTestExecutor(pool).Execute(context.Background(), "SELECT 1; DROP TABLE props")

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "multiple SQL statements")
	assert.Empty(t, pool.lastSQL, "statement must not reach the pool")
}

func TestExecuteRejectsEmptyStatement(t *testing.T) {
	result := newTestExecutor(&fakePool{}).Execute(context.Background(), "   ")

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "empty SQL")
}

func TestExecuteFoldsQueryErrorIntoResult(t *testing.T) {
	pool := &fakePool{err: errors.New(`relation "props" does not exist`)}
	result := newTestExecutor(pool).Execute(context.Background(), "SELECT * FROM props")

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "does not exist")
	assert.True(t, result.Failed())
	assert.Equal(t, 0, result.RowCount)
}

func TestExecuteNamesTimeout(t *testing.T) {
	pool := &fakePool{err: context.DeadlineExceeded}
	result := newTestExecutor(pool).Execute(context.Background(), "SELECT pg_sleep(60)")

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "timed out")
}

func TestExecuteReportsDeferredRowsError(t *testing.T) {
	pool := &fakePool{rows: &fakeRows{
		columns: []string{"id"},
		values:  [][]any{{int64(1)}},
		err:     errors.New("connection reset"),
	}}
	result := newTestExecutor(pool).Execute(context.Background(), "SELECT id FROM props")

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.RowCount)
}
