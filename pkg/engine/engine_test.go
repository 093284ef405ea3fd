package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/config"
	"github.com/peachstate-cre/propquery/pkg/constraints"
	"github.com/peachstate-cre/propquery/pkg/learning"
	"github.com/peachstate-cre/propquery/pkg/models"
	"github.com/peachstate-cre/propquery/pkg/schema"
)

// scriptedExecutor returns canned results keyed by SQL text.
type scriptedExecutor struct {
	results map[string]*models.ExecutionResult
	fallback *models.ExecutionResult
	calls    []string
}

func (s *scriptedExecutor) Execute(ctx context.Context, sql string) *models.ExecutionResult {
	s.calls = append(s.calls, sql)
	if r, ok := s.results[sql]; ok {
		return r
	}
	return s.fallback
}

// scriptedCorrector rewrites by lookup; unknown input comes back
// unchanged, which the engine reads as failure to converge.
type scriptedCorrector struct {
	rewrites map[string]string
	calls    int
}

func (s *scriptedCorrector) Correct(ctx context.Context, sql string, c *models.Constraints, issues []models.Issue, utterance string) (string, string) {
	s.calls++
	if next, ok := s.rewrites[sql]; ok {
		return next, fmt.Sprintf("rewrote attempt %d", s.calls)
	}
	return sql, "No specific corrections applied"
}

type recordingStore struct {
	records  []*models.FeedbackRecord
	storeErr error
	stats    *models.StatsReport
}

func (s *recordingStore) Store(ctx context.Context, rec *models.FeedbackRecord) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) Similar(ctx context.Context, c *models.Constraints, limit int) ([]models.FeedbackRecord, error) {
	return nil, nil
}

func (s *recordingStore) Stats(ctx context.Context) (*models.StatsReport, error) {
	if s.stats == nil {
		return nil, errors.New("no stats")
	}
	return s.stats, nil
}

var _ learning.Store = (*recordingStore)(nil)

func rowsResult(n int) *models.ExecutionResult {
	r := &models.ExecutionResult{RowCount: n}
	for i := 0; i < n; i++ {
		r.Rows = append(r.Rows, models.Row{})
	}
	return r
}

func newTestEngine(exec Executor, corr Corrector, store learning.Store, maxIterations int) *Engine {
	return New(
		config.EngineConfig{MaxIterations: maxIterations},
		constraints.NewExtractor(schema.Default()),
		exec, corr, store, zap.NewNop(),
	)
}

func TestProcessSuccessFirstTry(t *testing.T) {
	exec := &scriptedExecutor{fallback: rowsResult(10)}
	corr := &scriptedCorrector{}
	store := &recordingStore{}
	eng := newTestEngine(exec, corr, store, 3)

	env := eng.Process(context.Background(), "properties in walton county", "SELECT id FROM p")

	assert.Equal(t, models.StatusSuccess, env.Status)
	assert.Equal(t, 0, env.IterationCount)
	assert.Empty(t, env.History)
	assert.Empty(t, env.Explanation)
	assert.Equal(t, "SELECT id FROM p", env.FinalSQL)
	assert.Equal(t, 0, corr.calls)
	// One loop execution plus the final re-execution.
	assert.Len(t, exec.calls, 2)
}

func TestProcessCorrectedOnSecondAttempt(t *testing.T) {
	bad := "SELECT id FROM p WHERE property_type ILIKE '%walton%'"
	good := "SELECT id FROM p WHERE address->>'county' ILIKE '%walton%'"
	exec := &scriptedExecutor{
		results: map[string]*models.ExecutionResult{
			bad:  rowsResult(10),
			good: rowsResult(10),
		},
	}
	corr := &scriptedCorrector{rewrites: map[string]string{bad: good}}
	store := &recordingStore{}
	eng := newTestEngine(exec, corr, store, 3)

	env := eng.Process(context.Background(), "properties in walton county", bad)

	assert.Equal(t, models.StatusCorrected, env.Status)
	assert.Equal(t, 1, env.IterationCount)
	require.Len(t, env.History, 1)
	assert.Equal(t, bad, env.History[0].Before)
	assert.Equal(t, good, env.History[0].After)
	assert.NotEmpty(t, env.History[0].Issues)
	assert.Equal(t, good, env.FinalSQL)
	assert.Contains(t, env.Explanation, "Iteration 1:")
}

func TestProcessFailsWhenCorrectorGivesUp(t *testing.T) {
	exec := &scriptedExecutor{fallback: rowsResult(0)}
	corr := &scriptedCorrector{}
	store := &recordingStore{}
	eng := newTestEngine(exec, corr, store, 3)

	env := eng.Process(context.Background(), "properties in walton county", "SELECT id FROM p")

	assert.Equal(t, models.StatusFailed, env.Status)
	assert.Equal(t, 1, env.IterationCount)
	assert.Empty(t, env.History)
	assert.Contains(t, env.Explanation, "No specific corrections applied")
	assert.Equal(t, "SELECT id FROM p", env.FinalSQL)
}

func TestProcessExhaustsIterationBudget(t *testing.T) {
	exec := &scriptedExecutor{fallback: rowsResult(0)}
	corr := &scriptedCorrector{rewrites: map[string]string{
		"SELECT 1": "SELECT 2",
		"SELECT 2": "SELECT 3",
		"SELECT 3": "SELECT 4",
	}}
	store := &recordingStore{}
	eng := newTestEngine(exec, corr, store, 3)

	env := eng.Process(context.Background(), "properties in walton county", "SELECT 1")

	assert.Equal(t, models.StatusMaxIterations, env.Status)
	assert.Equal(t, 3, env.IterationCount)
	assert.Len(t, env.History, 3)
	assert.Equal(t, "SELECT 4", env.FinalSQL)
	// Three loop executions plus the final re-execution.
	assert.Len(t, exec.calls, 4)
}

func TestProcessExecutionErrorCountsAsIssue(t *testing.T) {
	broken := "SELEC id"
	fixed := "SELECT id FROM p"
	exec := &scriptedExecutor{
		results: map[string]*models.ExecutionResult{
			broken: {Errors: []string{"syntax error"}},
			fixed:  rowsResult(10),
		},
	}
	corr := &scriptedCorrector{rewrites: map[string]string{broken: fixed}}
	eng := newTestEngine(exec, corr, &recordingStore{}, 3)

	env := eng.Process(context.Background(), "properties in walton county", broken)

	assert.Equal(t, models.StatusCorrected, env.Status)
	require.Len(t, env.History, 1)
	assert.Contains(t, env.History[0].Issues[0], "syntax error")
}

func TestProcessPersistsFeedbackRecord(t *testing.T) {
	exec := &scriptedExecutor{fallback: rowsResult(10)}
	store := &recordingStore{}
	eng := newTestEngine(exec, &scriptedCorrector{}, store, 3)

	eng.Process(context.Background(), "properties in walton county", "SELECT id FROM p")

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, learning.QueryHash("properties in walton county", "SELECT id FROM p"), rec.QueryHash)
	assert.Equal(t, "SELECT id FROM p", rec.OriginalSQL)
	assert.Equal(t, "SELECT id FROM p", rec.FinalSQL)
	assert.Equal(t, models.StatusSuccess, rec.Status)
	assert.Equal(t, 0, rec.IterationCount)
	assert.False(t, rec.Timestamp.IsZero())
	require.NotNil(t, rec.Constraints)
	assert.Equal(t, []string{"walton"}, rec.Constraints.Counties)
}

func TestProcessSwallowsStoreFailure(t *testing.T) {
	exec := &scriptedExecutor{fallback: rowsResult(10)}
	store := &recordingStore{storeErr: errors.New("disk full")}
	eng := newTestEngine(exec, &scriptedCorrector{}, store, 3)

	env := eng.Process(context.Background(), "properties in walton county", "SELECT id FROM p")

	assert.Equal(t, models.StatusSuccess, env.Status)
	assert.NotNil(t, env.Result)
}

func TestStatsAndRecommendationsDelegate(t *testing.T) {
	store := &recordingStore{stats: &models.StatsReport{
		Total: 7,
		TopCorrectionReasons: []models.ReasonCount{
			{Reason: "re-mapped county filter", Count: 4},
		},
	}}
	eng := newTestEngine(&scriptedExecutor{fallback: rowsResult(1)}, &scriptedCorrector{}, store, 3)

	stats, err := eng.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)

	report, err := eng.PerformanceReport(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report, "Total queries processed: 7")

	recs, err := eng.Recommendations(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0], "county")
}
