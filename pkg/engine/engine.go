// Package engine drives the execute-validate-correct loop and owns the
// request-scoped state. Process never returns an error: every terminal
// state, including store failures, produces a well-formed envelope.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/apperrors"
	"github.com/peachstate-cre/propquery/pkg/config"
	"github.com/peachstate-cre/propquery/pkg/constraints"
	"github.com/peachstate-cre/propquery/pkg/learning"
	"github.com/peachstate-cre/propquery/pkg/models"
	"github.com/peachstate-cre/propquery/pkg/validator"
)

// Executor runs one statement and folds failures into the result.
type Executor interface {
	Execute(ctx context.Context, sql string) *models.ExecutionResult
}

// Corrector synthesizes a corrected statement and a reason. Returning
// the input unchanged signals that no correction applies.
type Corrector interface {
	Correct(ctx context.Context, sql string, c *models.Constraints, issues []models.Issue, utterance string) (string, string)
}

// Engine wires the loop components together. One Engine serves many
// concurrent requests; per-request state lives on the stack of Process.
type Engine struct {
	maxIterations int
	extractor     *constraints.Extractor
	executor      Executor
	corrector     Corrector
	store         learning.Store
	reporter      *learning.Reporter
	logger        *zap.Logger
}

func New(cfg config.EngineConfig, extractor *constraints.Extractor, exec Executor, corr Corrector, store learning.Store, logger *zap.Logger) *Engine {
	return &Engine{
		maxIterations: cfg.MaxIterations,
		extractor:     extractor,
		executor:      exec,
		corrector:     corr,
		store:         store,
		reporter:      learning.NewReporter(store),
		logger:        logger.Named("engine"),
	}
}

// Process answers one utterance. The candidate SQL is executed,
// validated against the extracted constraints, and corrected until it
// passes, fails to converge, or exhausts the iteration budget. The
// final statement is re-executed once so the envelope always carries a
// result for the SQL it names.
func (e *Engine) Process(ctx context.Context, utterance, candidateSQL string) *models.Envelope {
	logger := e.logger.With(zap.String("request_id", uuid.NewString()))

	c := e.extractor.Extract(utterance)
	current := candidateSQL
	status := models.StatusSuccess
	var history []models.CorrectionStep
	var reasons []string
	executions := 0
	corrections := 0

	for {
		result := e.executor.Execute(ctx, current)
		executions++

		ok, issues := validator.Validate(result, c, current)
		if ok {
			break
		}

		if corrections >= e.maxIterations {
			status = models.StatusMaxIterations
			logger.Warn("iteration budget exhausted",
				zap.Int("max_iterations", e.maxIterations))
			break
		}

		corrected, reason := e.corrector.Correct(ctx, current, c, issues, utterance)
		corrections++
		reasons = append(reasons, fmt.Sprintf("Iteration %d: %s", corrections, reason))

		if corrected == current {
			status = models.StatusFailed
			logger.Warn("correction did not converge",
				zap.Int("iterations", corrections),
				zap.Strings("issues", models.DescribeIssues(issues)))
			break
		}

		history = append(history, models.CorrectionStep{
			Iteration: corrections,
			Issues:    models.DescribeIssues(issues),
			Reason:    reason,
			Before:    current,
			After:     corrected,
		})
		current = corrected
		status = models.StatusCorrected

		if executions >= e.maxIterations {
			status = models.StatusMaxIterations
			logger.Warn("iteration budget exhausted",
				zap.Int("max_iterations", e.maxIterations))
			break
		}
	}

	finalResult := e.executor.Execute(ctx, current)

	envelope := &models.Envelope{
		FinalSQL:       current,
		Result:         finalResult,
		Status:         status,
		IterationCount: corrections,
		History:        history,
		Constraints:    c,
		Explanation:    strings.Join(reasons, ". "),
	}

	logger.Info("request processed",
		zap.String("status", string(status)),
		zap.Int("executions", executions+1),
		zap.Int("corrections", corrections),
		zap.Int("rows", finalResult.RowCount))

	e.persist(ctx, logger, utterance, candidateSQL, envelope)
	return envelope
}

// persist writes the feedback record after the envelope is complete. A
// store failure is logged and swallowed; the caller still gets their
// answer.
func (e *Engine) persist(ctx context.Context, logger *zap.Logger, utterance, candidateSQL string, env *models.Envelope) {
	rec := &models.FeedbackRecord{
		QueryHash:        learning.QueryHash(utterance, candidateSQL),
		OriginalSQL:      candidateSQL,
		FinalSQL:         env.FinalSQL,
		UserUtterance:    utterance,
		Constraints:      env.Constraints,
		CorrectionReason: env.Explanation,
		Timestamp:        time.Now(),
		IterationCount:   env.IterationCount,
		Status:           env.Status,
	}
	if err := e.store.Store(ctx, rec); err != nil {
		logger.Error("failed to persist feedback record",
			zap.Error(fmt.Errorf("%w: %v", apperrors.ErrStorePersistence, err)))
	}
}

// Stats exposes the learning-store aggregates.
func (e *Engine) Stats(ctx context.Context) (*models.StatsReport, error) {
	return e.store.Stats(ctx)
}

// PerformanceReport renders the printable learning summary.
func (e *Engine) PerformanceReport(ctx context.Context) (string, error) {
	return e.reporter.PerformanceReport(ctx)
}

// Recommendations derives advice from recurring correction reasons.
func (e *Engine) Recommendations(ctx context.Context) ([]string, error) {
	return e.reporter.Recommendations(ctx)
}
