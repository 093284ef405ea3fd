// Package candidate produces the initial SQL for an utterance. The
// engine only needs the statement to be parsable; the validation loop
// takes it from there. Three providers exist: a deterministic
// rules-based generator and two LLM-backed ones.
package candidate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/apperrors"
	"github.com/peachstate-cre/propquery/pkg/config"
	"github.com/peachstate-cre/propquery/pkg/schema"
)

// Source turns an utterance into candidate SQL.
type Source interface {
	Candidate(ctx context.Context, utterance string) (string, error)
}

// FromConfig selects and constructs the configured provider. The rules
// provider shares the engine's default limit and ordering so its output
// matches what the corrector expects to see.
func FromConfig(cfg *config.Config, m *schema.Map, logger *zap.Logger) (Source, error) {
	switch cfg.Candidate.Provider {
	case "rules":
		return NewRules(m, cfg.Engine, logger), nil
	case "openai":
		return NewOpenAI(&cfg.Candidate, logger)
	case "anthropic":
		return NewAnthropic(&cfg.Candidate, logger)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownProvider, cfg.Candidate.Provider)
	}
}
