package candidate

import (
	"context"

	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/config"
	"github.com/peachstate-cre/propquery/pkg/constraints"
	"github.com/peachstate-cre/propquery/pkg/models"
	"github.com/peachstate-cre/propquery/pkg/schema"
	"github.com/peachstate-cre/propquery/pkg/sqlgen"
)

// rulesSource generates SQL directly from extracted constraints. It is
// deterministic and needs no network, so it is the default provider.
type rulesSource struct {
	extractor *constraints.Extractor
	builder   *sqlgen.Builder
	logger    *zap.Logger
}

func NewRules(m *schema.Map, eng config.EngineConfig, logger *zap.Logger) Source {
	return &rulesSource{
		extractor: constraints.NewExtractor(m),
		builder: sqlgen.NewBuilder(m, eng.DefaultLimit, models.OrderBy{
			Column:    eng.DefaultOrderColumn,
			Direction: models.Direction(eng.DefaultOrderDirection),
		}),
		logger: logger.Named("candidate.rules"),
	}
}

func (s *rulesSource) Candidate(ctx context.Context, utterance string) (string, error) {
	c := s.extractor.Extract(utterance)
	sql, warnings := s.builder.Build(c)
	for _, w := range warnings {
		s.logger.Debug("builder warning", zap.String("warning", w))
	}
	return sql, nil
}
