package candidate

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/config"
	sqlutil "github.com/peachstate-cre/propquery/pkg/sql"
)

type anthropicSource struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

func NewAnthropic(cfg *config.CandidateConfig, logger *zap.Logger) (Source, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("candidate.model is required for the anthropic provider")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("CANDIDATE_API_KEY is required for the anthropic provider")
	}

	return &anthropicSource{
		client: anthropic.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: logger.Named("candidate.anthropic"),
	}, nil
}

func (s *anthropicSource) Candidate(ctx context.Context, utterance string) (string, error) {
	start := time.Now()

	resp, err := s.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(s.model),
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(utterance),
		},
	})
	if err != nil {
		s.logger.Error("candidate request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("anthropic candidate request: %w", err)
	}

	var reply string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			reply = *block.Text
			break
		}
	}
	if reply == "" {
		return "", fmt.Errorf("no text content in anthropic response")
	}

	sql, err := sqlutil.Normalize(extractSQL(reply))
	if err != nil {
		return "", fmt.Errorf("anthropic candidate: %w", err)
	}
	s.logger.Debug("candidate generated",
		zap.Duration("elapsed", time.Since(start)))
	return sql, nil
}
