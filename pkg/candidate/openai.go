package candidate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/config"
	sqlutil "github.com/peachstate-cre/propquery/pkg/sql"
)

// openaiSource asks an OpenAI-compatible endpoint for candidate SQL.
// Local endpoints work too; the API key is optional for those.
type openaiSource struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAI(cfg *config.CandidateConfig, logger *zap.Logger) (Source, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("candidate.model is required for the openai provider")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	return &openaiSource{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.Named("candidate.openai"),
	}, nil
}

func (s *openaiSource) Candidate(ctx context.Context, utterance string) (string, error) {
	start := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: utterance},
		},
	})
	if err != nil {
		s.logger.Error("candidate request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("openai candidate request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	sql, err := sqlutil.Normalize(extractSQL(resp.Choices[0].Message.Content))
	if err != nil {
		return "", fmt.Errorf("openai candidate: %w", err)
	}
	s.logger.Debug("candidate generated",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))
	return sql, nil
}
