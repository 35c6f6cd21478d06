package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/service/library"
)

// Generator produces a raw answer for question given the selected documents.
type Generator interface {
	Generate(ctx context.Context, question string, docs []library.Document) (string, error)
}

// Service answers questions with a chat model through an eino chain.
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewService compiles the question-answering chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("Question: {question}\nAnswer:"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile answer chain: %w", err)
	}

	return &Service{chain: runnable, logger: logger.Named("ai")}, nil
}

// Generate runs the chain once.
func (s *Service) Generate(ctx context.Context, question string, docs []library.Document) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"context":  buildContext(docs),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run answer chain: %w", err)
	}

	s.logger.Debug("generated answer", zap.Int("documents", len(docs)), zap.Int("length", len(response.Content)))
	return response.Content, nil
}

// Fallback is used when no chat model is configured.
type Fallback struct{}

// Generate always admits it cannot answer.
func (Fallback) Generate(context.Context, string, []library.Document) (string, error) {
	return Unknown, nil
}
