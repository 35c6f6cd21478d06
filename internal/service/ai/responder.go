package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/service/library"
)

// Responder turns a question into the text sent back as bot_response.
type Responder struct {
	gen     Generator
	library *library.Library
	sources int
	logger  *zap.Logger
}

// NewResponder combines a generator with the document library. At most
// sources documents are used as context for one answer.
func NewResponder(gen Generator, lib *library.Library, sources int, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{gen: gen, library: lib, sources: sources, logger: logger.Named("responder")}
}

// Respond never fails: generator errors are reported in the reply text.
func (r *Responder) Respond(ctx context.Context, question string) string {
	docs := r.library.Relevant(question, r.sources)

	answer, err := r.gen.Generate(ctx, question, docs)
	if err != nil {
		r.logger.Error("answer generation failed", zap.Error(err))
		return "Error: " + err.Error()
	}
	return formatAnswer(answer, docs)
}
