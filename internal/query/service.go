// Package query answers questions from stored document chunks.
package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/DreamCats/docrag/internal/embedstore"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// Searcher retrieves chunks for a question.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, source string) []embedstore.Result
}

// Completer generates text for a prompt. It never fails; an unreachable
// backend yields a fallback message instead.
type Completer interface {
	Complete(ctx context.Context, prompt string) string
}

// Answer is a completion together with the chunks it was grounded on.
type Answer struct {
	Question string              `json:"question"`
	Source   string              `json:"source,omitempty"`
	Text     string              `json:"answer"`
	Context  []embedstore.Result `json:"context"`
}

// Options configures a Service.
type Options struct {
	TopK   int
	Logger *slog.Logger
}

// Service runs retrieval followed by generation.
type Service struct {
	searcher  Searcher
	completer Completer
	topK      int
	logger    *slog.Logger
}

// NewService creates a query service.
func NewService(searcher Searcher, completer Completer, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		searcher:  searcher,
		completer: completer,
		topK:      opts.TopK,
		logger:    opts.Logger,
	}
}

// TopK returns the configured retrieval depth.
func (s *Service) TopK() int {
	return s.topK
}

// Ask answers question using chunks from source, or from every source when
// source is empty. The completion is returned verbatim.
func (s *Service) Ask(ctx context.Context, question, source string) Answer {
	return s.AskK(ctx, question, source, s.topK)
}

// AskK is Ask with an explicit retrieval depth; k <= 0 uses the default.
func (s *Service) AskK(ctx context.Context, question, source string, k int) Answer {
	if k <= 0 {
		k = s.topK
	}
	question = strings.TrimSpace(question)
	results := s.searcher.Search(ctx, question, k, source)
	if len(results) == 0 {
		s.logger.Info("no context found for question", "source", source)
	} else {
		s.logger.Debug("retrieved context", "source", source, "chunks", len(results), "mode", results[0].Mode)
	}

	return Answer{
		Question: question,
		Source:   source,
		Text:     s.completer.Complete(ctx, BuildPrompt(question, results)),
		Context:  results,
	}
}

// Summarize returns a short bullet summary of one page of text.
func (s *Service) Summarize(ctx context.Context, text string, page int) string {
	return s.completer.Complete(ctx, BuildSummaryPrompt(text, page))
}
