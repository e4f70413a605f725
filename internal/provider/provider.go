// Package provider defines the embedding and completion backend used by the
// store and the query service, with Ollama, OpenAI-compatible and stub
// implementations.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"syscall"

	"github.com/DreamCats/docrag/internal/config"
)

// FallbackMessage is returned by Complete when the backend fails.
const FallbackMessage = "I couldn't reach your local Ollama instance. Is it running?"

// Provider maps text to fixed-length vectors and produces free-text
// completions. Embed errors match ErrProviderUnavailable or ErrProviderError.
// Complete never fails; it returns FallbackMessage instead.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, prompt string) string
}

var (
	// ErrProviderUnavailable means the backend could not be reached.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderError means the backend answered with an invalid or failed response.
	ErrProviderError = errors.New("provider error")
)

// ProviderError describes a failed call to a reachable backend.
type ProviderError struct {
	Op         string // "embed" or "complete"
	StatusCode int    // 0 when not an HTTP status failure
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports ErrProviderError so callers can match the kind with errors.Is.
func (e *ProviderError) Is(target error) bool { return target == ErrProviderError }

// unavailable wraps a transport failure as ErrProviderUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrProviderUnavailable, err)
}

// classify turns a request error into ErrProviderUnavailable when the
// backend could not be reached, and into a *ProviderError otherwise.
func classify(op string, err error) error {
	if isConnError(err) {
		return unavailable(op, err)
	}
	return &ProviderError{Op: op, Err: err}
}

func isConnError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || isConnError(urlErr.Err)
	}
	return false
}

// New creates the provider named by cfg.Name.
func New(cfg *config.ProviderConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Name {
	case "ollama":
		return NewOllama(OllamaOptions{
			BaseURL:    cfg.BaseURL,
			EmbedModel: cfg.EmbedModel,
			ChatModel:  cfg.ChatModel,
			Timeout:    cfg.Timeout,
			Logger:     logger,
		}), nil
	case "openai":
		p, err := NewOpenAI(cfg.APIKey,
			WithBaseURL(cfg.BaseURL),
			WithModels(cfg.EmbedModel, cfg.ChatModel),
			WithDimensions(cfg.Dimensions),
			WithTimeout(cfg.Timeout),
			WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "stub":
		return NewStub(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Name)
	}
}
