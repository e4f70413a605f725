package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements Provider against the OpenAI API or any compatible
// endpoint (LM Studio, vLLM, SiliconFlow) selected with WithBaseURL.
type OpenAI struct {
	client     *openai.Client
	embedModel string
	chatModel  string
	dim        int
	logger     *slog.Logger
}

var _ Provider = (*OpenAI)(nil)

type openAIConfig struct {
	baseURL    string
	embedModel string
	chatModel  string
	dim        int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures an OpenAI provider.
type Option func(*openAIConfig)

// WithBaseURL points the client at a compatible endpoint. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithModels sets the embedding and chat models. Empty values keep the defaults.
func WithModels(embed, chat string) Option {
	return func(c *openAIConfig) {
		if embed != "" {
			c.embedModel = embed
		}
		if chat != "" {
			c.chatModel = chat
		}
	}
}

// WithDimensions requests vectors of length dim from models that support it.
func WithDimensions(dim int) Option {
	return func(c *openAIConfig) { c.dim = dim }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *openAIConfig) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *openAIConfig) { c.httpClient = client }
}

// WithLogger sets the logger used to report completion fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(c *openAIConfig) { c.logger = logger }
}

// NewOpenAI creates an OpenAI-compatible provider.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api_key is required")
	}
	cfg := openAIConfig{
		embedModel: "text-embedding-3-small",
		chatModel:  "gpt-4o-mini",
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &OpenAI{
		client:     &client,
		embedModel: cfg.embedModel,
		chatModel:  cfg.chatModel,
		dim:        cfg.dim,
		logger:     cfg.logger,
	}, nil
}

// Embed returns the embedding for text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:          o.embedModel,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	// Only the text-embedding-3 family accepts a dimensions parameter.
	if o.dim > 0 && strings.HasPrefix(o.embedModel, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(o.dim))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, o.wrap("embed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &ProviderError{Op: "embed", Err: errors.New("empty embedding in response")}
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Complete sends prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, prompt string) string {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    o.chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err == nil && len(resp.Choices) == 0 {
		err = &ProviderError{Op: "complete", Err: errors.New("no choices in response")}
	}
	if err != nil {
		o.logger.Warn("completion failed, returning fallback", "model", o.chatModel, "error", o.wrap("complete", err))
		return FallbackMessage
	}
	return resp.Choices[0].Message.Content
}

func (o *OpenAI) wrap(op string, err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{Op: op, StatusCode: apiErr.StatusCode, Err: err}
	}
	return classify(op, err)
}
