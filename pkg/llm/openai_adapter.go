package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

// OpenAIModel implements GenerativeModel against the OpenAI chat completion
// API. It is the only concrete GenerativeModel shipped with the core;
// tests exercise the interface with a fake instead.
type OpenAIModel struct {
	client          openai.Client
	model           string
	timeout         time.Duration
	maxOutputTokens int
	encoding        *tiktoken.Tiktoken
	logger          *zap.Logger
}

// NewOpenAIModel constructs an adapter for the given API key and model.
// When the requested model has no known tiktoken encoding, token counting
// falls back to the cl100k_base encoding, and to a length/4 estimate only if
// no encoding could be loaded.
func NewOpenAIModel(apiKey, model string, timeout time.Duration, maxOutputTokens int, logger *zap.Logger) *OpenAIModel {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("no tiktoken encoding for model, falling back to cl100k_base", zap.String("model", model), zap.Error(err))
		encoding, _ = tiktoken.GetEncoding("cl100k_base")
	}

	return &OpenAIModel{
		client:          client,
		model:           model,
		timeout:         timeout,
		maxOutputTokens: maxOutputTokens,
		encoding:        encoding,
		logger:          logger,
	}
}

// Complete implements GenerativeModel.
func (m *OpenAIModel) Complete(ctx context.Context, systemPrompt, userPayload, eventID string) (CompleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model: m.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPayload),
		},
	}
	if m.maxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(m.maxOutputTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)

	if err != nil {
		m.logger.Warn("model completion failed", zap.String("event_id", eventID), zap.Error(err))
		return CompleteResult{}, m.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return CompleteResult{}, appErrors.Clone(appErrors.ErrInvalidModelOutput, "model returned no choices")
	}

	content := resp.Choices[0].Message.Content

	promptTokens := m.countTokens(systemPrompt + userPayload)
	completionTokens := m.countTokens(content)
	if resp.Usage.TotalTokens > 0 {
		promptTokens = int(resp.Usage.PromptTokens)
		completionTokens = int(resp.Usage.CompletionTokens)
	}

	return CompleteResult{
		Content: content,
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			Latency:          latency,
		},
	}, nil
}

func (m *OpenAIModel) countTokens(s string) int {
	if m.encoding == nil {
		return len(s) / 4
	}
	return len(m.encoding.Encode(s, nil, nil))
}

func (m *OpenAIModel) classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return appErrors.Clone(appErrors.ErrRateLimited, "")
		case http.StatusPaymentRequired:
			return appErrors.Clone(appErrors.ErrCreditsExhausted, "")
		}
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "model gateway call failed")
}
