package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/metrics"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

const sentimentPrompt = `You label the sentiment of mobile banking app reviews.
Reply with a JSON object only: {"label": "POSITIVE" | "NEUTRAL" | "NEGATIVE", "score": <confidence between 0 and 1>}.`

// OpenAIConfig holds configuration for the OpenAI-compatible classifier.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAISentiment classifies review sentiment through an OpenAI-compatible
// chat completion endpoint.
type OpenAISentiment struct {
	client *openai.Client
	model  string
}

// NewOpenAISentiment creates a classifier from configuration.
func NewOpenAISentiment(cfg OpenAIConfig) *OpenAISentiment {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAISentiment{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

type sentimentReply struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify asks the model for a label and confidence.
func (p *OpenAISentiment) Classify(ctx context.Context, text string) (review.Prediction, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	metrics.ObserveExternal("openai", "chat_completions", statusOf(err), time.Since(start))
	if err != nil {
		return review.Prediction{}, p.wrapError("chat_completion", err)
	}
	if len(resp.Choices) == 0 {
		return review.Prediction{}, NewProviderError("chat_completion", 0, "no choices in response", nil)
	}

	reply, err := parseSentimentReply(resp.Choices[0].Message.Content)
	if err != nil {
		return review.Prediction{}, NewProviderError("chat_completion", 0, "unreadable sentiment reply", err)
	}
	return review.Prediction{Label: reply.Label, Score: reply.Score}, nil
}

// parseSentimentReply decodes the JSON reply, tolerating a markdown fence.
func parseSentimentReply(content string) (sentimentReply, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	var reply sentimentReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &reply); err != nil {
		return sentimentReply{}, err
	}
	if reply.Label == "" {
		return sentimentReply{}, errors.New("missing label")
	}
	return reply, nil
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// wrapError wraps an OpenAI error into a ProviderError.
func (p *OpenAISentiment) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, fmt.Sprint(err), err)
}

var _ review.Classifier = (*OpenAISentiment)(nil)
