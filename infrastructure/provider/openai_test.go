package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatServer mimics the chat completions endpoint, replying with content
// and counting requests.
func fakeChatServer(t *testing.T, status int, content string, counter *atomic.Int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "user", body.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "slow down", "type": "rate_limit"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   body.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func newTestSentiment(url string) *OpenAISentiment {
	return NewOpenAISentiment(OpenAIConfig{APIKey: "test", BaseURL: url + "/v1", Model: "test-model"})
}

func TestOpenAISentiment_Classify(t *testing.T) {
	var calls atomic.Int64
	srv := fakeChatServer(t, http.StatusOK, `{"label": "NEGATIVE", "score": 0.91}`, &calls)
	defer srv.Close()

	pred, err := newTestSentiment(srv.URL).Classify(context.Background(), "app keeps crashing")
	require.NoError(t, err)
	assert.Equal(t, "NEGATIVE", pred.Label)
	assert.Equal(t, 0.91, pred.Score)
	assert.Equal(t, int64(1), calls.Load())
}

func TestOpenAISentiment_FencedReply(t *testing.T) {
	var calls atomic.Int64
	srv := fakeChatServer(t, http.StatusOK, "```json\n{\"label\": \"positive\", \"score\": 0.8}\n```", &calls)
	defer srv.Close()

	pred, err := newTestSentiment(srv.URL).Classify(context.Background(), "love it")
	require.NoError(t, err)
	assert.Equal(t, "positive", pred.Label)
}

func TestOpenAISentiment_Errors(t *testing.T) {
	t.Run("api error is not retried", func(t *testing.T) {
		var calls atomic.Int64
		srv := fakeChatServer(t, http.StatusTooManyRequests, "", &calls)
		defer srv.Close()

		_, err := newTestSentiment(srv.URL).Classify(context.Background(), "text")

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode())
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("unreadable reply", func(t *testing.T) {
		var calls atomic.Int64
		srv := fakeChatServer(t, http.StatusOK, "I think it is positive", &calls)
		defer srv.Close()

		_, err := newTestSentiment(srv.URL).Classify(context.Background(), "text")
		assert.ErrorContains(t, err, "unreadable sentiment reply")
	})
}

func TestParseSentimentReply(t *testing.T) {
	_, err := parseSentimentReply(`{"score": 0.3}`)
	assert.Error(t, err)

	reply, err := parseSentimentReply(" ```\n{\"label\":\"NEUTRAL\",\"score\":0.5}``` ")
	require.NoError(t, err)
	assert.Equal(t, sentimentReply{Label: "NEUTRAL", Score: 0.5}, reply)
}
