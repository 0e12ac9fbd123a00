package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
)

const validVerdict = `{
	"needs_reply": true,
	"sender_priority": "high",
	"confidence": 0.85,
	"is_critical": false,
	"needs_calendar": true,
	"calendar_days_requested": 14,
	"needs_gdrive": false,
	"gdrive_query": "",
	"reasoning": "Direct question from a frequent contact."
}`

func TestParseClassification(t *testing.T) {
	c, err := parseClassification(validVerdict)
	assert.NoError(t, err)
	assert.True(t, c.NeedsReply)
	assert.Equal(t, model.PriorityHigh, c.SenderPriority)
	assert.Equal(t, 0.85, c.Confidence)
	assert.True(t, c.NeedsCalendar)
	assert.Equal(t, 14, c.CalendarDaysRequested)
	assert.False(t, c.Fallback)
}

func TestParseClassificationStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validVerdict + "\n```"

	c, err := parseClassification(fenced)
	assert.NoError(t, err)
	assert.True(t, c.NeedsReply)
}

func TestParseClassificationRejectsMissingKeys(t *testing.T) {
	_, err := parseClassification(`{"needs_reply": true, "confidence": 0.9}`)
	assert.Error(t, err)

	_, err = parseClassification("this is not json")
	assert.Error(t, err)
}

func TestParseClassificationClampsConfidence(t *testing.T) {
	c, err := parseClassification(`{"needs_reply": true, "sender_priority": "low", "confidence": 1.7}`)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, c.Confidence)

	c, err = parseClassification(`{"needs_reply": true, "sender_priority": "low", "confidence": -0.2}`)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, c.Confidence)
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, model.PriorityHigh, normalizePriority(" High "))
	assert.Equal(t, model.PriorityMedium, normalizePriority("medium"))
	assert.Equal(t, model.PriorityLow, normalizePriority("LOW"))
	assert.Equal(t, model.PriorityUnknown, normalizePriority("whatever"))
	assert.Equal(t, model.PriorityUnknown, normalizePriority(""))
}

func TestIsOverloaded(t *testing.T) {
	assert.True(t, isOverloaded(&apiError{status: 429}))
	assert.True(t, isOverloaded(&apiError{status: 529}))
	assert.True(t, isOverloaded(&apiError{status: 503}))
	assert.False(t, isOverloaded(&apiError{status: 401}))
	assert.False(t, isOverloaded(context.DeadlineExceeded))
}

func chatResponse(content string) chatCompletionResponse {
	return chatCompletionResponse{
		Choices: []choice{{Message: message{Role: "assistant", Content: content}}},
	}
}

func testClient(serverURL string) *Client {
	c := NewClient(ProviderOpenAI, "test-key", logger.New())
	c.baseURL = serverURL
	c.retryDelay = time.Millisecond
	return c
}

func TestClassifyRetriesOverloadThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(chatResponse(validVerdict))
	}))
	defer server.Close()

	classifier := NewEmailClassifier(testClient(server.URL))
	msg := model.NewMessage("m1", "t1", "alice@example.com", "Hi", "Question for you", "Question...", false, time.Now())

	c := classifier.Classify(context.Background(), msg, "gpt-4o")
	assert.Equal(t, 3, attempts)
	assert.False(t, c.Fallback)
	assert.True(t, c.NeedsReply)
}

func TestClassifyFallsBackAfterExhaustedRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	classifier := NewEmailClassifier(testClient(server.URL))
	msg := model.NewMessage("m1", "t1", "alice@example.com", "Hi", "Question for you", "Question...", false, time.Now())

	c := classifier.Classify(context.Background(), msg, "gpt-4o")
	assert.Equal(t, 3, attempts)
	assert.True(t, c.Fallback)
	assert.True(t, c.NeedsReply)
	assert.Equal(t, model.PriorityUnknown, c.SenderPriority)
	assert.Equal(t, 0.0, c.Confidence)
}

func TestClassifyDoesNotRetryHardFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	classifier := NewEmailClassifier(testClient(server.URL))
	msg := model.NewMessage("m1", "t1", "alice@example.com", "Hi", "Question for you", "Question...", false, time.Now())

	c := classifier.Classify(context.Background(), msg, "gpt-4o")
	assert.Equal(t, 1, attempts)
	assert.True(t, c.Fallback)
}

func TestClassifyFallsBackOnGarbageOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse("I think you should reply to this one."))
	}))
	defer server.Close()

	classifier := NewEmailClassifier(testClient(server.URL))
	msg := model.NewMessage("m1", "t1", "alice@example.com", "Hi", "Question for you", "Question...", false, time.Now())

	c := classifier.Classify(context.Background(), msg, "gpt-4o")
	assert.True(t, c.Fallback)
}
