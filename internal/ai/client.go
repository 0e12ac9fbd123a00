package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"inbox-autopilot/internal/logger"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

// Client is the shared HTTP core for the classification and drafting
// oracles. It speaks the OpenAI/DeepSeek chat-completions dialect or the
// Gemini dialect depending on the configured provider.
type Client struct {
	provider   string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger

	// Overload retry policy. Delay escalates as attempt * retryDelay.
	maxRetries int
	retryDelay time.Duration
}

func NewClient(provider, apiKey string, logger *logger.Logger) *Client {
	return &Client{
		provider:   provider,
		apiKey:     apiKey,
		baseURL:    getBaseURL(provider),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		maxRetries: 3,
		retryDelay: 10 * time.Second,
	}
}

// getBaseURL returns the appropriate API base URL based on the provider
func getBaseURL(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "https://api.deepseek.com"
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	default:
		return "https://api.openai.com/v1"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderGemini:
		return "gemini-2.0-flash-lite"
	default:
		return "gpt-4o"
	}
}

// apiError carries the provider status code so callers can tell transient
// overload apart from hard failure.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.status, e.body)
}

// isOverloaded reports whether the error is a transient provider overload
// worth retrying.
func isOverloaded(err error) bool {
	apiErr, ok := err.(*apiError)
	if !ok {
		return false
	}
	return apiErr.status == http.StatusTooManyRequests || apiErr.status == 529 || apiErr.status >= 500
}

// OpenAI/DeepSeek API request/response structures
type chatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message message `json:"message"`
}

// Gemini API request/response structures
type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content struct {
		Parts []geminiPart `json:"parts"`
	} `json:"content"`
}

// complete runs one prompt through the configured provider and returns the
// trimmed text output.
func (c *Client) complete(ctx context.Context, modelName, system, user string, maxTokens int) (string, error) {
	if modelName == "" {
		modelName = defaultModel(c.provider)
	}
	if c.provider == ProviderGemini {
		return c.completeGemini(ctx, modelName, system, user)
	}
	return c.completeChat(ctx, modelName, system, user, maxTokens)
}

// completeWithRetry wraps complete with the overload retry policy: up to
// maxRetries attempts, waiting attempt * retryDelay between them.
func (c *Client) completeWithRetry(ctx context.Context, modelName, system, user string, maxTokens int) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		text, err := c.complete(ctx, modelName, system, user, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isOverloaded(err) || attempt == c.maxRetries {
			break
		}

		wait := time.Duration(attempt) * c.retryDelay
		c.logger.Warnf("Provider overloaded, retrying in %s (attempt %d/%d)", wait, attempt, c.maxRetries)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (c *Client) completeChat(ctx context.Context, modelName, system, user string, maxTokens int) (string, error) {
	messages := []message{}
	if system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{Role: "user", Content: user})

	request := chatCompletionRequest{
		Model:     modelName,
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", &apiError{status: resp.StatusCode, body: string(body)}
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from AI")
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

func (c *Client) completeGemini(ctx context.Context, modelName, system, user string) (string, error) {
	request := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: user}}},
		},
	}
	if system != "" {
		request.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, modelName, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", &apiError{status: resp.StatusCode, body: string(body)}
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	return strings.TrimSpace(geminiResp.Candidates[0].Content.Parts[0].Text), nil
}

var codeFencePattern = regexp.MustCompile("```(?:json)?")

// stripCodeFences removes markdown fences some models wrap JSON output in.
func stripCodeFences(raw string) string {
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(raw, ""))
}
