package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	systemPrompt = "You are a professional sports betting analyst and assistant for Smart-Win. " +
		"Provide helpful, accurate information about betting strategies, match analysis, and platform features. " +
		"Keep responses concise and professional."
	summarizePrefix = "You are a sports betting analyst. Summarize this ticket information concisely " +
		"and verify its authenticity markers: "
	maxTokens     = 500
	appTitle      = "Smart-Win"
	emptyResponse = "No response received"
)

var (
	ErrNotConfigured = errors.New("assistant not configured")
	ErrUpstream      = errors.New("assistant upstream failed")
)

type Reply struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// Client is an OpenRouter chat completion client. OpenRouter speaks the
// OpenAI wire format, so requests go through go-openai with a different base URL.
type Client struct {
	api   *openai.Client
	model string
}

// attributionTransport adds the headers OpenRouter uses to attribute traffic to an app.
type attributionTransport struct {
	referer string
	next    http.RoundTripper
}

func (t attributionTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if t.referer != "" {
		r.Header.Set("HTTP-Referer", t.referer)
	}
	r.Header.Set("X-Title", appTitle)
	return t.next.RoundTrip(r)
}

func NewClient(baseURL, apiKey, model, referer string) *Client {
	c := &Client{model: model}
	if apiKey == "" {
		return c
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	cfg.HTTPClient = &http.Client{
		Timeout:   60 * time.Second,
		Transport: attributionTransport{referer: referer, next: http.DefaultTransport},
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

func (c *Client) Configured() bool {
	return c.api != nil
}

func (c *Client) Chat(ctx context.Context, prompt string) (*Reply, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	reply := &Reply{Response: emptyResponse, Model: resp.Model}
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		reply.Response = resp.Choices[0].Message.Content
	}
	return reply, nil
}

// Summarize asks for a short analyst summary of a ticket description.
func (c *Client) Summarize(ctx context.Context, text string) (*Reply, error) {
	return c.Chat(ctx, summarizePrefix+text)
}
