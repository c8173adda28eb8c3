// ABOUTME: Groq chat completions client for outreach content
// ABOUTME: Requests a JSON object response and parses it strictly
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/warmer/models"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// Groq talks to an OpenAI-compatible chat completions endpoint.
type Groq struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// GroqOption configures a Groq client.
type GroqOption func(*Groq)

func WithBaseURL(url string) GroqOption {
	return func(g *Groq) { g.baseURL = strings.TrimRight(url, "/") }
}

func WithModel(model string) GroqOption {
	return func(g *Groq) {
		if model != "" {
			g.model = model
		}
	}
}

func WithMaxTokens(n int) GroqOption {
	return func(g *Groq) { g.maxTokens = n }
}

func WithTemperature(t float64) GroqOption {
	return func(g *Groq) { g.temperature = t }
}

func WithHTTPClient(c *http.Client) GroqOption {
	return func(g *Groq) { g.httpClient = c }
}

// NewGroq creates a client with the given API key.
func NewGroq(apiKey string, opts ...GroqOption) *Groq {
	g := &Groq{
		apiKey:      apiKey,
		baseURL:     DefaultGroqBaseURL,
		model:       DefaultGroqModel,
		maxTokens:   1500,
		temperature: 0.7,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate makes one chat completion call and parses its content.
func (g *Groq) Generate(ctx context.Context, req Request) (models.Content, error) {
	payload := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(req.Company.CompanyName)},
			{Role: "user", Content: UserPrompt(req)},
		},
		MaxTokens:      g.maxTokens,
		Temperature:    g.temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Content{}, fmt.Errorf("%w: encode request: %v", ErrGeneration, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return models.Content{}, fmt.Errorf("%w: build request: %v", ErrGeneration, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return models.Content{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Content{}, fmt.Errorf("%w: read response: %v", ErrGeneration, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Content{}, fmt.Errorf("%w: groq api status %d: %s", ErrGeneration, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return models.Content{}, fmt.Errorf("%w: decode completion: %v", ErrGeneration, err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return models.Content{}, fmt.Errorf("%w: empty response content", ErrGeneration)
	}

	return ParseContent(completion.Choices[0].Message.Content)
}
