// ABOUTME: Resend email API sender
// ABOUTME: Posts HTML messages to the Resend REST endpoint
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultResendURL = "https://api.resend.com/emails"

// Resend sends through the Resend HTTP API.
type Resend struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewResend creates a sender. An empty endpoint uses the public API.
func NewResend(apiKey, endpoint string, httpClient *http.Client) *Resend {
	if endpoint == "" {
		endpoint = DefaultResendURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Resend{apiKey: apiKey, endpoint: endpoint, httpClient: httpClient}
}

type resendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

func (r *Resend) Send(ctx context.Context, msg Message) (string, error) {
	if err := validate(msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	body, err := json.Marshal(resendRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    HTMLBody(msg.Body),
		Text:    msg.Body,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrDelivery, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: resend status %d: %s", ErrDelivery, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrDelivery, err)
	}
	return result.ID, nil
}
