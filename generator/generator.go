// ABOUTME: Content generator contract and strict response parsing
// ABOUTME: Turns a decided action into a subject and body or a GenerationError
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harperreed/warmer/models"
)

// ErrGeneration marks a failed or malformed content generation.
var ErrGeneration = errors.New("generation error")

// Request carries everything a generator may use to write one message.
type Request struct {
	Company models.CompanySettings
	Client  models.Client
	Action  models.Action
}

// Generator produces message content for one client. Implementations make a
// single attempt; retries belong to the caller.
type Generator interface {
	Generate(ctx context.Context, req Request) (models.Content, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (models.Content, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (models.Content, error) {
	return f(ctx, req)
}

// ParseContent decodes a JSON object holding exactly non-empty "subject" and
// "body" keys. Anything else is rejected; no fallback content is ever built.
func ParseContent(raw string) (models.Content, error) {
	var parsed struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		return models.Content{}, fmt.Errorf("%w: invalid JSON response: %v", ErrGeneration, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.Content{}, fmt.Errorf("%w: trailing data after response object", ErrGeneration)
	}
	if strings.TrimSpace(parsed.Subject) == "" || strings.TrimSpace(parsed.Body) == "" {
		return models.Content{}, fmt.Errorf("%w: response is missing \"subject\" or \"body\"", ErrGeneration)
	}
	return models.Content{
		Subject: strings.TrimSpace(parsed.Subject),
		Body:    strings.TrimSpace(parsed.Body),
	}, nil
}
