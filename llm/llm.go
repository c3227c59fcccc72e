package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"aura-api/domain"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// Model turns a prompt into text.
type Model interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to Model.
type Func func(ctx context.Context, prompt string) (string, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Factory builds a Model for a caller's API key.
type Factory func(ctx context.Context, apiKey string) (Model, error)

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a client for the given key and model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.MissingSetting(domain.SettingGeminiAPIKey)
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &domain.ModelUnavailableError{Err: fmt.Errorf("create genai client: %w", err)}
	}
	return &Gemini{client: client, model: model, temperature: 0.2}, nil
}

// GeminiFactory returns a Factory producing Gemini models.
func GeminiFactory(model string) Factory {
	return func(ctx context.Context, apiKey string) (Model, error) {
		return NewGemini(ctx, apiKey, model)
	}
}

// Invoke sends prompt and returns the text of the first candidate. Every
// failure is reported as a ModelUnavailableError.
func (g *Gemini) Invoke(ctx context.Context, prompt string) (string, error) {
	temp := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		return "", &domain.ModelUnavailableError{Err: err}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &domain.ModelUnavailableError{Err: errors.New("empty response")}
	}
	return text, nil
}

// Call invokes m and wraps any error that is not already a model error.
func Call(ctx context.Context, m Model, prompt string) (string, error) {
	if m == nil {
		return "", &domain.ModelUnavailableError{Err: errors.New("no model configured")}
	}
	out, err := m.Invoke(ctx, prompt)
	if err != nil {
		if domain.IsModelUnavailable(err) {
			return "", err
		}
		return "", &domain.ModelUnavailableError{Err: err}
	}
	return strings.TrimSpace(out), nil
}
