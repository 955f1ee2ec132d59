package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Completer is the language-model collaborator. Implementations return
// the model's raw text output; transport errors, timeouts and empty
// responses surface as errors and are retried by the extractor.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter calls Google's Gemini API, asking for a JSON-only
// response.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter builds a Completer backed by the named Gemini
// model (e.g. "gemini-2.0-flash-lite").
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to init Gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Close releases the underlying API client.
func (g *GeminiCompleter) Close() error { return g.client.Close() }

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	// Ask Gemini to return JSON only
	model.GenerationConfig = genai.GenerationConfig{ResponseMIMEType: "application/json"}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		} else {
			sb.WriteString(fmt.Sprint(part))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("no text in Gemini response")
	}
	return out, nil
}
