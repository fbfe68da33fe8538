package gemini

import (
	"context"
	"fmt"
	"strings"

	"finance-advisor-server/internal/domain"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const temperature = 0.5

// Completer answers prompts through the Gemini API with an API key.
type Completer struct {
	client *genai.Client
}

func NewCompleter(ctx context.Context, apiKey string, logger domain.Logger) (*Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key must be provided")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	logger.Info("Gemini API completer initialized")
	return &Completer{client: client}, nil
}

func (c *Completer) Complete(ctx context.Context, modelID, systemPrompt, prompt string) (*domain.Completion, error) {
	model := c.client.GenerativeModel(modelID)
	model.SetTemperature(temperature)
	if systemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini call failed: %w", err)
	}
	return toCompletion(resp)
}

func (c *Completer) Close() error {
	return c.client.Close()
}

func toCompletion(resp *genai.GenerateContentResponse) (*domain.Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	out := &domain.Completion{Text: sb.String()}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
