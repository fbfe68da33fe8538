package vertex

import (
	"context"
	"fmt"
	"strings"

	"finance-advisor-server/internal/domain"

	"cloud.google.com/go/vertexai/genai"
)

const temperature = 0.5

// Completer answers prompts with Gemini models served from Vertex AI.
// Credentials come from Application Default Credentials.
type Completer struct {
	client *genai.Client
	logger domain.Logger
}

func NewCompleter(ctx context.Context, projectID, location string, logger domain.Logger) (*Completer, error) {
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}
	logger.Info("Vertex AI completer initialized", "project", projectID, "location", location)
	return &Completer{client: client, logger: logger}, nil
}

func (c *Completer) Complete(ctx context.Context, modelID, systemPrompt, prompt string) (*domain.Completion, error) {
	model := c.client.GenerativeModel(modelID)
	model.SetTemperature(temperature)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
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
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	out := &domain.Completion{Text: sb.String()}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
