package domain

import "context"

// MaxQuestionLength bounds the user-supplied part of a prompt.
const MaxQuestionLength = 2000

// AskRequest is a question for the financial advisor.
type AskRequest struct {
	Question string `json:"question"`
	// Context is an optional summary of the user's finances (budgets,
	// recent spending) rendered by the client.
	Context string `json:"context,omitempty"`
}

// AskResponse is the advisor answer plus the remaining allowance.
type AskResponse struct {
	Answer string      `json:"answer"`
	Model  string      `json:"model"`
	Usage  UsageRecord `json:"usage"`
}

// Completion is the text returned by the AI provider.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Completer is the AI completion collaborator.
type Completer interface {
	Complete(ctx context.Context, modelID, systemPrompt, prompt string) (*Completion, error)
}

// AIService runs the gated ask flow.
type AIService interface {
	// Ask returns a Denied admission (and nil response) when the user may
	// not spend a question right now.
	Ask(ctx context.Context, id Identity, req AskRequest) (*AskResponse, Admission, error)
}
