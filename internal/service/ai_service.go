package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"finance-advisor-server/internal/domain"
)

// maxContextLength bounds the client-rendered finance summary.
const maxContextLength = 8000

const advisorSystemPrompt = "You are a personal finance assistant inside a budgeting app. " +
	"Answer questions about budgeting, saving, debt, spending habits and investing basics. " +
	"Use the user's financial summary when one is provided and refer to concrete numbers from it. " +
	"Be concise and practical. Do not give individualized securities recommendations or tax or legal advice; " +
	"suggest consulting a licensed professional for those. " +
	"If the question is unrelated to personal finance, say that you can only help with personal finance topics."

type aiService struct {
	usage     domain.UsageService
	completer domain.Completer
	logger    domain.Logger
}

// NewAIService creates the ask flow. completer may be nil when no provider is
// configured; Ask then fails with domain.ErrAIUnavailable.
func NewAIService(usage domain.UsageService, completer domain.Completer, logger domain.Logger) *aiService {
	return &aiService{
		usage:     usage,
		completer: completer,
		logger:    logger,
	}
}

// Ask admits the caller, asks the model bound to their plan and counts the
// question once an answer came back.
func (s *aiService) Ask(ctx context.Context, id domain.Identity, req domain.AskRequest) (*domain.AskResponse, domain.Admission, error) {
	if s.completer == nil {
		return nil, nil, domain.ErrAIUnavailable
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, nil, &domain.ValidationError{Field: "question", Message: "cannot be empty"}
	}
	if utf8.RuneCountInString(question) > domain.MaxQuestionLength {
		return nil, nil, &domain.ValidationError{Field: "question", Message: fmt.Sprintf("must be at most %d characters", domain.MaxQuestionLength)}
	}
	if utf8.RuneCountInString(req.Context) > maxContextLength {
		return nil, nil, &domain.ValidationError{Field: "context", Message: fmt.Sprintf("must be at most %d characters", maxContextLength)}
	}

	adm, err := s.usage.Admit(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	admitted, ok := adm.(domain.Admitted)
	if !ok {
		return nil, adm, nil
	}

	model := admitted.Entitlement.ModelID
	completion, err := s.completer.Complete(ctx, model, advisorSystemPrompt, buildAdvisorPrompt(question, req.Context))
	if err != nil {
		s.logger.Error("AI completion failed", err, "user_id", id.UserID, "model", model)
		return nil, adm, fmt.Errorf("%w: %v", domain.ErrCompletionFailed, err)
	}

	rec, err := s.usage.RecordUsage(ctx, id.UserID)
	if err != nil {
		var quota *domain.QuotaExceededError
		if errors.As(err, &quota) {
			// A concurrent request spent the last question after we were admitted.
			return nil, domain.Denied{
				Reason: domain.DenialQuotaExceeded,
				Status: &domain.UsageStatus{
					Allowed:   false,
					Remaining: 0,
					Limit:     quota.Limit,
					Used:      quota.Used,
					ResetDate: quota.ResetDate,
					Plan:      id.Plan,
				},
			}, nil
		}
		s.logger.Error("Failed to record AI usage", err, "user_id", id.UserID)
		return nil, adm, err
	}

	s.logger.Info("AI question answered",
		"user_id", id.UserID,
		"plan", id.Plan,
		"model", model,
		"input_tokens", completion.InputTokens,
		"output_tokens", completion.OutputTokens,
		"remaining", rec.Remaining)

	return &domain.AskResponse{
		Answer: completion.Text,
		Model:  model,
		Usage:  *rec,
	}, adm, nil
}

func buildAdvisorPrompt(question, financeContext string) string {
	var b strings.Builder
	if ctx := strings.TrimSpace(financeContext); ctx != "" {
		b.WriteString("User's financial summary:\n---------------------\n")
		b.WriteString(ctx)
		b.WriteString("\n---------------------\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
