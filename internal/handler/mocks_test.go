package handler

import (
	"context"
	"sync"
	"time"

	"finance-advisor-server/internal/domain"
)

type mockAuthService struct {
	user        *domain.SupabaseUser
	err         error
	lastToken   string
	plan        domain.PlanTier
	identityErr error
}

func (m *mockAuthService) ValidateToken(token string) (*domain.SupabaseUser, error) {
	m.lastToken = token
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockAuthService) Identity(ctx context.Context, user *domain.SupabaseUser) (domain.Identity, error) {
	if m.identityErr != nil {
		return domain.Identity{}, m.identityErr
	}
	plan := m.plan
	if plan == "" {
		plan = domain.PlanBasic
	}
	return domain.Identity{UserID: user.ID, Plan: plan, RegisteredAt: user.CreatedAt}, nil
}

type mockUsageService struct {
	mu sync.Mutex

	status    *domain.UsageStatus
	checkErr  error
	record    *domain.UsageRecord
	recordErr error
	grace     domain.GraceStatus
	entry     *domain.UsageLedgerEntry
	ledgerErr error
	resetErrs map[string]error

	checkedPlan domain.PlanTier
	resetUsers  []string
}

func (m *mockUsageService) CheckUsage(ctx context.Context, userID string, plan domain.PlanTier) (*domain.UsageStatus, error) {
	m.checkedPlan = plan
	return m.status, m.checkErr
}

func (m *mockUsageService) RecordUsage(ctx context.Context, userID string) (*domain.UsageRecord, error) {
	return m.record, m.recordErr
}

func (m *mockUsageService) CheckGracePeriod(plan domain.PlanTier, registeredAt time.Time) domain.GraceStatus {
	return m.grace
}

func (m *mockUsageService) Admit(ctx context.Context, id domain.Identity) (domain.Admission, error) {
	return domain.Admitted{}, nil
}

func (m *mockUsageService) Ledger(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	return m.entry, m.ledgerErr
}

func (m *mockUsageService) Reset(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetUsers = append(m.resetUsers, userID)
	if err := m.resetErrs[userID]; err != nil {
		return nil, err
	}
	return &domain.UsageLedgerEntry{UserID: userID, Plan: domain.PlanBasic}, nil
}

type mockAIService struct {
	resp      *domain.AskResponse
	admission domain.Admission
	err       error
	lastReq   domain.AskRequest
	lastID    domain.Identity
}

func (m *mockAIService) Ask(ctx context.Context, id domain.Identity, req domain.AskRequest) (*domain.AskResponse, domain.Admission, error) {
	m.lastID = id
	m.lastReq = req
	return m.resp, m.admission, m.err
}

type mockBillingService struct {
	events []domain.BillingEvent
	err    error
}

func (m *mockBillingService) Apply(ctx context.Context, event domain.BillingEvent) (*domain.Subscription, error) {
	m.events = append(m.events, event)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Subscription{UserID: event.UserID}, nil
}
