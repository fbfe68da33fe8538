package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"finance-advisor-server/internal/domain"
)

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) add(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, line)
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.add("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.add("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.add("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.add("WARN: " + msg)
}

func (m *MockLogger) Contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.messages {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// fakeClock is a settable clock for services.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockLedgerRepository wraps another ledger and lets tests inject failures.
type MockLedgerRepository struct {
	domain.UsageLedgerRepository

	mu             sync.Mutex
	loadErr        error
	createErr      error
	swapConflicts  int
	loads          int
	swaps          int
	onFirstMissing func()
}

func (m *MockLedgerRepository) Load(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	m.mu.Lock()
	m.loads++
	loadErr := m.loadErr
	m.mu.Unlock()
	if loadErr != nil {
		return nil, loadErr
	}
	return m.UsageLedgerRepository.Load(ctx, userID)
}

func (m *MockLedgerRepository) Create(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	m.mu.Lock()
	hook := m.onFirstMissing
	m.onFirstMissing = nil
	createErr := m.createErr
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if createErr != nil {
		return nil, createErr
	}
	return m.UsageLedgerRepository.Create(ctx, entry)
}

func (m *MockLedgerRepository) Swap(ctx context.Context, prev, next *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	m.mu.Lock()
	m.swaps++
	if m.swapConflicts > 0 {
		m.swapConflicts--
		m.mu.Unlock()
		return nil, domain.ErrLedgerConflict
	}
	m.mu.Unlock()
	return m.UsageLedgerRepository.Swap(ctx, prev, next)
}

// MockSubscriptionRepository is an in-memory billing table.
type MockSubscriptionRepository struct {
	mu    sync.Mutex
	subs  map[string]*domain.Subscription
	err   error
	calls int
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{subs: make(map[string]*domain.Subscription)}
}

func (m *MockSubscriptionRepository) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	sub, ok := m.subs[userID]
	if !ok {
		return nil, nil
	}
	c := *sub
	return &c, nil
}

func (m *MockSubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, sub := range m.subs {
		if customerID != "" && sub.StripeCustomerID == customerID {
			c := *sub
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	c := *sub
	m.subs[sub.UserID] = &c
	return nil
}

// MockCompleter returns a canned answer and records the model it was asked for.
type MockCompleter struct {
	mu        sync.Mutex
	answer    string
	err       error
	calls     int
	lastModel string
	lastInput string
}

func (m *MockCompleter) Complete(ctx context.Context, modelID, systemPrompt, prompt string) (*domain.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastModel = modelID
	m.lastInput = prompt
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Completion{Text: m.answer, InputTokens: 10, OutputTokens: 20}, nil
}
