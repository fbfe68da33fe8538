package repository

import (
	"context"
	"sync"

	"finance-advisor-server/internal/domain"
)

// MemoryUsageRepository implements domain.UsageLedgerRepository in memory.
// Thread-safe via RWMutex. Entries are copied in and out.
type MemoryUsageRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.UsageLedgerEntry
}

func NewMemoryUsageRepository() *MemoryUsageRepository {
	return &MemoryUsageRepository{
		entries: make(map[string]*domain.UsageLedgerEntry),
	}
}

func (r *MemoryUsageRepository) Load(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return e.Clone(), nil
}

func (r *MemoryUsageRepository) Create(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.UserID]; ok {
		return nil, domain.ErrLedgerRaceCreated
	}
	r.entries[entry.UserID] = entry.Clone()
	return entry.Clone(), nil
}

func (r *MemoryUsageRepository) Save(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.entries[entry.UserID]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	next := entry.Clone()
	next.CreatedAt = cur.CreatedAt
	r.entries[entry.UserID] = next
	return next.Clone(), nil
}

func (r *MemoryUsageRepository) Swap(ctx context.Context, prev, next *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.entries[prev.UserID]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	if cur.QuestionCount != prev.QuestionCount || !cur.LastResetAt.Equal(prev.LastResetAt) {
		return nil, domain.ErrLedgerConflict
	}
	stored := next.Clone()
	stored.CreatedAt = cur.CreatedAt
	r.entries[prev.UserID] = stored
	return stored.Clone(), nil
}

// MemorySubscriptionRepository implements domain.SubscriptionRepository in memory.
type MemorySubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]domain.Subscription
}

func NewMemorySubscriptionRepository() *MemorySubscriptionRepository {
	return &MemorySubscriptionRepository{subs: make(map[string]domain.Subscription)}
}

func (r *MemorySubscriptionRepository) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[userID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r *MemorySubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if customerID != "" && sub.StripeCustomerID == customerID {
			return &sub, nil
		}
	}
	return nil, nil
}

func (r *MemorySubscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.UserID] = *sub
	return nil
}
