package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"finance-advisor-server/internal/domain"

	"github.com/supabase-community/supabase-go"
)

const usageTable = "ai_usage"

// SupabaseUsageRepository stores ledger rows in the ai_usage table through PostgREST.
type SupabaseUsageRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

func NewSupabaseUsageRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseUsageRepository {
	return &SupabaseUsageRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

func (r *SupabaseUsageRepository) client() (*supabase.Client, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	return client, nil
}

func (r *SupabaseUsageRepository) Load(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	client, err := r.client()
	if err != nil {
		return nil, domain.NewStorageError("load", err)
	}

	resp, _, err := client.From(usageTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, domain.NewStorageError("load", err)
	}

	entry, err := decodeUsageRow(resp)
	if err != nil {
		return nil, domain.NewStorageError("load", err)
	}
	if entry == nil {
		return nil, domain.ErrLedgerNotFound
	}
	return entry, nil
}

func (r *SupabaseUsageRepository) Create(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	client, err := r.client()
	if err != nil {
		return nil, domain.NewStorageError("create", err)
	}

	data := usageRowData(entry)
	data["user_id"] = entry.UserID
	data["created_at"] = formatTimestamp(entry.CreatedAt)

	resp, _, err := client.From(usageTable).Insert(data, false, "", "representation", "").Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrLedgerRaceCreated
		}
		return nil, domain.NewStorageError("create", err)
	}

	created, err := decodeUsageRow(resp)
	if err != nil {
		return nil, domain.NewStorageError("create", err)
	}
	if created == nil {
		return entry.Clone(), nil
	}
	return created, nil
}

func (r *SupabaseUsageRepository) Save(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	client, err := r.client()
	if err != nil {
		return nil, domain.NewStorageError("save", err)
	}

	resp, _, err := client.From(usageTable).
		Update(usageRowData(entry), "representation", "").
		Eq("user_id", entry.UserID).
		Execute()
	if err != nil {
		return nil, domain.NewStorageError("save", err)
	}

	saved, err := decodeUsageRow(resp)
	if err != nil {
		return nil, domain.NewStorageError("save", err)
	}
	if saved == nil {
		return nil, domain.ErrLedgerNotFound
	}
	return saved, nil
}

// Swap issues a filtered PATCH; an empty representation means another
// writer got there first.
func (r *SupabaseUsageRepository) Swap(ctx context.Context, prev, next *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	client, err := r.client()
	if err != nil {
		return nil, domain.NewStorageError("swap", err)
	}

	resp, _, err := client.From(usageTable).
		Update(usageRowData(next), "representation", "").
		Eq("user_id", prev.UserID).
		Eq("question_count", strconv.Itoa(prev.QuestionCount)).
		Eq("last_reset_date", formatTimestamp(prev.LastResetAt)).
		Execute()
	if err != nil {
		return nil, domain.NewStorageError("swap", err)
	}

	saved, err := decodeUsageRow(resp)
	if err != nil {
		return nil, domain.NewStorageError("swap", err)
	}
	if saved == nil {
		r.logger.Debug("Usage ledger swap lost a race", "user_id", prev.UserID)
		return nil, domain.ErrLedgerConflict
	}
	return saved, nil
}

func usageRowData(entry *domain.UsageLedgerEntry) map[string]interface{} {
	var lastQuestion interface{}
	if entry.LastQuestionAt != nil {
		lastQuestion = formatTimestamp(*entry.LastQuestionAt)
	}
	return map[string]interface{}{
		"plan":               string(entry.Plan),
		"question_count":     entry.QuestionCount,
		"last_reset_date":    formatTimestamp(entry.LastResetAt),
		"last_question_date": lastQuestion,
		"updated_at":         formatTimestamp(entry.UpdatedAt),
	}
}

func decodeUsageRow(resp []byte) (*domain.UsageLedgerEntry, error) {
	var rows []domain.UsageLedgerEntry
	if err := json.Unmarshal(resp, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// formatTimestamp renders t the way Postgres stores timestamptz so that
// equality filters match the stored value.
func formatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}

// isUniqueViolation recognises SQLSTATE 23505 in a PostgREST error.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(strings.ToLower(msg), "duplicate key")
}
