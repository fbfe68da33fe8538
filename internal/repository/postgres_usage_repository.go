package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"finance-advisor-server/internal/domain"

	"github.com/lib/pq"
)

// UsageSchema creates the ledger and billing tables used by the postgres backend.
const UsageSchema = `
CREATE TABLE IF NOT EXISTS ai_usage (
	user_id            TEXT PRIMARY KEY,
	plan               TEXT NOT NULL,
	question_count     INTEGER NOT NULL DEFAULT 0 CHECK (question_count >= 0),
	last_reset_date    TIMESTAMPTZ NOT NULL,
	last_question_date TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_subscriptions (
	user_id                TEXT PRIMARY KEY,
	plan                   TEXT NOT NULL,
	status                 TEXT NOT NULL,
	stripe_customer_id     TEXT NOT NULL DEFAULT '',
	stripe_subscription_id TEXT NOT NULL DEFAULT '',
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const usageColumns = "user_id, plan, question_count, last_reset_date, last_question_date, created_at, updated_at"

// PostgresUsageRepository implements domain.UsageLedgerRepository on database/sql.
type PostgresUsageRepository struct {
	db     *sql.DB
	logger domain.Logger
}

func NewPostgresUsageRepository(db *sql.DB, logger domain.Logger) *PostgresUsageRepository {
	return &PostgresUsageRepository{db: db, logger: logger}
}

// EnsureSchema creates the tables if they do not exist.
func (r *PostgresUsageRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, UsageSchema); err != nil {
		return domain.NewStorageError("ensure schema", err)
	}
	return nil
}

func (r *PostgresUsageRepository) Load(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+usageColumns+" FROM ai_usage WHERE user_id = $1",
		userID)

	entry, err := scanUsage(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("load", err)
	}
	return entry, nil
}

func (r *PostgresUsageRepository) Create(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	query := `
		INSERT INTO ai_usage (user_id, plan, question_count, last_reset_date, last_question_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + usageColumns

	row := r.db.QueryRowContext(ctx, query,
		entry.UserID, string(entry.Plan), entry.QuestionCount, entry.LastResetAt,
		nullTime(entry.LastQuestionAt), entry.CreatedAt, entry.UpdatedAt)

	created, err := scanUsage(row)
	if err != nil {
		if isPQUniqueViolation(err) {
			return nil, domain.ErrLedgerRaceCreated
		}
		return nil, domain.NewStorageError("create", err)
	}
	return created, nil
}

func (r *PostgresUsageRepository) Save(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	query := `
		UPDATE ai_usage SET plan = $2, question_count = $3, last_reset_date = $4, last_question_date = $5, updated_at = $6
		WHERE user_id = $1
		RETURNING ` + usageColumns

	row := r.db.QueryRowContext(ctx, query,
		entry.UserID, string(entry.Plan), entry.QuestionCount, entry.LastResetAt,
		nullTime(entry.LastQuestionAt), entry.UpdatedAt)

	saved, err := scanUsage(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("save", err)
	}
	return saved, nil
}

func (r *PostgresUsageRepository) Swap(ctx context.Context, prev, next *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	query := `
		UPDATE ai_usage SET plan = $2, question_count = $3, last_reset_date = $4, last_question_date = $5, updated_at = $6
		WHERE user_id = $1 AND question_count = $7 AND last_reset_date = $8
		RETURNING ` + usageColumns

	row := r.db.QueryRowContext(ctx, query,
		prev.UserID, string(next.Plan), next.QuestionCount, next.LastResetAt,
		nullTime(next.LastQuestionAt), next.UpdatedAt,
		prev.QuestionCount, prev.LastResetAt)

	saved, err := scanUsage(row)
	if err == sql.ErrNoRows {
		r.logger.Debug("Usage ledger swap lost a race", "user_id", prev.UserID)
		return nil, domain.ErrLedgerConflict
	}
	if err != nil {
		return nil, domain.NewStorageError("swap", err)
	}
	return saved, nil
}

func scanUsage(row *sql.Row) (*domain.UsageLedgerEntry, error) {
	var (
		e            domain.UsageLedgerEntry
		plan         string
		lastQuestion sql.NullTime
	)
	if err := row.Scan(&e.UserID, &plan, &e.QuestionCount, &e.LastResetAt, &lastQuestion, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Plan = domain.PlanTier(plan)
	if lastQuestion.Valid {
		t := lastQuestion.Time
		e.LastQuestionAt = &t
	}
	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// isPQUniqueViolation reports SQLSTATE 23505.
func isPQUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// PostgresSubscriptionRepository reads the billing table over database/sql.
type PostgresSubscriptionRepository struct {
	db *sql.DB
}

func NewPostgresSubscriptionRepository(db *sql.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

const selectSubscription = "SELECT user_id, plan, status, stripe_customer_id, stripe_subscription_id, updated_at FROM user_subscriptions"

func (r *PostgresSubscriptionRepository) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectSubscription+" WHERE user_id = $1", userID))
}

func (r *PostgresSubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		selectSubscription+" WHERE stripe_customer_id = $1 ORDER BY updated_at DESC LIMIT 1", customerID))
}

func (r *PostgresSubscriptionRepository) scanOne(row *sql.Row) (*domain.Subscription, error) {
	var (
		sub  domain.Subscription
		plan string
	)
	err := row.Scan(&sub.UserID, &plan, &sub.Status, &sub.StripeCustomerID, &sub.StripeSubscriptionID, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("get subscription", err)
	}
	sub.Plan = domain.PlanTier(plan)
	return &sub, nil
}

func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO user_subscriptions (user_id, plan, status, stripe_customer_id, stripe_subscription_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.UserID, string(sub.Plan), sub.Status, sub.StripeCustomerID, sub.StripeSubscriptionID, sub.UpdatedAt)
	if err != nil {
		return domain.NewStorageError("upsert subscription", err)
	}
	return nil
}
