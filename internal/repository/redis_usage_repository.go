package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"finance-advisor-server/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Ledger hashes live under ai_usage:<user id>. Timestamps are unix microseconds.
//
// redisCreateScript inserts a hash only if the key is absent.
// KEYS[1] = ledger key
// ARGV = plan, question_count, last_reset_date, last_question_date, created_at, updated_at
var redisCreateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1],
    "plan", ARGV[1],
    "question_count", ARGV[2],
    "last_reset_date", ARGV[3],
    "last_question_date", ARGV[4],
    "created_at", ARGV[5],
    "updated_at", ARGV[6])
return 1
`)

// redisSwapScript replaces the mutable fields if the stored count and last
// reset still equal the expected values. ARGV[6] and ARGV[7] are the expected
// values; an empty ARGV[6] skips the comparison.
// Returns -1 when the key is missing, 0 on mismatch, 1 when written.
var redisSwapScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return -1
end
if ARGV[6] ~= "" then
    local state = redis.call("HMGET", KEYS[1], "question_count", "last_reset_date")
    if state[1] ~= ARGV[6] or state[2] ~= ARGV[7] then
        return 0
    end
end
redis.call("HSET", KEYS[1],
    "plan", ARGV[1],
    "question_count", ARGV[2],
    "last_reset_date", ARGV[3],
    "last_question_date", ARGV[4],
    "updated_at", ARGV[5])
return 1
`)

// RedisUsageRepository implements domain.UsageLedgerRepository on Redis hashes.
type RedisUsageRepository struct {
	client *redis.Client
	logger domain.Logger
}

// NewRedisUsageRepository creates a new store backed by Redis.
func NewRedisUsageRepository(addr, password string, db int, logger domain.Logger) *RedisUsageRepository {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisUsageRepository{client: rdb, logger: logger}
}

// Ping checks connectivity.
func (r *RedisUsageRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisUsageRepository) Close() error {
	return r.client.Close()
}

func usageKey(userID string) string {
	return fmt.Sprintf("ai_usage:%s", userID)
}

func (r *RedisUsageRepository) Load(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	fields, err := r.client.HGetAll(ctx, usageKey(userID)).Result()
	if err != nil {
		return nil, domain.NewStorageError("load", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrLedgerNotFound
	}

	entry, err := decodeUsageHash(userID, fields)
	if err != nil {
		return nil, domain.NewStorageError("load", err)
	}
	return entry, nil
}

func (r *RedisUsageRepository) Create(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	created, err := redisCreateScript.Run(ctx, r.client, []string{usageKey(entry.UserID)},
		string(entry.Plan),
		strconv.Itoa(entry.QuestionCount),
		encodeMicros(entry.LastResetAt),
		encodeOptionalMicros(entry.LastQuestionAt),
		encodeMicros(entry.CreatedAt),
		encodeMicros(entry.UpdatedAt),
	).Int64()
	if err != nil {
		return nil, domain.NewStorageError("create", err)
	}
	if created == 0 {
		return nil, domain.ErrLedgerRaceCreated
	}
	return entry.Clone(), nil
}

func (r *RedisUsageRepository) Save(ctx context.Context, entry *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	return r.write(ctx, "save", entry, "", "")
}

func (r *RedisUsageRepository) Swap(ctx context.Context, prev, next *domain.UsageLedgerEntry) (*domain.UsageLedgerEntry, error) {
	return r.write(ctx, "swap", next, strconv.Itoa(prev.QuestionCount), encodeMicros(prev.LastResetAt))
}

func (r *RedisUsageRepository) write(ctx context.Context, op string, entry *domain.UsageLedgerEntry, expectCount, expectReset string) (*domain.UsageLedgerEntry, error) {
	res, err := redisSwapScript.Run(ctx, r.client, []string{usageKey(entry.UserID)},
		string(entry.Plan),
		strconv.Itoa(entry.QuestionCount),
		encodeMicros(entry.LastResetAt),
		encodeOptionalMicros(entry.LastQuestionAt),
		encodeMicros(entry.UpdatedAt),
		expectCount,
		expectReset,
	).Int64()
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}

	switch res {
	case -1:
		return nil, domain.ErrLedgerNotFound
	case 0:
		r.logger.Debug("Usage ledger swap lost a race", "user_id", entry.UserID)
		return nil, domain.ErrLedgerConflict
	}
	return r.Load(ctx, entry.UserID)
}

func decodeUsageHash(userID string, fields map[string]string) (*domain.UsageLedgerEntry, error) {
	count, err := strconv.Atoi(fields["question_count"])
	if err != nil {
		return nil, fmt.Errorf("invalid question_count: %w", err)
	}
	lastReset, err := decodeMicros(fields["last_reset_date"])
	if err != nil {
		return nil, fmt.Errorf("invalid last_reset_date: %w", err)
	}

	entry := &domain.UsageLedgerEntry{
		UserID:        userID,
		Plan:          domain.PlanTier(fields["plan"]),
		QuestionCount: count,
		LastResetAt:   lastReset,
	}
	if v := fields["last_question_date"]; v != "" {
		t, err := decodeMicros(v)
		if err != nil {
			return nil, fmt.Errorf("invalid last_question_date: %w", err)
		}
		entry.LastQuestionAt = &t
	}
	// Audit columns are best effort.
	entry.CreatedAt, _ = decodeMicros(fields["created_at"])
	entry.UpdatedAt, _ = decodeMicros(fields["updated_at"])
	return entry, nil
}

func encodeMicros(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

func encodeOptionalMicros(t *time.Time) string {
	if t == nil {
		return ""
	}
	return encodeMicros(*t)
}

func decodeMicros(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(n).UTC(), nil
}
