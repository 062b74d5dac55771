package settlement

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"flai/models"
	"flai/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	attemptKeyPrefix = "settlement:"
	attemptTTL       = time.Hour

	// addressIndexKey is the global derivation counter. It is incremented and
	// never reused or reset; the key carries no TTL because index reuse would
	// let a stale deposit satisfy a new payment request.
	addressIndexKey = "flai:address_index"
)

// Tracker records in-flight on-chain payment attempts and allocates
// derivation indices.
type Tracker interface {
	NextAddressIndex(ctx context.Context) (uint64, error)
	SaveAttempt(ctx context.Context, userID string, attempt models.SettlementAttempt) error
	LoadAttempt(ctx context.Context, userID string) (*models.SettlementAttempt, error)
	DeleteAttempt(ctx context.Context, userID string) error
}

// RedisTracker implements Tracker on a dedicated Redis DB. Attempts are
// hashes with a one hour TTL; an abandoned payment flow simply expires.
type RedisTracker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisTracker(client *redis.Client, logger *zap.Logger) *RedisTracker {
	return &RedisTracker{client: client, logger: logger}
}

// NewDefaultTracker wires a tracker onto the shared settlement cache client.
func NewDefaultTracker() *RedisTracker {
	return NewRedisTracker(utils.GetSettlementCacheClient(), utils.GetLogger())
}

func attemptKey(userID string) string {
	return attemptKeyPrefix + userID
}

// NextAddressIndex atomically increments the global derivation counter.
func (t *RedisTracker) NextAddressIndex(ctx context.Context) (uint64, error) {
	idx, err := t.client.Incr(ctx, addressIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate address index: %w", err)
	}
	return uint64(idx), nil
}

func (t *RedisTracker) SaveAttempt(ctx context.Context, userID string, attempt models.SettlementAttempt) error {
	if attempt.InitialBalance == nil || attempt.ExpectedAmount == nil {
		return fmt.Errorf("save attempt for %s: balance fields must be set", userID)
	}
	key := attemptKey(userID)
	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"address":         strings.ToLower(attempt.Address),
		"initial_balance": attempt.InitialBalance.String(),
		"expected_amount": attempt.ExpectedAmount.String(),
		"address_index":   strconv.FormatUint(attempt.AddressIndex, 10),
		"created_at":      attempt.CreatedAt.UTC().Format(time.RFC3339),
	})
	pipe.Expire(ctx, key, attemptTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save settlement attempt for %s: %w", userID, err)
	}
	return nil
}

// LoadAttempt returns nil with no error when the user has no attempt on file.
func (t *RedisTracker) LoadAttempt(ctx context.Context, userID string) (*models.SettlementAttempt, error) {
	fields, err := t.client.HGetAll(ctx, attemptKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load settlement attempt for %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	attempt := &models.SettlementAttempt{Address: fields["address"]}

	attempt.InitialBalance, err = parseBigInt(fields["initial_balance"])
	if err != nil {
		return nil, fmt.Errorf("attempt for %s: initial_balance: %w", userID, err)
	}
	attempt.ExpectedAmount, err = parseBigInt(fields["expected_amount"])
	if err != nil {
		return nil, fmt.Errorf("attempt for %s: expected_amount: %w", userID, err)
	}
	attempt.AddressIndex, err = strconv.ParseUint(fields["address_index"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("attempt for %s: address_index: %w", userID, err)
	}
	attempt.CreatedAt, err = time.Parse(time.RFC3339, fields["created_at"])
	if err != nil {
		t.logger.Warn("settlement attempt has unparseable created_at",
			zap.String("userID", userID), zap.Error(err))
	}
	return attempt, nil
}

func (t *RedisTracker) DeleteAttempt(ctx context.Context, userID string) error {
	if err := t.client.Del(ctx, attemptKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete settlement attempt for %s: %w", userID, err)
	}
	return nil
}

func parseBigInt(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return v, nil
}
