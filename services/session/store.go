package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flai/models"
	"flai/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix = "session:"
	sessionTTL       = 24 * time.Hour

	fieldState   = "state"
	fieldHistory = "conversation_history"
	fieldOffers  = "flight_offers"
	fieldDetails = "flight_details"
)

// RedisStore keeps each session in a Redis hash keyed by user ID. Every write
// refreshes the 24h TTL. Writes are whole-record overwrites except SetState,
// which touches the state field only.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

// Load fetches the whole session hash. A missing key yields a fresh default
// session with a nil error; a store failure yields the same fresh session
// plus the error, so a Redis outage degrades to a stateless turn instead of
// failing the request.
func (s *RedisStore) Load(ctx context.Context, userID string) (models.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		s.logger.Warn("session load failed, falling back to fresh session",
			zap.String("userID", userID), zap.Error(err))
		return models.NewSession(), fmt.Errorf("load session %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return models.NewSession(), nil
	}

	sess := models.NewSession()
	if raw, ok := fields[fieldState]; ok && models.State(raw).Valid() {
		sess.State = models.State(raw)
	}
	if raw, ok := fields[fieldHistory]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &sess.ConversationHistory); err != nil {
			s.logger.Warn("corrupt conversation history, dropping",
				zap.String("userID", userID), zap.Error(err))
			sess.ConversationHistory = []models.DialogTurn{}
		}
	}
	if raw, ok := fields[fieldOffers]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &sess.FlightOffers); err != nil {
			s.logger.Warn("corrupt flight offers, dropping",
				zap.String("userID", userID), zap.Error(err))
			sess.FlightOffers = []models.FlightOffer{}
		}
	}
	if raw, ok := fields[fieldDetails]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &sess.FlightDetails); err != nil {
			s.logger.Warn("corrupt flight details, dropping",
				zap.String("userID", userID), zap.Error(err))
			sess.FlightDetails = models.FlightDetails{}
		}
	}
	return sess, nil
}

// Save overwrites the whole session hash and refreshes the TTL.
func (s *RedisStore) Save(ctx context.Context, userID string, sess models.Session) error {
	if !sess.State.Valid() {
		return fmt.Errorf("save session %s: invalid state %q", userID, sess.State)
	}

	history, err := json.Marshal(sess.ConversationHistory)
	if err != nil {
		return fmt.Errorf("marshal conversation history: %w", err)
	}
	offers, err := json.Marshal(sess.FlightOffers)
	if err != nil {
		return fmt.Errorf("marshal flight offers: %w", err)
	}
	details, err := json.Marshal(sess.FlightDetails)
	if err != nil {
		return fmt.Errorf("marshal flight details: %w", err)
	}

	key := sessionKey(userID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		fieldState:   string(sess.State),
		fieldHistory: string(history),
		fieldOffers:  string(offers),
		fieldDetails: string(details),
	})
	pipe.Expire(ctx, key, sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session %s: %w", userID, err)
	}
	return nil
}

// SetState writes only the state field, leaving the other fields untouched so
// a concurrent history append is not clobbered.
func (s *RedisStore) SetState(ctx context.Context, userID string, state models.State) error {
	if !state.Valid() {
		return fmt.Errorf("set state for %s: invalid state %q", userID, state)
	}
	key := sessionKey(userID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldState, string(state))
	pipe.Expire(ctx, key, sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set state for %s: %w", userID, err)
	}
	return nil
}

// NewDefaultStore wires a store onto the shared session cache client.
func NewDefaultStore() *RedisStore {
	return NewRedisStore(utils.GetSessionCacheClient(), utils.GetLogger())
}
