package session

import (
	"context"

	"flai/models"
)

// Store persists per-user booking sessions. Load always returns a usable
// session: on a miss or a store failure the caller gets a fresh default
// session plus the error for logging, never a nil session.
type Store interface {
	Load(ctx context.Context, userID string) (models.Session, error)
	Save(ctx context.Context, userID string, sess models.Session) error
	SetState(ctx context.Context, userID string, state models.State) error
}
