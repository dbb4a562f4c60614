package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Freakycoder/decentralized-uptime-monitoring/internal/domain"
	apperrors "github.com/Freakycoder/decentralized-uptime-monitoring/internal/errors"
)

const sessionKeyPrefix = "session:"

// SessionRepo resolves opaque bearer tokens to stored sessions.
type SessionRepo struct {
	rdb   *goredis.Client
	clock clockwork.Clock
}

func NewSessionRepo(rdb *goredis.Client, clock clockwork.Clock) *SessionRepo {
	return &SessionRepo{rdb: rdb, clock: clock}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Verify looks up the session behind a bearer token. Unknown and expired
// tokens both come back as unauthorized.
func (s *SessionRepo) Verify(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, apperrors.UnauthorizedError("missing session token")
	}

	raw, err := s.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, goredis.Nil) {
		return domain.Session{}, apperrors.UnauthorizedError("unknown session token")
	}
	if err != nil {
		return domain.Session{}, apperrors.InternalError("failed to load session", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return domain.Session{}, apperrors.InternalError("failed to decode session", err)
	}

	if !session.ExpiresAt.IsZero() && !s.clock.Now().Before(session.ExpiresAt) {
		return domain.Session{}, apperrors.UnauthorizedError("session expired")
	}
	return session, nil
}

// Store persists a session under its token with a TTL derived from the
// expiry. Used by tests and by the account service that issues tokens.
func (s *SessionRepo) Store(ctx context.Context, token string, session domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := session.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	return s.rdb.Set(ctx, sessionKey(token), payload, ttl).Err()
}

// Delete removes a session token. Deleting an unknown token is a no-op.
func (s *SessionRepo) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKey(token)).Err()
}
