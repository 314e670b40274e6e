package auth

import (
	"context"
	"strings"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/snowflake"
)

// PasswordParams are the argon2id cost parameters applied to every password this service hashes.
type PasswordParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Service implements the session and token lifecycle described in §4.3: create session, validate token, delete
// session. It holds no state of its own beyond its dependencies — sessions live entirely in Postgres.
type Service struct {
	repo     *Repository
	ids      *snowflake.Generator
	secret   [128]byte
	password PasswordParams
}

// NewService constructs a Service. secret is the instance-wide HMAC key read once at boot via internal/secret.
func NewService(repo *Repository, ids *snowflake.Generator, secret [128]byte, password PasswordParams) *Service {
	return &Service{repo: repo, ids: ids, secret: secret, password: password}
}

// CreateSession verifies identifier/password, inserts a new session row, and returns a signed token plus the
// inserted session.
func (s *Service) CreateSession(ctx context.Context, identifier, password, platform, client, clientIP string) (string, Session, error) {
	cred, err := s.repo.FindCredential(ctx, identifier)
	if err != nil {
		if err == ErrUserNotFound {
			return "", Session{}, apierr.NotFound("No user matches that username or email")
		}
		return "", Session{}, apierr.Server(err.Error())
	}

	ok, err := VerifyPassword(password, cred.PasswordHash)
	if err != nil {
		return "", Session{}, apierr.Server(err.Error())
	}
	if !ok {
		return "", Session{}, apierr.Unauthorized("Incorrect password")
	}

	session := Session{
		ID:       s.ids.Next(),
		UserID:   cred.ID,
		Platform: strings.ToLower(platform),
		Client:   strings.ToLower(client),
		IP:       clientIP,
	}
	if err := s.repo.Insert(ctx, session); err != nil {
		return "", Session{}, apierr.Server(err.Error())
	}

	token, err := NewToken(session.UserID, session.ID, s.secret)
	if err != nil {
		return "", Session{}, apierr.Server(err.Error())
	}
	return token, session, nil
}

// ValidateToken verifies the HMAC signature, then confirms the referenced session still exists and its owner is
// not tombstoned. It satisfies the Validator interface consumed by RequireAuth.
func (s *Service) ValidateToken(ctx context.Context, token string) (userID, sessionID uint64, err error) {
	userID, sessionID, err = ParseToken(token, s.secret)
	if err != nil {
		return 0, 0, err
	}
	if _, err := s.repo.Find(ctx, sessionID, userID); err != nil {
		return 0, 0, err
	}
	return userID, sessionID, nil
}

// ListSessions returns every session belonging to userID, for GET /sessions.
func (s *Service) ListSessions(ctx context.Context, userID uint64) ([]Session, error) {
	sessions, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apierr.Server(err.Error())
	}
	return sessions, nil
}

// DeleteSession re-authenticates the caller named by token with their account password, then removes the session
// identified by sessionID (the path's <id>, which need not be the token's own session — any of the caller's
// sessions may be revoked this way). It returns the number of sessions the user has left, letting the caller decide
// whether to trigger a presence transition (§4.7).
func (s *Service) DeleteSession(ctx context.Context, token string, sessionID uint64, password string) (remaining int64, userID uint64, err error) {
	userID, _, err = s.ValidateToken(ctx, token)
	if err != nil {
		return 0, 0, apierr.Unauthorized("Invalid or expired token")
	}

	cred, err := s.repo.credentialByID(ctx, userID)
	if err != nil {
		return 0, 0, apierr.Server(err.Error())
	}
	ok, err := VerifyPassword(password, cred.PasswordHash)
	if err != nil {
		return 0, 0, apierr.Server(err.Error())
	}
	if !ok {
		return 0, 0, apierr.Unauthorized("Incorrect password")
	}

	remaining, found, err := s.repo.Delete(ctx, sessionID, userID)
	if err != nil {
		return 0, 0, apierr.Server(err.Error())
	}
	if !found {
		return 0, 0, apierr.NotFound("session")
	}
	return remaining, userID, nil
}
