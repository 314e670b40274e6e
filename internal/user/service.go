package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/events"
	"github.com/eludris-go/eludris/internal/snowflake"
)

const (
	verificationTTL  = 7 * 24 * time.Hour
	passwordResetTTL = 24 * time.Hour
)

// Service implements the user lifecycle operations of §4.4.
type Service struct {
	repo     *Repository
	ids      *snowflake.Generator
	cache    *redis.Client
	events   *events.Publisher
	hasher   Hasher
	mailer   Mailer
	bioLimit int
}

// NewService constructs a Service. mailer may be a no-op implementation whose Configured() returns false; that is
// how "instance email not configured" is expressed throughout §4.4.
func NewService(repo *Repository, ids *snowflake.Generator, cache *redis.Client, pub *events.Publisher, hasher Hasher, mailer Mailer, bioLimit int) *Service {
	return &Service{repo: repo, ids: ids, cache: cache, events: pub, hasher: hasher, mailer: mailer, bioLimit: bioLimit}
}

func verificationKey(id uint64) string  { return fmt.Sprintf("verification:%d", id) }
func resetKey(email string) string      { return "password-reset:" + email }
func genCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 100000, nil
}

// Create validates and inserts a new user, per §4.4's create semantics: tombstone purge, duplicate rejection,
// conditional verification email, password hashing.
func (s *Service) Create(ctx context.Context, p CreateParams) (*User, error) {
	username := NormalizeUsername(p.Username)
	email := NormalizeEmail(p.Email)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(p.Password); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindLive(ctx, username, email)
	if err != nil {
		return nil, apierr.Server(err.Error())
	}
	if existing != nil {
		if existing.Username == username {
			return nil, apierr.Conflict("username")
		}
		return nil, apierr.Conflict("email")
	}
	if err := s.repo.DeleteTombstoned(ctx, username, email); err != nil {
		return nil, apierr.Server(err.Error())
	}

	id := s.ids.Next()
	verified := !s.mailer.Configured()

	if s.mailer.Configured() {
		code, err := genCode()
		if err != nil {
			return nil, apierr.Server(err.Error())
		}
		if err := s.cache.Set(ctx, verificationKey(id), code, verificationTTL).Err(); err != nil {
			return nil, apierr.Server(err.Error())
		}
		if err := s.mailer.SendVerification(ctx, email, username, code); err != nil {
			return nil, apierr.Server(err.Error())
		}
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, apierr.Server(err.Error())
	}

	if err := s.repo.Insert(ctx, id, username, email, hash, verified); err != nil {
		return nil, apierr.Server(err.Error())
	}

	return &User{ID: id, Username: username, Email: email, Verified: verified, Status: Status{Type: StatusOffline}}, nil
}

// Verify checks a submitted code against the cached one for userID and marks the account verified on success.
func (s *Service) Verify(ctx context.Context, userID uint64, code int) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return apierr.Server(err.Error())
	}
	if u.Verified {
		return apierr.Validation("code", "user is already verified")
	}

	cached, err := s.cache.Get(ctx, verificationKey(userID)).Int()
	if err != nil {
		return apierr.Validation("code", "no verification code pending or it has expired")
	}
	if cached != code {
		return apierr.Validation("code", "incorrect verification code")
	}

	if err := s.repo.SetVerified(ctx, userID); err != nil {
		return apierr.Server(err.Error())
	}
	return s.cache.Del(ctx, verificationKey(userID)).Err()
}

// Update changes account-level fields (username/email/password), requiring the current password and re-checking
// duplicates exactly as Create does.
func (s *Service) Update(ctx context.Context, userID uint64, p UpdateParams) (*User, error) {
	if !p.HasAnyField() {
		return nil, apierr.Validation("body", "at least one field must be present")
	}

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apierr.Server(err.Error())
	}
	ok, err := s.hasher.Verify(p.Password, current.PasswordHash)
	if err != nil {
		return nil, apierr.Server(err.Error())
	}
	if !ok {
		return nil, apierr.Unauthorized("incorrect password")
	}

	var username, email *string
	if p.Username != nil {
		n := NormalizeUsername(*p.Username)
		if err := ValidateUsername(n); err != nil {
			return nil, err
		}
		username = &n
	}
	if p.Email != nil {
		n := NormalizeEmail(*p.Email)
		if err := ValidateEmail(n); err != nil {
			return nil, err
		}
		email = &n
	}
	if username != nil || email != nil {
		dupUsername, dupEmail := "", ""
		if username != nil {
			dupUsername = *username
		}
		if email != nil {
			dupEmail = *email
		}
		existing, err := s.repo.FindLive(ctx, dupUsername, dupEmail)
		if err != nil {
			return nil, apierr.Server(err.Error())
		}
		if existing != nil && existing.ID != userID {
			if username != nil && existing.Username == *username {
				return nil, apierr.Conflict("username")
			}
			return nil, apierr.Conflict("email")
		}
	}

	var passwordHash *string
	if p.NewPassword != nil {
		if err := ValidatePassword(*p.NewPassword); err != nil {
			return nil, err
		}
		h, err := s.hasher.Hash(*p.NewPassword)
		if err != nil {
			return nil, apierr.Server(err.Error())
		}
		passwordHash = &h
	}

	updated, err := s.repo.UpdateAccount(ctx, userID, username, email, passwordHash)
	if err == ErrRaceConflict {
		return nil, apierr.Conflict("username")
	}
	if err != nil {
		return nil, apierr.Server(err.Error())
	}

	if s.mailer.Configured() {
		if err := s.mailer.SendUserUpdated(ctx, updated.Email, updated.Username, username, email, passwordHash != nil); err != nil {
			return nil, apierr.Server(err.Error())
		}
	}
	return updated, nil
}

// UpdateProfile applies a partial profile update and publishes USER_UPDATE on success.
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, p ProfileParams) (*User, error) {
	if !p.HasAnyField() {
		return nil, apierr.Validation("body", "at least one field must be present")
	}
	if err := ValidateDisplayName(p.DisplayName); err != nil {
		return nil, err
	}
	if err := ValidateBio(p.Bio, s.bioLimit); err != nil {
		return nil, err
	}
	if err := ValidateStatusText(p.StatusText); err != nil {
		return nil, err
	}
	if p.AvatarID != nil {
		ok, err := s.repo.FileExists(ctx, *p.AvatarID, "avatars")
		if err != nil {
			return nil, apierr.Server(err.Error())
		}
		if !ok {
			return nil, apierr.Validation("avatar_id", "avatar must reference an existing file in the avatars bucket")
		}
	}
	if p.BannerID != nil {
		ok, err := s.repo.FileExists(ctx, *p.BannerID, "banners")
		if err != nil {
			return nil, apierr.Server(err.Error())
		}
		if !ok {
			return nil, apierr.Validation("banner_id", "banner must reference an existing file in the banners bucket")
		}
	}

	updated, err := s.repo.UpdateProfile(ctx, userID, p)
	if err != nil {
		return nil, apierr.Server(err.Error())
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, events.TypeUserUpdate, updated.Public(true))
	}
	return updated, nil
}

// Get reads a user by id, masking status and private fields per the presence/requester rules of §4.4. online
// reports whether the target currently holds a live gateway connection (membership in the "sessions" set).
func (s *Service) Get(ctx context.Context, id uint64, requesterID *uint64, online bool) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err == ErrNotFound {
		return nil, apierr.NotFound("no such user")
	}
	if err != nil {
		return nil, apierr.Server(err.Error())
	}
	return maskUser(u, requesterID, online), nil
}

// GetByUsername is Get, keyed by username instead of id.
func (s *Service) GetByUsername(ctx context.Context, username string, requesterID *uint64, online bool) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err == ErrNotFound {
		return nil, apierr.NotFound("no such user")
	}
	if err != nil {
		return nil, apierr.Server(err.Error())
	}
	return maskUser(u, requesterID, online), nil
}

// maskUser clears email/verified unless requesterID is the user themselves, and forces status to offline/no-text
// unless the requester is the user or the user is online.
func maskUser(u *User, requesterID *uint64, online bool) *User {
	out := *u
	isSelf := requesterID != nil && *requesterID == u.ID
	if !isSelf {
		out.Email = ""
		out.Verified = false
	}
	if !isSelf && !online {
		out.Status = Status{Type: StatusOffline}
	}
	return &out
}

// Delete requires password re-authentication, tombstones the account, and sends a deletion notice.
func (s *Service) Delete(ctx context.Context, userID uint64, password string) error {
	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return apierr.Server(err.Error())
	}
	ok, err := s.hasher.Verify(password, current.PasswordHash)
	if err != nil {
		return apierr.Server(err.Error())
	}
	if !ok {
		return apierr.Unauthorized("incorrect password")
	}

	username, email, err := s.repo.MarkDeleted(ctx, userID)
	if err != nil {
		return apierr.Server(err.Error())
	}
	if s.mailer.Configured() {
		return s.mailer.SendDeleted(ctx, email, username)
	}
	return nil
}

// CreatePasswordResetCode emails a reset code for the given address. Fails MISDIRECTED if no mailer is configured.
func (s *Service) CreatePasswordResetCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if !s.mailer.Configured() {
		return apierr.Misdirected("this instance has no email configured")
	}

	username, err := s.repo.UsernameForEmail(ctx, email)
	if err == ErrNotFound {
		return apierr.NotFound("no such user")
	}
	if err != nil {
		return apierr.Server(err.Error())
	}

	code, err := genCode()
	if err != nil {
		return apierr.Server(err.Error())
	}
	if err := s.cache.Set(ctx, resetKey(email), code, passwordResetTTL).Err(); err != nil {
		return apierr.Server(err.Error())
	}
	return s.mailer.SendPasswordReset(ctx, email, username, code)
}

// ResetPassword accepts {code, email, new_password}, validates the cached code, and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, email string, code int, newPassword string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	cached, err := s.cache.Get(ctx, resetKey(email)).Int()
	if err != nil {
		return apierr.Validation("code", "no password reset code pending or it has expired")
	}
	if cached != code {
		return apierr.Validation("code", "incorrect password reset code")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apierr.Server(err.Error())
	}
	username, err := s.repo.SetPasswordByEmail(ctx, email, hash)
	if err != nil {
		return apierr.Server(err.Error())
	}
	if err := s.cache.Del(ctx, resetKey(email)).Err(); err != nil {
		return apierr.Server(err.Error())
	}
	if s.mailer.Configured() {
		return s.mailer.SendUserUpdated(ctx, email, username, nil, nil, true)
	}
	return nil
}
