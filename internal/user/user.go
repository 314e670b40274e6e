// Package user implements the user service: validation, creation, profile updates, presence-aware reads, deletion,
// password reset, and the scheduled cleanup loop described in §4.4.
package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eludris-go/eludris/internal/apierr"
)

// Sentinel errors for the user package.
var (
	ErrNotFound     = errors.New("user not found")
	ErrTombstoned   = errors.New("account has been deleted")
	ErrNoCode       = errors.New("no verification code pending")
	ErrWrongCode    = errors.New("verification code does not match")
	ErrRaceConflict = errors.New("username or email was taken concurrently")
)

// StatusType is the closed set of presence states a user can report.
type StatusType string

const (
	StatusOnline  StatusType = "online"
	StatusIdle    StatusType = "idle"
	StatusBusy    StatusType = "busy"
	StatusOffline StatusType = "offline"
)

// Status is a user's self-reported presence state plus an optional free-text status line.
type Status struct {
	Type StatusType `json:"type"`
	Text *string    `json:"text"`
}

// User is a row of the users table, already shaped for the API: avatar/banner are file ids, not raw file rows.
type User struct {
	ID           uint64
	Username     string
	DisplayName  *string
	SocialCredit int64
	Status       Status
	Bio          *string
	AvatarID     *uint64
	BannerID     *uint64
	Badges       uint64
	Permissions  uint64
	Email        string
	Verified     bool
	IsDeleted    bool
	PasswordHash string
	CreatedAt    time.Time
}

// CreatedAtMS returns the timestamp component of ID (id >> 16), which the snowflake package encodes as whole seconds
// since its epoch, not milliseconds. The cleanup loop computes account age in SQL and does not call it.
func (u *User) CreatedAtMS() int64 {
	return int64(u.ID >> 16)
}

// PublicUser is the wire shape returned by the API and carried in USER_UPDATE events. It never carries PasswordHash
// or IsDeleted; Email and Verified are included only when the caller already decided the requester is entitled to
// see them (see Service.maskUser).
type PublicUser struct {
	ID           uint64  `json:"id"`
	Username     string  `json:"username"`
	DisplayName  *string `json:"display_name,omitempty"`
	SocialCredit int64   `json:"social_credit"`
	Status       Status  `json:"status"`
	Bio          *string `json:"bio,omitempty"`
	AvatarID     *uint64 `json:"avatar,omitempty"`
	BannerID     *uint64 `json:"banner,omitempty"`
	Badges       uint64  `json:"badges"`
	Permissions  uint64  `json:"permissions"`
	Email        *string `json:"email,omitempty"`
	Verified     *bool   `json:"verified,omitempty"`
}

// Public converts u to its wire shape. includePrivate controls whether Email/Verified are populated.
func (u *User) Public(includePrivate bool) PublicUser {
	p := PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		SocialCredit: u.SocialCredit,
		Status:       u.Status,
		Bio:          u.Bio,
		AvatarID:     u.AvatarID,
		BannerID:     u.BannerID,
		Badges:       u.Badges,
		Permissions:  u.Permissions,
	}
	if includePrivate {
		p.Email = &u.Email
		p.Verified = &u.Verified
	}
	return p
}

// CreateParams groups the inputs to Create.
type CreateParams struct {
	Username string
	Email    string
	Password string
}

// UpdateParams groups the optional account-level fields Update may change.
type UpdateParams struct {
	Username    *string
	Email       *string
	NewPassword *string
	Password    string // current password, required for re-authentication
}

// ProfileParams groups the optional profile fields UpdateProfile may change. At least one must be non-nil.
type ProfileParams struct {
	DisplayName *string
	Bio         *string
	StatusText  *string
	StatusType  *StatusType
	AvatarID    *uint64
	BannerID    *uint64
}

const (
	usernameMin    = 2
	usernameMax    = 32
	displayNameMin = 2
	displayNameMax = 32
	statusTextMax  = 150
)

var (
	usernameRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)
	hasAlpha      = regexp.MustCompile(`\p{L}`)
	// emailRegex is a practical RFC-5321 approximation: local@domain with at least one dot in the domain part.
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)+$`)
)

// ValidateUsername enforces §4.4's username regex, length, and at-least-one-letter rules.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return apierr.Validation("username", "username must consist only of lowercase letters, digits, underscores and dashes")
	}
	if n := utf8.RuneCountInString(username); n < usernameMin || n > usernameMax {
		return apierr.Validation("username", "username must be between 2 and 32 characters")
	}
	if !hasAlpha.MatchString(username) {
		return apierr.Validation("username", "username must contain at least one alphabetic character")
	}
	return nil
}

// ValidateEmail enforces a practical email-shape check.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return apierr.Validation("email", "email must be a valid address")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apierr.Validation("password", "password must be at least 8 characters")
	}
	return nil
}

// ValidateDisplayName enforces display_name length when present.
func ValidateDisplayName(name *string) error {
	if name == nil {
		return nil
	}
	if n := utf8.RuneCountInString(*name); n < displayNameMin || n > displayNameMax {
		return apierr.Validation("display_name", "display name must be between 2 and 32 characters")
	}
	return nil
}

// ValidateBio enforces bio length against the configured limit when present.
func ValidateBio(bio *string, limit int) error {
	if bio == nil {
		return nil
	}
	if n := utf8.RuneCountInString(*bio); n < 1 || n > limit {
		return apierr.Validation("bio", "bio must be non-empty and within the configured limit")
	}
	return nil
}

// ValidateStatusText enforces status text length when present.
func ValidateStatusText(text *string) error {
	if text == nil {
		return nil
	}
	if n := utf8.RuneCountInString(*text); n < 1 || n > statusTextMax {
		return apierr.Validation("status_text", "status text must be between 1 and 150 characters")
	}
	return nil
}

// NormalizeUsername lowercases and trims a username prior to validation/storage.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail lowercases and trims an email prior to validation/storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasAnyField reports whether at least one field of p is present, per §4.4's "at least one field must be present"
// rule.
func (p ProfileParams) HasAnyField() bool {
	return p.DisplayName != nil || p.Bio != nil || p.StatusText != nil ||
		p.StatusType != nil || p.AvatarID != nil || p.BannerID != nil
}

// HasAnyField reports whether at least one field of u is present.
func (u UpdateParams) HasAnyField() bool {
	return u.Username != nil || u.Email != nil || u.NewPassword != nil
}

// Hasher hashes and verifies passwords. Service takes this as a narrow dependency rather than importing
// internal/auth directly, mirroring the original implementation's own `create<H: PasswordHasher>` parameterization.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// Mailer sends the templated notification emails §4.4 triggers. A Configured that returns false means the instance has no
// mailer set up, in which case creation skips verification and password-reset endpoints fail MISDIRECTED.
type Mailer interface {
	Configured() bool
	SendVerification(ctx context.Context, to, username string, code int) error
	SendUserUpdated(ctx context.Context, to, username string, newUsername, newEmail *string, passwordChanged bool) error
	SendDeleted(ctx context.Context, to, username string) error
	SendPasswordReset(ctx context.Context, to, username string, code int) error
}
