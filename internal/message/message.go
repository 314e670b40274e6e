// Package message validates chat messages. Messages are never persisted: they exist only as MESSAGE_CREATE events on
// the event bus (internal/events), so this package has no repository, unlike a typical CRUD domain package.
package message

import (
	"strings"
	"unicode/utf8"

	"github.com/eludris-go/eludris/internal/apierr"
)

// DisguiseNameMin and DisguiseNameMax bound a message disguise's display name.
const (
	DisguiseNameMin = 2
	DisguiseNameMax = 32
)

// Disguise lets a message appear under an alternate name/avatar without changing the author's account.
type Disguise struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Author is the subset of user fields embedded in a published message.
type Author struct {
	ID          uint64  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
}

// Message is the payload of a MESSAGE_CREATE event.
type Message struct {
	Author   Author    `json:"author"`
	Content  string    `json:"content"`
	Disguise *Disguise `json:"disguise,omitempty"`
}

// ValidateContent trims content and rejects it if empty after trimming or longer than maxLength runes.
func ValidateContent(content string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", apierr.Validation("content", "message content must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > maxLength {
		return "", apierr.Validation("content", "message content exceeds the maximum length")
	}
	return trimmed, nil
}

// ValidateDisguise checks the optional disguise name length. A nil disguise or nil name is valid (no disguise, or an
// avatar-only disguise).
func ValidateDisguise(d *Disguise) error {
	if d == nil || d.Name == nil {
		return nil
	}
	n := utf8.RuneCountInString(*d.Name)
	if n < DisguiseNameMin || n > DisguiseNameMax {
		return apierr.Validation("disguise.name", "disguise name must be between 2 and 32 characters")
	}
	return nil
}
