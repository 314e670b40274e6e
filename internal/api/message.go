package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/auth"
	"github.com/eludris-go/eludris/internal/events"
	"github.com/eludris-go/eludris/internal/httputil"
	"github.com/eludris-go/eludris/internal/message"
	"github.com/eludris-go/eludris/internal/user"
)

// MessageHandler serves POST /messages. Messages are never persisted (internal/message); a create publishes a
// MESSAGE_CREATE event and returns it; messages are ephemeral and fanned out over the gateway rather than stored.
type MessageHandler struct {
	Users       *user.Service
	Events      *events.Publisher
	ContentSize int
}

type createMessageRequest struct {
	Content  string            `json:"content"`
	Disguise *message.Disguise `json:"disguise,omitempty"`
}

// Create handles POST /messages.
func (h *MessageHandler) Create(c fiber.Ctx) error {
	userID, _ := auth.UserID(c)

	var body createMessageRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	content, err := message.ValidateContent(body.Content, h.ContentSize)
	if err != nil {
		return err
	}
	if err := message.ValidateDisguise(body.Disguise); err != nil {
		return err
	}

	u, err := h.Users.Get(c.Context(), userID, &userID, true)
	if err != nil {
		return err
	}

	msg := message.Message{
		Author: message.Author{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
		},
		Content:  content,
		Disguise: body.Disguise,
	}
	if err := h.Events.Publish(c.Context(), events.TypeMessageCreate, msg); err != nil {
		return apierr.Server(err.Error())
	}
	return httputil.Success(c, msg)
}
