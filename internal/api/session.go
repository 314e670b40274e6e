package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/auth"
	"github.com/eludris-go/eludris/internal/events"
	"github.com/eludris-go/eludris/internal/httputil"
	"github.com/eludris-go/eludris/internal/presence"
)

// SessionHandler serves the session lifecycle routes: create, list, delete.
type SessionHandler struct {
	Sessions *auth.Service
	Presence *presence.Store
	Events   *events.Publisher
}

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Platform   string `json:"platform"`
	Client     string `json:"client"`
}

type sessionResponse struct {
	ID       uint64 `json:"id"`
	UserID   uint64 `json:"user_id"`
	Platform string `json:"platform"`
	Client   string `json:"client"`
	IP       string `json:"ip"`
}

func toSessionResponse(s auth.Session) sessionResponse {
	return sessionResponse{ID: s.ID, UserID: s.UserID, Platform: s.Platform, Client: s.Client, IP: s.IP}
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(c fiber.Ctx) error {
	var body createSessionRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	token, session, err := h.Sessions.CreateSession(c.Context(), body.Identifier, body.Password, body.Platform, body.Client, c.IP())
	if err != nil {
		return err
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, fiber.Map{
		"token":   token,
		"session": toSessionResponse(session),
	})
}

// List handles GET /sessions.
func (h *SessionHandler) List(c fiber.Ctx) error {
	userID, _ := auth.UserID(c)

	sessions, err := h.Sessions.ListSessions(c.Context(), userID)
	if err != nil {
		return err
	}

	out := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = toSessionResponse(s)
	}
	return httputil.Success(c, out)
}

type deleteSessionRequest struct {
	Password string `json:"password"`
}

// Delete handles DELETE /sessions/<id>. Removing a user's only remaining session while they are
// online (have a live gateway connection) forces that presence offline.
func (h *SessionHandler) Delete(c fiber.Ctx) error {
	token := authToken(c)

	var body deleteSessionRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return apierr.Validation("id", "id must be a number")
	}

	remaining, userID, err := h.Sessions.DeleteSession(c.Context(), token, sessionID, body.Password)
	if err != nil {
		return err
	}

	if remaining == 0 {
		wasOnline, err := h.Presence.ForceOffline(c.Context(), userID)
		if err != nil {
			return apierr.Server(err.Error())
		}
		if wasOnline {
			update := events.PresenceUpdate{UserID: userID, Status: events.Status{Type: "offline"}}
			if err := h.Events.Publish(c.Context(), events.TypePresenceUpdate, update); err != nil {
				return apierr.Server(err.Error())
			}
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// authToken reads the raw token from the Authorization header. Callers send "Authorization: <token>" directly, with
// no Bearer scheme.
func authToken(c fiber.Ctx) string {
	return c.Get("Authorization")
}
