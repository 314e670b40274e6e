package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/auth"
	"github.com/eludris-go/eludris/internal/httputil"
	"github.com/eludris-go/eludris/internal/presence"
	"github.com/eludris-go/eludris/internal/user"
)

// UserHandler serves the user lifecycle routes: create, verify, fetch, update, delete, password reset.
type UserHandler struct {
	Users    *user.Service
	Presence *presence.Store
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Create handles POST /users.
func (h *UserHandler) Create(c fiber.Ctx) error {
	var body createUserRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	u, err := h.Users.Create(c.Context(), user.CreateParams{Username: body.Username, Email: body.Email, Password: body.Password})
	if err != nil {
		return err
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, u.Public(true))
}

// Verify handles POST /users/verify?code=N.
func (h *UserHandler) Verify(c fiber.Ctx) error {
	userID, _ := auth.UserID(c)

	code, err := strconv.Atoi(c.Query("code"))
	if err != nil {
		return apierr.Validation("code", "code must be a number")
	}

	if err := h.Users.Verify(c.Context(), userID, code); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetMe handles GET /users/@me.
func (h *UserHandler) GetMe(c fiber.Ctx) error {
	userID, _ := auth.UserID(c)

	online, err := h.Presence.IsOnline(c.Context(), userID)
	if err != nil {
		return apierr.Server(err.Error())
	}

	u, err := h.Users.Get(c.Context(), userID, &userID, online)
	if err != nil {
		return err
	}
	return httputil.Success(c, u.Public(true))
}

// Get handles GET /users/<id|username>. requesterID is nil for unauthenticated callers.
func (h *UserHandler) Get(c fiber.Ctx) error {
	var requesterID *uint64
	if id, ok := auth.UserID(c); ok {
		requesterID = &id
	}

	identifier := c.Params("identifier")
	id, parseErr := strconv.ParseUint(identifier, 10, 64)

	var (
		u   *user.User
		err error
	)
	if parseErr == nil {
		online, presenceErr := h.Presence.IsOnline(c.Context(), id)
		if presenceErr != nil {
			return apierr.Server(presenceErr.Error())
		}
		u, err = h.Users.Get(c.Context(), id, requesterID, online)
	} else {
		// The id isn't known yet, so look the user up once to learn it, then re-read the correct online state and
		// let Get apply it rather than trusting the placeholder passed to GetByUsername.
		var byUsername *user.User
		byUsername, err = h.Users.GetByUsername(c.Context(), identifier, requesterID, false)
		if err == nil {
			online, presenceErr := h.Presence.IsOnline(c.Context(), byUsername.ID)
			if presenceErr != nil {
				return apierr.Server(presenceErr.Error())
			}
			u, err = h.Users.Get(c.Context(), byUsername.ID, requesterID, online)
		}
	}
	if err != nil {
		return err
	}

	isSelf := requesterID != nil && *requesterID == u.ID
	return httputil.Success(c, u.Public(isSelf))
}

type updateUserRequest struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	NewPassword *string `json:"new_password"`
	Password    string  `json:"password"`
}

// Update handles PATCH /users.
func (h *UserHandler) Update(c fiber.Ctx) error {
	userID, _ := auth.UserID(c)

	var body updateUserRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	u, err := h.Users.Update(c.Context(), userID, user.UpdateParams{
		Username:    body.Username,
		Email:       body.Email,
		NewPassword: body.NewPassword,
		Password:    body.Password,
	})
	if err != nil {
		return err
	}
	return httputil.Success(c, u.Public(true))
}

type updateProfileRequest struct {
	DisplayName *string          `json:"display_name"`
	Bio         *string          `json:"bio"`
	StatusText  *string          `json:"status_text"`
	StatusType  *user.StatusType `json:"status_type"`
	AvatarID    *uint64          `json:"avatar,string"`
	BannerID    *uint64          `json:"banner,string"`
}

// UpdateProfile handles PATCH /users/profile.
func (h *UserHandler) UpdateProfile(c fiber.Ctx) error {
	userID, _ := auth.UserID(c)

	var body updateProfileRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	u, err := h.Users.UpdateProfile(c.Context(), userID, user.ProfileParams{
		DisplayName: body.DisplayName,
		Bio:         body.Bio,
		StatusText:  body.StatusText,
		StatusType:  body.StatusType,
		AvatarID:    body.AvatarID,
		BannerID:    body.BannerID,
	})
	if err != nil {
		return err
	}
	return httputil.Success(c, u.Public(true))
}

type deleteUserRequest struct {
	Password string `json:"password"`
}

// Delete handles DELETE /users.
func (h *UserHandler) Delete(c fiber.Ctx) error {
	userID, _ := auth.UserID(c)

	var body deleteUserRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	if err := h.Users.Delete(c.Context(), userID, body.Password); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type createPasswordResetCodeRequest struct {
	Email string `json:"email"`
}

// CreatePasswordResetCode handles POST /users/reset-password.
func (h *UserHandler) CreatePasswordResetCode(c fiber.Ctx) error {
	var body createPasswordResetCodeRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	if err := h.Users.CreatePasswordResetCode(c.Context(), body.Email); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type resetPasswordRequest struct {
	Code     int    `json:"code"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPassword handles PATCH /users/reset-password.
func (h *UserHandler) ResetPassword(c fiber.Ctx) error {
	var body resetPasswordRequest
	if err := c.Bind().Body(&body); err != nil {
		return apierr.Validation("body", "invalid request body")
	}

	if err := h.Users.ResetPassword(c.Context(), body.Email, body.Code, body.Password); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
