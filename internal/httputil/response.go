package httputil

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/apierr"
)

// SuccessResponse wraps successful API responses.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorBody mirrors apierr.Error's caller-visible shape.
type ErrorBody struct {
	Code         apierr.Kind `json:"code"`
	Message      string      `json:"message"`
	Item         string      `json:"item,omitempty"`
	Info         string      `json:"info,omitempty"`
	ValueName    string      `json:"value_name,omitempty"`
	RetryAfterMS int64       `json:"retry_after,omitempty"`
}

// ErrorResponse wraps failed API responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Success sends a 200 JSON response with the given data.
func Success(c fiber.Ctx, data any) error {
	return c.JSON(SuccessResponse{Data: data})
}

// SuccessStatus sends a JSON response with a custom status code.
func SuccessStatus(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(SuccessResponse{Data: data})
}

// ErrorHandler is the Fiber app-wide error handler: it renders any *apierr.Error returned by a handler as its
// structured JSON body with the matching HTTP status, and falls back to a generic SERVER error for anything else
// (including Fiber's own routing errors).
func ErrorHandler(c fiber.Ctx, err error) error {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			apiErr = &apierr.Error{Kind: apierr.KindServer, Message: fiberErr.Message}
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: toBody(apiErr)})
		}
		apiErr = apierr.Server(err.Error())
	}
	return c.Status(apiErr.Status()).JSON(ErrorResponse{Error: toBody(apiErr)})
}

func toBody(e *apierr.Error) ErrorBody {
	return ErrorBody{
		Code:         e.Kind,
		Message:      e.Message,
		Item:         e.Item,
		Info:         e.Info,
		ValueName:    e.ValueName,
		RetryAfterMS: e.RetryAfterMS,
	}
}
