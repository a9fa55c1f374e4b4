package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"vaultapi/internal/http/middleware"
	"vaultapi/internal/logging"
	"vaultapi/internal/service"
)

// Machine-readable error codes returned in the error envelope.
const (
	codeBadRequest         = "bad_request"
	codeInvalidBody        = "invalid_body"
	codeInvalidID          = "invalid_id"
	codeInvalidKey         = "invalid_key"
	codeInvalidContacts    = "invalid_contacts"
	codeTooManyContacts    = "too_many_contacts"
	codeNotFound           = "not_found"
	codeMethodNotAllowed   = "method_not_allowed"
	codeUnauthorized       = "unauthorized"
	codeInternal           = "internal_error"
	codeServiceUnavailable = "service_unavailable"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "invalid_id", "not_found", "internal_error")
// - message: human-readable message
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps a service error to its status and code. Anything unrecognized is
// a store failure: it is logged and returned as a 500 carrying the underlying message.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errInvalidBody):
		return writeError(c, fiber.StatusBadRequest, codeInvalidBody, err.Error())
	case errors.Is(err, service.ErrInvalidID):
		return writeError(c, fiber.StatusBadRequest, codeInvalidID, "invalid id")
	case errors.Is(err, service.ErrInvalidKey):
		return writeError(c, fiber.StatusBadRequest, codeInvalidKey, "invalid key")
	case errors.Is(err, service.ErrInvalidContacts):
		return writeError(c, fiber.StatusBadRequest, codeInvalidContacts, "contacts must be an array")
	case errors.Is(err, service.ErrTooManyContacts):
		return writeError(c, fiber.StatusRequestEntityTooLarge, codeTooManyContacts, "too many contacts")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, codeNotFound, "not found")
	}

	slog.ErrorContext(c.UserContext(), "request failed",
		slog.String("request_id", requestIDFromCtx(c)),
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		logging.Err(err),
	)
	return writeError(c, fiber.StatusInternalServerError, codeInternal, err.Error())
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, codeBadRequest, "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, codeUnauthorized, "unauthorized")
		case fiber.StatusNotFound:
			return writeError(c, status, codeNotFound, "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, codeMethodNotAllowed, "method not allowed")
		default:
			return writeError(c, status, codeInternal, "internal server error")
		}
	}
}
