package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"

	"plan-modeler/internal/common/middleware"
	"plan-modeler/internal/modeler/mapper"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/service"
	"plan-modeler/internal/modeler/solid"
)

// errorPayload is the body of every error response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requestIDFromCtx(c fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func writeError(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps a service error onto a status and a stable code.
// Client errors carry the error text; anything unexpected is logged and
// reported as an internal error.
func writeServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, mapper.ErrInvalidDocument):
		return writeError(c, fiber.StatusBadRequest, "INVALID_DOCUMENT", err.Error())
	case errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "BODY_REQUIRED", "body required")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "model id is required")
	case errors.Is(err, service.ErrUnknownBackend):
		return writeError(c, fiber.StatusBadRequest, "UNKNOWN_BACKEND", err.Error())
	case errors.Is(err, service.ErrUnknownFormat):
		return writeError(c, fiber.StatusBadRequest, "UNKNOWN_FORMAT", err.Error())
	case errors.Is(err, service.ErrInvalidModel):
		return writeError(c, fiber.StatusBadRequest, "INVALID_MODEL", err.Error())
	case errors.Is(err, models.ErrNoEntities):
		return writeError(c, fiber.StatusUnprocessableEntity, "NO_ENTITIES", err.Error())
	case errors.Is(err, models.ErrNoClosedShapes):
		return writeError(c, fiber.StatusUnprocessableEntity, "NO_CLOSED_SHAPES", err.Error())
	case errors.Is(err, solid.ErrEmptyAssembly):
		return writeError(c, fiber.StatusUnprocessableEntity, "EMPTY_ASSEMBLY", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "model not found")
	case errors.Is(err, service.ErrArtifactNotFound):
		return writeError(c, fiber.StatusNotFound, "ARTIFACT_NOT_FOUND", "artifact not found")
	case errors.Is(err, service.ErrBackendUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", err.Error())
	}

	log.Printf("[MODELER] rid=%s internal error: %v", requestIDFromCtx(c), err)
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns the global error handler of the app.
func ErrorHandler() fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "BODY_TOO_LARGE", "request body too large")
		default:
			log.Printf("[MODELER] rid=%s unhandled error: %v", requestIDFromCtx(c), err)
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
