package middleware

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"outreach_server/pkg/apperr"
	"outreach_server/pkg/logger"
	"outreach_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrorResponse is the standard error body. Error and Message carry the same
// text: API clients read "error", the bundled UI reads "message".
type ErrorResponse struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Code      string         `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func newErrorResponse(requestID, code, message string, details map[string]any) ErrorResponse {
	return ErrorResponse{
		Error:     message,
		Message:   message,
		Code:      code,
		Details:   details,
		RequestID: requestID,
	}
}

// ErrorHandler is a centralized error handler for Fiber
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID, _ := c.Locals("request_id").(string)

		var (
			status   int
			response ErrorResponse
		)

		log := logger.WithContext(c.UserContext())
		var fe *fiber.Error

		if appErr, ok := apperr.As(err); ok {
			status = appErr.Status
			response = newErrorResponse(requestID, appErr.Code, appErr.Message, appErr.Details)

			log = log.WithField("error_code", appErr.Code).WithError(appErr.Err)
			if status >= 500 {
				log.Error("Internal error: %s", appErr.Message)
			} else {
				log.Warn("Client error: %s", appErr.Message)
			}
		} else if errors.As(err, &fe) {
			status = fe.Code
			response = newErrorResponse(requestID, mapHTTPStatusToCode(fe.Code), fe.Message, nil)
		} else {
			status = fiber.StatusInternalServerError
			response = newErrorResponse(requestID, apperr.CodeInternalError, err.Error(), nil)

			log.WithError(err).Error("Unexpected error: %s", err.Error())
		}

		return c.Status(status).JSON(response)
	}
}

// RequestID middleware adds a unique request ID to each request and to the
// request's user context for downstream logging.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)
		c.SetUserContext(context.WithValue(c.UserContext(), logger.RequestIDKey, requestID))
		return c.Next()
	}
}

// RequestLogger logs incoming requests and their responses
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		log := logger.WithContext(c.UserContext()).WithFields(map[string]any{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"ip":         c.IP(),
			"user_agent": c.Get("User-Agent"),
		}).WithDuration(time.Since(start))

		switch {
		case status >= 500:
			log.Error("Request failed: %s %s -> %d", c.Method(), c.Path(), status)
		case status >= 400:
			log.Warn("Request error: %s %s -> %d", c.Method(), c.Path(), status)
		default:
			log.Info("Request completed: %s %s -> %d", c.Method(), c.Path(), status)
		}

		return err
	}
}

// Metrics records request counts and latency by route pattern.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// The error handler has not run yet; use the status it will write.
			status = apperr.GetHTTPStatus(err)
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		m.ObserveHTTP(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
		return err
	}
}

// Recover middleware recovers from panics
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Locals("request_id").(string)

				logger.WithContext(c.UserContext()).WithFields(map[string]any{
					"panic":  fmt.Sprintf("%v", r),
					"path":   c.Path(),
					"method": c.Method(),
					"stack":  string(debug.Stack()),
				}).Error("Panic recovered")

				err = c.Status(fiber.StatusInternalServerError).JSON(
					newErrorResponse(requestID, apperr.CodeInternalError, "An unexpected error occurred", nil),
				)
			}
		}()
		return c.Next()
	}
}

func mapHTTPStatusToCode(status int) string {
	switch status {
	case 400:
		return apperr.CodeBadRequest
	case 404:
		return apperr.CodeNotFound
	case 413, 422:
		return apperr.CodeValidationFailed
	case 500:
		return apperr.CodeInternalError
	case 502, 503, 504:
		return apperr.CodeExternalError
	default:
		return "UNKNOWN_ERROR"
	}
}
