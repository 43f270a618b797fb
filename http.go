package todoapi

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
)

// NewErrorHandler builds the app level fiber error handler. Every
// error a handler or middleware returns funnels through here and
// resolves to the uniform envelope, server side detail is logged and
// never written to the response.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		envelope := classifyTransport(err)
		requestID, _ := c.Locals(LocalRequestID).(string)

		if envelope.Type == ErrorTypeServer {
			logger.Error("request failed",
				"status_code", envelope.StatusCode,
				"kind", ErrorKind(err),
				"method", c.Method(),
				"path", c.Path(),
				"request_id", requestID,
				"error", err.Error(),
			)
		} else {
			logger.Warn("request rejected",
				"status_code", envelope.StatusCode,
				"kind", ErrorKind(err),
				"method", c.Method(),
				"path", c.Path(),
				"request_id", requestID,
			)
		}

		body := fiber.Map{"error": envelope}
		if requestID != "" {
			body["request_id"] = requestID
		}

		return c.Status(envelope.StatusCode).JSON(body)
	}
}

// classifyTransport folds fiber's own errors, e.g. 404s for unknown
// routes and body limit rejections, into the shared vocabulary.
func classifyTransport(err error) ErrorEnvelope {
	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		return ErrorEnvelope{
			StatusCode: fiberErr.Code,
			Message:    fiberErr.Message,
			Type:       errorType(fiberErr.Code),
		}
	}
	return Classify(err)
}
