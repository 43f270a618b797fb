// Package requestware observes every request: it assigns a request
// id, stamps timing headers, and emits structured start and
// completion log events including the outcome of failed requests.
package requestware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	todoapi "github.com/goliatone/go-todo-api"
	"github.com/google/uuid"
)

// HeaderRequestID carries the generated id back to the client
const HeaderRequestID = "X-Request-ID"

// HeaderProcessTime carries the handling duration in milliseconds
const HeaderProcessTime = "X-Process-Time"

type Config struct {
	Logger todoapi.Logger
	// Generator produces request ids, defaults to uuid v4
	Generator func() string
	// Filter defines a function to skip the middleware
	Filter func(*fiber.Ctx) bool
}

// New builds the request observer middleware
func New(config ...Config) fiber.Handler {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Logger == nil {
		cfg.Logger = todoapi.NewSlogLogger(nil)
	}

	if cfg.Generator == nil {
		cfg.Generator = uuid.NewString
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		start := time.Now()
		requestID := cfg.Generator()

		c.Locals(todoapi.LocalRequestID, requestID)
		c.SetUserContext(todoapi.WithRequestContext(c.UserContext(), todoapi.RequestContext{
			ID:        requestID,
			Method:    c.Method(),
			Path:      c.Path(),
			ClientIP:  c.IP(),
			StartedAt: start,
		}))

		cfg.Logger.Info("http request start",
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"client_ip", c.IP(),
		)

		err := c.Next()

		elapsed := time.Since(start)
		elapsedMS := float64(elapsed.Microseconds()) / 1000.0

		c.Set(HeaderRequestID, requestID)
		c.Set(HeaderProcessTime, strconv.FormatFloat(elapsedMS, 'f', 2, 64))

		if err != nil {
			envelope := todoapi.Classify(err)
			cfg.Logger.Error("http request failed",
				"request_id", requestID,
				"method", c.Method(),
				"path", c.Path(),
				"status_code", envelope.StatusCode,
				"kind", todoapi.ErrorKind(err),
				"response_time_ms", elapsedMS,
				"client_ip", c.IP(),
				"user", requestUser(c),
			)
			return err
		}

		cfg.Logger.Info("http request complete",
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"status_code", c.Response().StatusCode(),
			"response_time_ms", elapsedMS,
			"client_ip", c.IP(),
			"user", requestUser(c),
		)

		return nil
	}
}

// requestUser resolves the authenticated caller if a downstream
// middleware attached one, "anonymous" otherwise.
func requestUser(c *fiber.Ctx) string {
	if identity, ok := todoapi.IdentityFromContext(c.UserContext()); ok {
		return identity.ID()
	}
	return "anonymous"
}
