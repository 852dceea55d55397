package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"recipe-service/internal/utils/logger"
	"recipe-service/internal/utils/metrics"
)

const (
	CorrelationHeader = "X-Correlation-Id"
	// CorrelationLocalsKey is where the request id lives in fiber locals.
	CorrelationLocalsKey = "correlationId"
)

type (
	Middleware interface {
		CORSMiddleware() fiber.Handler
		MetricsMiddleware() fiber.Handler
		RequestIDMiddleware() fiber.Handler
		CorrelationMiddleware() fiber.Handler
	}

	middleware struct {
		allowOrigins string
	}
)

func NewMiddleware(allowOrigins string) Middleware {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return &middleware{allowOrigins: allowOrigins}
}

func (m *middleware) CORSMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  m.allowOrigins,
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + CorrelationHeader,
		ExposeHeaders: CorrelationHeader,
	})
}

// RequestIDMiddleware reuses an incoming X-Correlation-Id or generates one,
// and echoes it on the response.
func (m *middleware) RequestIDMiddleware() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     CorrelationHeader,
		ContextKey: CorrelationLocalsKey,
	})
}

// CorrelationMiddleware copies the request id into the user context so that
// services and queued jobs can log it. It runs after RequestIDMiddleware.
func (m *middleware) CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(CorrelationLocalsKey).(string); ok && id != "" {
			c.SetUserContext(logger.ContextWithCorrelationID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// MetricsMiddleware records request counts and latency keyed by the matched
// route pattern, not the raw path.
func (m *middleware) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		metrics.RecordHTTPRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
