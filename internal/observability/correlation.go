package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CorrelationHeader carries the request correlation id on the wire.
const CorrelationHeader = "X-Correlation-ID"

// CorrelationMiddleware assigns every request a correlation id, honoring one
// supplied by the caller. The id rides the request context so downstream
// loggers pick it up through WithContextLogger, and is echoed on the
// response.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := c.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.Locals(correlationIDKey{}, correlationID)
		c.Set(CorrelationHeader, correlationID)
		return c.Next()
	}
}
