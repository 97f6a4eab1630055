package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware logs one line per request. colored adds ANSI colours for
// the method and status; leave it off when the output is not a terminal.
func LoggingMiddleware(logger *log.Logger, colored bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		method := c.Method()

		var statusColor, methodColor, resetColor string
		if colored {
			statusColor, methodColor, resetColor = getStatusColor(status), getMethodColor(method), "\033[0m"
		}

		if err != nil {
			logger.Printf("%s %s%s%s %s %s%d%s %v err=%v",
				c.IP(), methodColor, method, resetColor, c.Path(),
				statusColor, status, resetColor, time.Since(start), err)
			return err
		}
		logger.Printf("%s %s%s%s %s %s%d%s %v",
			c.IP(), methodColor, method, resetColor, c.Path(),
			statusColor, status, resetColor, time.Since(start))
		return nil
	}
}

func getStatusColor(status int) string {
	switch {
	case status >= 500:
		return "\033[31m" // red
	case status >= 400:
		return "\033[33m" // yellow
	case status >= 300:
		return "\033[36m" // cyan
	case status >= 200:
		return "\033[32m" // green
	default:
		return "\033[37m" // white
	}
}

func getMethodColor(method string) string {
	switch method {
	case "GET":
		return "\033[34m" // blue
	case "POST":
		return "\033[33m" // yellow
	case "DELETE":
		return "\033[31m" // red
	default:
		return "\033[37m" // white
	}
}
