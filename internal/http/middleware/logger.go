package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
)

// Logger is a middleware that logs each HTTP request in JSON format to stdout, timestamped in UTC.
func Logger() fiber.Handler {
	return LoggerWithWriter(os.Stdout, time.UTC)
}

// LoggerWithWriter logs one JSON object per request to w.
// Fields:
// - ts (RFC3339Nano in loc)
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
// - tenant (only when the request was authenticated)
// - trace_id (only when a span is recording for the request)
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.UTC
	}
	var mu sync.Mutex
	enc := json.NewEncoder(w)

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// Errors returned up the chain are rendered by the app ErrorHandler afterwards,
		// so the response status is not final yet.
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		line := map[string]any{
			"ts":         start.In(loc).Format(time.RFC3339Nano),
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		}
		if tenant := TenantFromCtx(c); tenant != "" {
			line["tenant"] = tenant
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.HasTraceID() {
			line["trace_id"] = sc.TraceID().String()
		}

		mu.Lock()
		_ = enc.Encode(line)
		mu.Unlock()

		return err
	}
}
