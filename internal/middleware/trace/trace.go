package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"ledger/internal/log"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader is read from the request when present and always
	// echoed on the response.
	RequestIDHeader = "X-Request-ID"
)

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Middleware stamps each request with an ID and logs its completion.
type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string

	totalRequests  atomic.Int64
	completed      atomic.Int64
	responseMicros atomic.Int64
}

type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds, over completed requests
}

// NewMiddleware seeds each request context with logger, so handlers pick it
// up through log.FromContext already carrying the request id.
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		logger:    logger.WithComponent(log.ComponentHTTP),
		extractIP: extractIP,
	}
}

// Handler returns the gin middleware.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		r := c.Request

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = log.NewContext(ctx, m.logger.With(log.FieldRequestID, requestID))
		c.Request = r.WithContext(ctx)

		m.totalRequests.Add(1)

		c.Next()

		status := c.Writer.Status()
		duration := time.Since(start)
		m.responseMicros.Add(duration.Microseconds())
		m.completed.Add(1)

		level := slog.LevelInfo
		if status >= 400 && status < 500 {
			level = slog.LevelWarn
		} else if status >= 500 {
			level = slog.LevelError
		}

		fields := log.NewFields().
			WithRequestID(requestID).
			WithHTTPRequest(r.Method, r.URL.Path, c.FullPath(), r.URL.RawQuery, r.Header.Get("User-Agent")).
			WithHTTPResponse(status, duration.Milliseconds()).
			WithClientIP(clientIP).
			WithComponent(log.ComponentHTTP)
		if len(c.Errors) > 0 {
			fields[log.FieldError] = c.Errors.String()
		}
		m.logger.LogContext(c.Request.Context(), level, "HTTP request completed", fields.ToSlice()...)
	}
}

// GenerateRequestID returns a random "req_" prefixed id.
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func (m *Middleware) GetMetrics() Metrics {
	metrics := Metrics{TotalRequests: m.totalRequests.Load()}
	if n := m.completed.Load(); n > 0 {
		metrics.AverageResponseTime = m.responseMicros.Load() / n
	}
	return metrics
}
