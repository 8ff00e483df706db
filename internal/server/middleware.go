package server

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/watchdog/internal/idgen"
	"github.com/mbd888/watchdog/internal/logging"
	"github.com/mbd888/watchdog/internal/metrics"
	"github.com/mbd888/watchdog/internal/ratelimit"
	"github.com/mbd888/watchdog/internal/security"
	"github.com/mbd888/watchdog/internal/traces"
	"github.com/mbd888/watchdog/internal/validation"
)

// Upstream request IDs are echoed into logs and headers, so only short
// opaque tokens are accepted.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

func (s *Server) useMiddleware() {
	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: s.cfg.RateLimitRPM,
		BurstSize:         s.cfg.RateLimitBurst,
	})

	s.router.Use(
		s.recovery(),
		security.HeadersMiddleware(),
		security.NewOrigins(s.cfg.CORSOrigins).CORS(),
		validation.RequestSizeMiddleware(validation.MaxRequestSize),
		s.rateLimiter.Middleware("/health", "/health/live", "/health/ready", "/metrics"),
		metrics.Middleware(),
		traces.Middleware(s.service),
		s.requestID(),
		s.accessLog(),
	)
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	})
}

// requestID reuses a well-formed X-Request-ID from the caller or mints one,
// and puts it and the service logger on the request context.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if !validRequestID.MatchString(id) {
			id = idgen.WithPrefix("req_")
		}

		ctx := logging.WithLogger(logging.WithRequestID(c.Request.Context(), id), s.logger)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)

		c.Next()
	}
}

// accessLog logs one record per request. Successful requests log at debug
// so health probes and metric scrapes stay quiet.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		}
		if status >= http.StatusBadRequest {
			attrs = append(attrs, slog.String("client_ip", c.ClientIP()))
			if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
				attrs = append(attrs, slog.String("error", errs.String()))
			}
		}

		ctx := c.Request.Context()
		logging.L(ctx).LogAttrs(ctx, level, "request completed", attrs...)
	}
}
