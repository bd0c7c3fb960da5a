package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aibekov/fitplanner/internal/log"
	"github.com/aibekov/fitplanner/internal/metrics"
	"github.com/aibekov/fitplanner/internal/security"
)

const (
	requestIDKey = "X-Request-ID"
	authUserKey  = "authUser"
)

// AuthUser is what a verified session token puts into the request
// context.
type AuthUser struct {
	UID    string
	Email  string
	Name   string
	Avatar string
}

func currentUser(c *gin.Context) AuthUser {
	v, _ := c.Get(authUserKey)
	au, _ := v.(AuthUser)
	return au
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDKey, id)
		c.Next()
	}
}

// AuthJWT gates session-authenticated routes.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer"})
			return
		}
		tok := strings.TrimSpace(h[len("Bearer "):])
		claims, err := security.ParseSession(secret, tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(authUserKey, AuthUser{
			UID:    claims.UID,
			Email:  normEmail(claims.Email),
			Name:   claims.Name,
			Avatar: claims.Avatar,
		})
		c.Next()
	}
}

// RateLimitOTP throttles the OTP-issuing endpoints per client IP with a
// fixed one-minute window in Redis. Without Redis it passes everything
// through.
func (h *Handler) RateLimitOTP(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Redis == nil || h.RateLimitPerMin <= 0 {
			c.Next()
			return
		}
		key := "rl:" + route + ":" + c.ClientIP()
		n, err := h.Redis.CountInWindow(c.Request.Context(), key, time.Minute)
		if err != nil {
			// limiter outage must not take the flow down
			log.WithDD(c.Request.Context(), zap.Error(err)).Warn("rate limiter")
			c.Next()
			return
		}
		if n > int64(h.RateLimitPerMin) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// Metrics records the teacher-standard request vectors.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.InFlight.Inc()
		start := time.Now()
		c.Next()
		metrics.InFlight.Dec()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
