package middleware

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/utils"
)

// EventRecorder accepts access events without blocking.
type EventRecorder interface {
	Record(event *models.AccessEvent) bool
}

// RequestID tags every request and response with an X-Request-ID, reusing a caller-supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(utils.RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(utils.RequestIDHeader, rid)
		c.Next()
	}
}

// AccessLog records one access event per request after the handler has produced its response.
func AccessLog(recorder EventRecorder, clock services.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if !services.ShouldRecordPath(path) {
			return
		}

		event := &models.AccessEvent{
			Path:       clip(path),
			Method:     c.Request.Method,
			ClientIP:   c.ClientIP(),
			UserAgent:  optionalHeader(c, "User-Agent"),
			Referer:    optionalHeader(c, "Referer"),
			StatusCode: c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
			OccurredAt: clock.Now(),
		}
		if id, ok := UserID(c); ok {
			event.UserID = &id
		}
		recorder.Record(event)
	}
}

func optionalHeader(c *gin.Context, name string) *string {
	v := c.GetHeader(name)
	if v == "" {
		return nil
	}
	v = clip(v)
	return &v
}

// clip makes s valid UTF-8 and cuts it to the column size without splitting a rune.
func clip(s string) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= models.AccessTextMaxLen {
		return s
	}
	n := models.AccessTextMaxLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
