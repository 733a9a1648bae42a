package cache

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheMiddleware caches rendered issue detail pages. Editor sessions
// bypass the cache entirely so draft previews are never written to or
// served from it.
func CacheMiddleware(maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" {
			c.Next()
			return
		}

		key := issueKeyFromPath(c.Request.URL.Path)
		if key == "" {
			c.Next()
			return
		}

		if sessions.Default(c).Get("editor_id") != nil {
			c.Next()
			return
		}

		if cached, found := ReadCache(key, maxAge); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		// only successful HTML responses are cached
		if c.Writer.Status() == http.StatusOK &&
			strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/html") {
			WriteCache(key, writer.body.String())
		}
	}
}

// issueKeyFromPath returns the issue number for /issues/<n> paths and
// "" for everything else.
func issueKeyFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/issues/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
