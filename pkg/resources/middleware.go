package resources

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const RequestIdHeader = "X-Request-Id"

// RequestLogger puts a request scoped logger, tagged with a request id, into
// the request context and logs each completed request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIdHeader)
		if uuid.Validate(id) != nil {
			id = uuid.NewString()
		}

		c.Header(RequestIdHeader, id)

		logger := log.Ctx(c.Request.Context()).With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}

// CORS allows any origin, as the frontend may be served from elsewhere.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// StaticFiles serves the frontend from dir for any GET that no route matched.
// Unknown paths fall back to index.html, unknown API paths get a JSON 404.
func StaticFiles(dir string) gin.HandlerFunc {
	fs := gin.Dir(dir, false)
	fileServer := http.FileServer(fs)
	index := filepath.Join(dir, "index.html")

	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		f, err := fs.Open(path.Clean(c.Request.URL.Path))
		if err != nil {
			c.File(index)
			return
		}
		_ = f.Close()

		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
