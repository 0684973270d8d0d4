package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Format is the negotiated response encoding.
type Format int

const (
	// FormatHTML renders server-side pages for legacy browser clients.
	FormatHTML Format = iota
	// FormatJSON is the full JSON projection.
	FormatJSON
	// FormatCompact is the abbreviated {"d":[...]} projection.
	FormatCompact
	// FormatKV is the flat key/value JSON projection.
	FormatKV
)

const ctxKeyFormat = "response_format"

// Negotiate resolves the response format for a request. Explicit query keys
// win over headers; header checks run in a fixed order so clients that send
// several hints get a stable answer.
//
// Precedence: query key json > short > kv; then Accept, Content-Type,
// X-Requested-With; HTML otherwise.
func Negotiate() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyFormat, resolveFormat(c.Request))
		c.Next()
	}
}

func resolveFormat(r *http.Request) Format {
	query := r.URL.Query()
	if query.Has("json") {
		return FormatJSON
	}
	if query.Has("short") {
		return FormatCompact
	}
	if query.Has("kv") {
		return FormatKV
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return FormatJSON
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return FormatJSON
	}
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return FormatJSON
	}
	return FormatHTML
}

// FormatOf returns the format resolved by Negotiate, defaulting to HTML.
func FormatOf(c *gin.Context) Format {
	if v, ok := c.Get(ctxKeyFormat); ok {
		if f, ok := v.(Format); ok {
			return f
		}
	}
	return FormatHTML
}

// IsJSON reports whether the negotiated format is one of the JSON variants.
func (f Format) IsJSON() bool { return f != FormatHTML }
