package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"objbase.io/objbase/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header map[string]string
		want   Format
	}{
		{name: "default html", target: "/demo", want: FormatHTML},
		{name: "json key", target: "/demo?json", want: FormatJSON},
		{name: "short key", target: "/demo?short", want: FormatCompact},
		{name: "kv key", target: "/demo?kv", want: FormatKV},
		{
			name:   "json key beats short key",
			target: "/demo?short&json",
			want:   FormatJSON,
		},
		{
			name:   "accept header",
			target: "/demo",
			header: map[string]string{"Accept": "application/json, text/plain"},
			want:   FormatJSON,
		},
		{
			name:   "content type",
			target: "/demo",
			header: map[string]string{"Content-Type": "application/json; charset=utf-8"},
			want:   FormatJSON,
		},
		{
			name:   "xhr header",
			target: "/demo",
			header: map[string]string{"X-Requested-With": "xmlhttprequest"},
			want:   FormatJSON,
		},
		{
			name:   "query key beats accept header",
			target: "/demo?kv",
			header: map[string]string{"Accept": "application/json"},
			want:   FormatKV,
		},
		{
			name:   "browser accept stays html",
			target: "/demo",
			header: map[string]string{"Accept": "text/html,application/xhtml+xml"},
			want:   FormatHTML,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			if got := resolveFormat(req); got != tc.want {
				t.Errorf("resolveFormat() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNegotiate_StoresFormat(t *testing.T) {
	router := gin.New()
	router.Use(Negotiate())

	var got Format
	router.GET("/x", func(c *gin.Context) {
		got = FormatOf(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?short", nil))

	if got != FormatCompact {
		t.Errorf("FormatOf() = %v, want %v", got, FormatCompact)
	}
}

func TestFormat_IsJSON(t *testing.T) {
	if FormatHTML.IsJSON() {
		t.Error("FormatHTML.IsJSON() = true")
	}
	for _, f := range []Format{FormatJSON, FormatCompact, FormatKV} {
		if !f.IsJSON() {
			t.Errorf("%v.IsJSON() = false", f)
		}
	}
}
