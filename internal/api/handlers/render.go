package handlers

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"objbase.io/objbase/internal/api/middleware"
)

// render writes result in the format negotiated for the request.
func render(c *gin.Context, result any) {
	switch middleware.FormatOf(c) {
	case middleware.FormatKV:
		c.JSON(http.StatusOK, flattenKV(result))
	case middleware.FormatJSON, middleware.FormatCompact:
		c.JSON(http.StatusOK, result)
	default:
		renderHTML(c, result)
	}
}

// flattenKV collapses a nested result into a single-level map with
// dotted path keys, the shape legacy key/value consumers parse.
func flattenKV(result any) map[string]string {
	raw, err := json.Marshal(result)
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return map[string]string{"error": err.Error()}
	}
	out := make(map[string]string)
	flattenInto(out, "", tree)
	return out
}

func flattenInto(out map[string]string, prefix string, node any) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			flattenInto(out, joinKey(prefix, key), child)
		}
	case []any:
		for i, child := range v {
			flattenInto(out, joinKey(prefix, fmt.Sprintf("%d", i)), child)
		}
	case nil:
		out[prefix] = ""
	case float64:
		out[prefix] = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		out[prefix] = fmt.Sprintf("%v", v)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// renderHTML serves the legacy browser shape: the payload as a key/value
// table inside a minimal page.
func renderHTML(c *gin.Context, result any) {
	kv := flattenKV(result)
	keys := make([]string, 0, len(kv))
	for key := range kv {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<html><body><table>")
	for _, key := range keys {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>",
			html.EscapeString(key), html.EscapeString(kv[key]))
	}
	b.WriteString("</table></body></html>")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}
