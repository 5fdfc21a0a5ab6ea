package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// NewUpgrader accepts browser origins from allowed. "*" allows any origin and
// requests without an Origin header (non-browser clients) are always accepted.
func NewUpgrader(allowed []string) *websocket.Upgrader {
	origins := make(map[string]struct{}, len(allowed))
	allowAll := false
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		origins[strings.ToLower(o)] = struct{}{}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				return true
			}
			_, ok := origins[strings.ToLower(strings.TrimRight(origin, "/"))]
			return ok
		},
	}
}
