package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h gin.HandlerFunc, method, origin string, preflight bool) *httptest.ResponseRecorder {
	router := gin.New()
	router.Use(h)
	router.POST("/rug", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	path := "/health"
	if method != http.MethodGet {
		path = "/rug"
	}
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHeadersMiddleware(t *testing.T) {
	w := serve(HeadersMiddleware(), http.MethodGet, "", false)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestOrigins_Allows(t *testing.T) {
	o := NewOrigins([]string{"http://localhost:3000/", "https://Watchdog.example"})

	assert.True(t, o.Allows("http://localhost:3000"))
	assert.True(t, o.Allows("https://watchdog.example"))
	assert.False(t, o.Allows("https://evil.example"))
	assert.False(t, o.Allows(""))

	assert.True(t, NewOrigins([]string{"*"}).Allows("https://anything.example"))
	assert.False(t, NewOrigins(nil).Allows("http://localhost:3000"))
}

func TestOrigins_CheckWebSocket(t *testing.T) {
	o := NewOrigins([]string{"https://app.example"})

	req := httptest.NewRequest(http.MethodGet, "http://watchdog.local/ws", nil)
	assert.True(t, o.CheckWebSocket(req), "no Origin header")

	req.Header.Set("Origin", "https://app.example")
	assert.True(t, o.CheckWebSocket(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, o.CheckWebSocket(req))

	req.Header.Set("Origin", "http://watchdog.local")
	assert.True(t, o.CheckWebSocket(req), "same host")

	req.Header.Set("Origin", "://bad")
	assert.False(t, o.CheckWebSocket(req))

	assert.True(t, NewOrigins([]string{"*"}).CheckWebSocket(req))
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name      string
		origins   []string
		origin    string
		wantAllow bool
		wantCreds bool
	}{
		{"allowed origin", []string{"http://localhost:3000"}, "http://localhost:3000", true, true},
		{"wildcard without credentials", []string{"*"}, "https://anything.example", true, false},
		{"disallowed origin", []string{"http://localhost:3000"}, "https://evil.example", false, false},
		{"no origin header", []string{"*"}, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(NewOrigins(tt.origins).CORS(), http.MethodGet, tt.origin, false)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin") != "")
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials") != "")
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	cors := NewOrigins([]string{"*"}).CORS()

	w := serve(cors, http.MethodOptions, "http://localhost:3000", true)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	// A bare OPTIONS without preflight headers falls through to routing.
	w = serve(cors, http.MethodOptions, "http://localhost:3000", false)
	assert.NotEqual(t, http.StatusNoContent, w.Code)
}
