package validation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	rule := Text(10)

	tests := []struct {
		name   string
		value  string
		ok     bool
		reason string
	}{
		{"empty", "", true, ""},
		{"at limit", strings.Repeat("x", 10), true, ""},
		{"over limit", strings.Repeat("x", 11), false, "exceeds maximum length of 10"},
		{"keeps surrounding space", "  mint  ", true, ""},
		{"nul byte", "a\x00b", false, "contains a NUL byte"},
		{"invalid utf8", "\xff\xfe", false, "is not valid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := rule(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestText_JSONDecodedInput(t *testing.T) {
	// encoding/json swaps invalid bytes for U+FFFD, so only NUL and length
	// can still reject a decoded field.
	var body struct {
		CodeAnalysis string `json:"codeAnalysis"`
	}
	require.NoError(t, json.Unmarshal([]byte("{\"codeAnalysis\":\"ok\xff\"}"), &body))
	assert.Equal(t, "ok\uFFFD", body.CodeAnalysis)

	_, ok := Text(MaxStringLength)(body.CodeAnalysis)
	assert.True(t, ok)

	require.NoError(t, json.Unmarshal([]byte(`{"codeAnalysis":"a\u0000b"}`), &body))
	reason, ok := Text(MaxStringLength)(body.CodeAnalysis)
	assert.False(t, ok)
	assert.Equal(t, "contains a NUL byte", reason)
}

func TestCheck_CollectsAll(t *testing.T) {
	errs := Check(Text(10),
		Field{"tokenAddress", "0xABC"},
		Field{"codeAnalysis", strings.Repeat("x", 11)},
		Field{"recentTxHistory", "bad\x00"},
	)

	require.Len(t, errs, 2)
	assert.Equal(t, []string{"codeAnalysis", "recentTxHistory"}, errs.Fields())
	assert.Contains(t, errs.Error(), "codeAnalysis exceeds maximum length")
	assert.Contains(t, errs.Error(), "recentTxHistory contains a NUL byte")
}

func TestCheck_NoErrors(t *testing.T) {
	assert.Empty(t, Check(Text(10), Field{"token", "0xABC"}))
	assert.Equal(t, "validation failed", Errors{}.Error())
}

func TestRequestSizeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestSizeMiddleware(8))
	router.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "read limit")
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/echo", bytes.NewBufferString("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	// Declared length is refused before the handler runs.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/echo", bytes.NewBufferString("much too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request_too_large")

	// Unknown length is cut off while reading.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/echo", io.MultiReader(strings.NewReader("much too large"))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "read limit", w.Body.String())
}
