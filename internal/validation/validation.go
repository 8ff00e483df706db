// Package validation checks request bodies before they reach a service.
package validation

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20

// MaxStringLength caps free-text descriptor fields.
const MaxStringLength = 10000

// RequestSizeMiddleware rejects bodies larger than maxSize. Declared
// lengths are refused up front; chunked bodies are cut off while reading.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "request_too_large",
				"message": fmt.Sprintf("Request body exceeds %d bytes", maxSize),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// Field is one named input value.
type Field struct {
	Name  string
	Value string
}

// FieldError describes why one field was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Errors collects every rejected field.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + " " + fe.Reason
	}
	return strings.Join(parts, "; ")
}

// Fields returns the names of the rejected fields in order.
func (e Errors) Fields() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Field
	}
	return out
}

// Rule inspects a value and returns a reason when it is unacceptable.
type Rule func(value string) (reason string, ok bool)

// Text accepts UTF-8 without NUL bytes up to max bytes. Values are never
// rewritten, since signed statements must cover the exact input. Strings
// decoded by encoding/json are already valid UTF-8, so the UTF-8 branch only
// guards callers that pass raw bytes.
func Text(max int) Rule {
	return func(v string) (string, bool) {
		switch {
		case len(v) > max:
			return fmt.Sprintf("exceeds maximum length of %d", max), false
		case !utf8.ValidString(v):
			return "is not valid UTF-8", false
		case strings.ContainsRune(v, 0):
			return "contains a NUL byte", false
		}
		return "", true
	}
}

// Check applies rule to every field and reports all failures.
func Check(rule Rule, fields ...Field) Errors {
	var errs Errors
	for _, f := range fields {
		if reason, ok := rule(f.Value); !ok {
			errs = append(errs, FieldError{Field: f.Name, Reason: reason})
		}
	}
	return errs
}
